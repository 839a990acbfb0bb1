package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// FileStorage persists uploaded files and returns a location for them.
type FileStorage interface {
	Save(ctx context.Context, folder, name string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, location string) error
}

// SupabaseStorage writes objects to a Supabase Storage bucket.
type SupabaseStorage struct {
	client  *storage.Client
	baseURL string
	bucket  string
}

func NewSupabaseStorage(supabaseURL, key, bucket string) *SupabaseStorage {
	if bucket == "" {
		bucket = "uploads"
	}
	base := strings.TrimRight(supabaseURL, "/")
	return &SupabaseStorage{
		client:  storage.NewClient(base+"/storage/v1", key, nil),
		baseURL: base,
		bucket:  bucket,
	}
}

func (s *SupabaseStorage) Save(_ context.Context, folder, name string, data []byte, contentType string) (string, error) {
	objectPath := fmt.Sprintf("%s/%s", folder, name)
	options := storage.FileOptions{ContentType: &contentType}

	if _, err := s.client.UploadFile(s.bucket, objectPath, bytes.NewReader(data), options); err != nil {
		return "", fmt.Errorf("upload to supabase: %w", err)
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, objectPath), nil
}

// Delete accepts the public URL returned by Save.
func (s *SupabaseStorage) Delete(_ context.Context, location string) error {
	object, err := objectPathFromURL(location, s.bucket)
	if err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{object}); err != nil {
		return fmt.Errorf("delete from supabase: %w", err)
	}
	return nil
}

func objectPathFromURL(publicURL, bucket string) (string, error) {
	marker := "/storage/v1/object/public/" + bucket + "/"
	idx := strings.Index(publicURL, marker)
	if idx == -1 {
		return "", fmt.Errorf("not a %s object url: %s", bucket, publicURL)
	}
	object := publicURL[idx+len(marker):]
	if q := strings.Index(object, "?"); q != -1 {
		object = object[:q]
	}
	return object, nil
}

// LocalStorage writes under a directory on disk; used when Supabase is not configured.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: root}
}

func (s *LocalStorage) Save(_ context.Context, folder, name string, data []byte, _ string) (string, error) {
	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *LocalStorage) Delete(_ context.Context, location string) error {
	rel, err := filepath.Rel(s.root, location)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to delete outside upload folder: %s", location)
	}
	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// AllowedExtension reports whether filename ends in one of the allowed
// extensions (compared without the dot, case-insensitively).
func AllowedExtension(filename string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}
