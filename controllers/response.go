package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/middleware"
	"github.com/gyanguru/gyanguru-backend/services"
	"github.com/gyanguru/gyanguru-backend/utils"
)

// respondError writes {"error": ...} with the status of the error's kind.
// Field errors are listed under "details".
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		utils.GetLoggerFromContext(c).Error("Request failed", "path", c.FullPath(), "error", err)
	}
	body := gin.H{"error": apperrors.Message(err)}
	if details := apperrors.Details(err); len(details) > 0 {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, body)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperrors.FromBinding(err))
		return false
	}
	return true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperrors.Validation(name, "must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) (services.Actor, bool) {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		respondError(c, apperrors.Unauthorized("unauthenticated"))
	}
	return a, ok
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// readUpload pulls a multipart file into memory, enforcing the size limit.
func readUpload(c *gin.Context, field string, maxBytes int64) (*services.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, apperrors.Validation(field, "no file provided")
		}
		return nil, apperrors.Validation(field, "invalid multipart form")
	}
	if fh.Filename == "" {
		return nil, apperrors.Validation(field, "no file selected")
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, apperrors.Validation(field, "file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// optionalUpload is readUpload for forms where the file may be omitted.
func optionalUpload(c *gin.Context, field string, maxBytes int64) (*services.Upload, error) {
	if _, err := c.FormFile(field); errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	return readUpload(c, field, maxBytes)
}
