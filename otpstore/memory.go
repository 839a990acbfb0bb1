package otpstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry[T any] struct {
	value   T
	evictAt time.Time
}

// MemoryStore is a process-local Store. Entries are reaped lazily on access.
type MemoryStore[T any] struct {
	mu      sync.Mutex
	entries map[string]memoryEntry[T]
	now     func() time.Time
}

func NewMemoryStore[T any](now func() time.Time) *MemoryStore[T] {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore[T]{
		entries: make(map[string]memoryEntry[T]),
		now:     now,
	}
}

func (s *MemoryStore[T]) Put(_ context.Context, key string, value T, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry[T]{value: value, evictAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore[T]) Get(_ context.Context, key string) (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	entry, ok := s.entries[key]
	if !ok {
		return zero, false, nil
	}
	if !s.now().Before(entry.evictAt) {
		delete(s.entries, key)
		return zero, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	delete(s.entries, key)
	return s.now().Before(entry.evictAt), nil
}

func (s *MemoryStore[T]) Claim(_ context.Context, key string, match func(T) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.evictAt) || !match(entry.value) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// Len counts live entries.
func (s *MemoryStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for _, e := range s.entries {
		if now.Before(e.evictAt) {
			n++
		}
	}
	return n
}
