// Package otpstore keeps short-lived one-time entries (pending registrations,
// login codes) in a keyed store with TTL eviction.
package otpstore

import (
	"context"
	"time"
)

// Store is a single-slot-per-key TTL map. Put overwrites any existing entry.
type Store[T any] interface {
	Put(ctx context.Context, key string, value T, ttl time.Duration) error
	Get(ctx context.Context, key string) (T, bool, error)
	// Delete reports whether an entry was present, so callers can claim an
	// entry exactly once.
	Delete(ctx context.Context, key string) (bool, error)
	// Claim deletes the entry only while it is live and match accepts the
	// value held at that moment. A concurrent Put that replaces the entry
	// makes the claim fail instead of removing the newer value.
	Claim(ctx context.Context, key string, match func(T) bool) (bool, error)
}
