package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrNilValue   = errors.New("cache: value is nil")
)

// Cache stores values for a bounded time.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Get never errors; it returns (zero, false) on miss or expiry.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)

	// Set stores value for ttl. A non-positive ttl stores nothing.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New creates a cache by kind: "memory" (the default) evicts the entry
// closest to expiry, "lru" the least recently used one. The lru kind
// requires a positive maxEntries.
func New[V any](kind string, maxEntries int) (Cache[V], error) {
	switch kind {
	case "", "memory":
		return NewMemoryCache[V](maxEntries), nil
	case "lru":
		return NewLRUCache[V](maxEntries)
	default:
		return nil, fmt.Errorf("cache: unknown kind %q", kind)
	}
}
