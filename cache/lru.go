package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is a Cache that evicts the least recently used entry when full.
// Entries also expire after their own ttl.
type LRUCache[V any] struct {
	lru *lru.Cache[string, entry[V]]
	now func() time.Time
}

// NewLRUCache creates an LRU cache holding at most size entries.
func NewLRUCache[V any](size int) (*LRUCache[V], error) {
	l, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("cache: create lru: %w", err)
	}
	return &LRUCache[V]{lru: l, now: time.Now}, nil
}

// Get returns the value under key unless it has expired.
func (c *LRUCache[V]) Get(_ context.Context, key string) (V, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (c *LRUCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		return nil
	}
	c.lru.Add(key, entry[V]{value: value, expiresAt: c.now().Add(ttl)})
	return nil
}

// Delete removes key.
func (c *LRUCache[V]) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *LRUCache[V]) Len() int {
	return c.lru.Len()
}

// Purge removes all entries.
func (c *LRUCache[V]) Purge() {
	c.lru.Purge()
}

var _ Cache[int] = (*LRUCache[int])(nil)
