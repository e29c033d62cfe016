package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache bounded by a maximum entry count.
type MemoryCache[V any] struct {
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewMemoryCache creates a cache holding at most maxEntries values.
// A non-positive maxEntries means unbounded.
func NewMemoryCache[V any](maxEntries int) *MemoryCache[V] {
	return &MemoryCache[V]{
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]entry[V]),
	}
}

// Get returns the value stored under key unless it has expired.
func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. When the cache is full, expired
// entries are dropped first and, if that is not enough, the entry closest
// to expiry is evicted.
func (c *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.purgeLocked(now)
		if len(c.entries) >= c.maxEntries {
			c.evictSoonestLocked()
		}
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	return nil
}

// Delete removes key.
func (c *MemoryCache[V]) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (c *MemoryCache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(c.now())
}

// Clear drops every entry.
func (c *MemoryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *MemoryCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache[V]) purgeLocked(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache[V]) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	for k, e := range c.entries {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
		}
	}
	delete(c.entries, victim)
}
