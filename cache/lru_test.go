package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCache(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c, err := NewLRUCache[string](2)
	if err != nil {
		t.Fatalf("NewLRUCache() error = %v", err)
	}
	c.now = clk.now

	_ = c.Set(ctx, "a", "alpha", time.Minute)
	_ = c.Set(ctx, "b", "beta", time.Minute)
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatal("Get(a) missed")
	}

	// b is now least recently used.
	_ = c.Set(ctx, "c", "gamma", time.Minute)
	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get(ctx, "a"); !ok || v != "alpha" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}

	clk.advance(time.Minute)
	if _, ok := c.Get(ctx, "c"); ok {
		t.Error("c should expire at its TTL")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	if err := c.Set(ctx, "", "x", time.Minute); err != ErrInvalidKey {
		t.Errorf("Set(empty key) error = %v", err)
	}
	_ = c.Set(ctx, "zero", "x", 0)
	if _, ok := c.Get(ctx, "zero"); ok {
		t.Error("zero ttl should store nothing")
	}

	_ = c.Delete(ctx, "a")
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() after Purge = %d", c.Len())
	}
}

func TestNewLRUCache_InvalidSize(t *testing.T) {
	if _, err := NewLRUCache[string](0); err == nil {
		t.Error("NewLRUCache(0) error = nil, want error")
	}
}

func TestNew(t *testing.T) {
	for _, kind := range []string{"", "memory", "lru"} {
		c, err := New[string](kind, 8)
		if err != nil || c == nil {
			t.Errorf("New(%q) = %v, %v", kind, c, err)
		}
	}
	if _, err := New[string]("redis", 8); err == nil {
		t.Error("New(redis) error = nil, want error")
	}
	if _, ok := any(mustNew(t, "lru")).(*LRUCache[string]); !ok {
		t.Error("New(lru) did not return an LRUCache")
	}
}

func mustNew(t *testing.T, kind string) Cache[string] {
	t.Helper()
	c, err := New[string](kind, 8)
	if err != nil {
		t.Fatal(err)
	}
	return c
}
