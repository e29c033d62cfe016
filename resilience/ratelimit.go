package resilience

import (
	"sync"
	"time"
)

// RateLimiterConfig configures a KeyedRateLimiter.
type RateLimiterConfig struct {
	// Rate is the number of tokens restored per second for each key.
	// Default: 1
	Rate float64

	// Burst is the capacity of each key's bucket.
	// Default: 10
	Burst int

	// IdleTTL is how long a full, untouched bucket is kept before it is
	// dropped. AllowN sweeps idle buckets at most once per IdleTTL.
	// Default: 10 minutes
	IdleTTL time.Duration

	// Now overrides the clock. Tests only.
	Now func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// KeyedRateLimiter keeps an independent token bucket per key.
// A key that has never been seen has a full bucket.
type KeyedRateLimiter struct {
	config RateLimiterConfig

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewKeyedRateLimiter creates a new keyed rate limiter.
func NewKeyedRateLimiter(config RateLimiterConfig) *KeyedRateLimiter {
	if config.Rate <= 0 {
		config.Rate = 1
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &KeyedRateLimiter{
		config:    config,
		buckets:   make(map[string]*bucket),
		lastSweep: config.Now(),
	}
}

// Allow takes one token from key's bucket and reports whether one was available.
func (rl *KeyedRateLimiter) Allow(key string) bool {
	return rl.AllowN(key, 1)
}

// AllowN takes n tokens from key's bucket if they are all available.
func (rl *KeyedRateLimiter) AllowN(key string, n int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now := rl.config.Now(); now.Sub(rl.lastSweep) >= rl.config.IdleTTL {
		rl.pruneLocked(now)
	}
	b := rl.refillLocked(key)
	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}
	return false
}

// Blocked reports whether key has less than one token, without consuming.
func (rl *KeyedRateLimiter) Blocked(key string) bool {
	return rl.Tokens(key) < 1
}

// Tokens returns the tokens currently available to key. It does not start
// tracking keys it has not seen.
func (rl *KeyedRateLimiter) Tokens(key string) float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.peekLocked(key)
}

// RetryAfter returns how long key must wait for its next token.
func (rl *KeyedRateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	tokens := rl.peekLocked(key)
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / rl.config.Rate * float64(time.Second))
}

// Reset restores key to a full bucket.
func (rl *KeyedRateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
}

// Prune drops buckets that have refilled and been idle for IdleTTL.
// It returns the number of buckets removed.
func (rl *KeyedRateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.pruneLocked(rl.config.Now())
}

func (rl *KeyedRateLimiter) pruneLocked(now time.Time) int {
	rl.lastSweep = now
	removed := 0
	for key, b := range rl.buckets {
		idle := now.Sub(b.lastSeen)
		if idle >= rl.config.IdleTTL && b.tokens+idle.Seconds()*rl.config.Rate >= float64(rl.config.Burst) {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (rl *KeyedRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *KeyedRateLimiter) peekLocked(key string) float64 {
	b, ok := rl.buckets[key]
	if !ok {
		return float64(rl.config.Burst)
	}
	return min(b.tokens+rl.config.Now().Sub(b.lastSeen).Seconds()*rl.config.Rate, float64(rl.config.Burst))
}

func (rl *KeyedRateLimiter) refillLocked(key string) *bucket {
	now := rl.config.Now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.config.Burst), lastSeen: now}
		rl.buckets[key] = b
		return b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.config.Rate
	if b.tokens > float64(rl.config.Burst) {
		b.tokens = float64(rl.config.Burst)
	}
	b.lastSeen = now
	return b
}
