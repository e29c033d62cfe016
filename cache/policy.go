package cache

import "time"

// Policy bounds how long authentications are remembered.
type Policy struct {
	// TTL is how long a successful authentication is cached.
	// Zero disables caching.
	TTL time.Duration

	// MaxEntries bounds the number of cached authentications.
	// Zero means unbounded.
	MaxEntries int
}

// DefaultPolicy caches for 30 seconds with at most 10000 entries.
func DefaultPolicy() Policy {
	return Policy{TTL: 30 * time.Second, MaxEntries: 10000}
}

// Enabled reports whether the policy caches anything.
func (p Policy) Enabled() bool {
	return p.TTL > 0
}

// EffectiveTTL returns the TTL for an identity that expires at expiresAt,
// never caching past the expiry. A zero expiresAt means no expiry.
func (p Policy) EffectiveTTL(now, expiresAt time.Time) time.Duration {
	ttl := p.TTL
	if !expiresAt.IsZero() {
		ttl = min(ttl, expiresAt.Sub(now))
	}
	return max(ttl, 0)
}
