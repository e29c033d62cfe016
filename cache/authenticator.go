package cache

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/jonwraymond/webguard/auth"
)

// CachingAuthenticator remembers successful authentications of its
// delegate. Failed and errored authentications always reach the delegate.
type CachingAuthenticator struct {
	next   auth.Authenticator
	cache  Cache[*auth.Identity]
	keyer  Keyer
	policy Policy
	now    func() time.Time
}

// NewCachingAuthenticator wraps next. A nil cache gets a MemoryCache sized
// by the policy; a nil keyer gets a fresh HMACKeyer.
func NewCachingAuthenticator(next auth.Authenticator, policy Policy, c Cache[*auth.Identity], keyer Keyer) (*CachingAuthenticator, error) {
	if c == nil {
		c = NewMemoryCache[*auth.Identity](policy.MaxEntries)
	}
	if keyer == nil {
		k, err := NewHMACKeyer()
		if err != nil {
			return nil, err
		}
		keyer = k
	}
	return &CachingAuthenticator{next: next, cache: c, keyer: keyer, policy: policy, now: time.Now}, nil
}

// Name returns the delegate's name.
func (a *CachingAuthenticator) Name() string {
	return auth.NameOf(a.next)
}

// Authenticate serves cached identities and caches new successes.
func (a *CachingAuthenticator) Authenticate(ctx context.Context, creds *auth.Credentials) (*auth.AuthResult, error) {
	if !a.policy.Enabled() || creds == nil {
		return a.next.Authenticate(ctx, creds)
	}

	key, err := a.keyer.Key(creds)
	if err != nil {
		return a.next.Authenticate(ctx, creds)
	}

	if id, ok := a.cache.Get(ctx, key); ok && !id.IsExpired() {
		return auth.AuthSuccess(cloneIdentity(id)), nil
	}

	result, err := a.next.Authenticate(ctx, creds)
	if err != nil || result == nil || !result.Authenticated || result.Identity == nil {
		return result, err
	}

	if ttl := a.policy.EffectiveTTL(a.now(), result.Identity.ExpiresAt); ttl > 0 {
		_ = a.cache.Set(ctx, key, cloneIdentity(result.Identity), ttl)
	}
	return result, nil
}

func cloneIdentity(id *auth.Identity) *auth.Identity {
	cp := *id
	cp.Roles = slices.Clone(id.Roles)
	cp.Claims = maps.Clone(id.Claims)
	return &cp
}

var _ auth.Authenticator = (*CachingAuthenticator)(nil)
