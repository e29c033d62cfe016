package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodNone      AuthMethod = "none"
	AuthMethodBasic     AuthMethod = "basic"
	AuthMethodBearer    AuthMethod = "bearer"
	AuthMethodStatic    AuthMethod = "static"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Identity is an authenticated principal together with its granted
// authorities.
type Identity struct {
	// Principal is the unique name of the caller (e.g., username, subject).
	Principal string

	// TenantID is the tenant this identity belongs to (multi-tenancy).
	TenantID string

	// Roles are the authorities granted to this identity (e.g., "ROLE_USER").
	Roles []string

	// Method indicates how authentication was performed.
	Method AuthMethod

	// Claims contains provider specific attributes (token claims, store metadata).
	Claims map[string]any

	// ExpiresAt is when this identity expires.
	ExpiresAt time.Time

	// IssuedAt is when this identity was created.
	IssuedAt time.Time
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.Roles, role)
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (id *Identity) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if id.HasRole(r) {
			return true
		}
	}
	return false
}

// IsExpired checks if the identity has expired.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// IsAnonymous returns true for a nil identity, the anonymous identity, or an
// identity without a principal.
func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Method == AuthMethodAnonymous || id.Principal == ""
}

// AnonymousIdentity creates the identity used for requests without credentials.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: "anonymous",
		Roles:     []string{"ROLE_ANONYMOUS"},
		Method:    AuthMethodAnonymous,
		Claims:    make(map[string]any),
	}
}
