package auth

import (
	"context"
)

// Context keys for auth-related values.
type contextKey int

const (
	identityKey contextKey = iota
)

// WithIdentity returns a new context with the given identity attached.
//
// The identity is visible to everything running under the returned context
// and nothing else; it goes away when the request's context does.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity from the context.
// Returns nil if no identity is present.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// PrincipalFromContext retrieves the principal from the context.
// Returns empty string if no identity is present.
func PrincipalFromContext(ctx context.Context) string {
	id := IdentityFromContext(ctx)
	if id == nil {
		return ""
	}
	return id.Principal
}

// TenantIDFromContext retrieves the tenant ID from the context.
// Returns empty string if no identity is present or tenant is not set.
func TenantIDFromContext(ctx context.Context) string {
	id := IdentityFromContext(ctx)
	if id == nil {
		return ""
	}
	return id.TenantID
}

// IsAuthenticated reports whether ctx carries a non-anonymous identity.
func IsAuthenticated(ctx context.Context) bool {
	return !IdentityFromContext(ctx).IsAnonymous()
}
