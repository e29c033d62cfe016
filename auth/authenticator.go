package auth

import "context"

// Authenticator validates credentials and returns an identity.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: methods should honor cancellation/deadlines.
//   - Errors: Authenticate returns (nil, error) for internal errors;
//     returns (AuthResult, nil) for auth failures (check result.Authenticated).
type Authenticator interface {
	// Authenticate validates credentials and returns a result.
	Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error)
}

// AuthResult is the result of an authentication attempt.
type AuthResult struct {
	// Authenticated is true if authentication succeeded.
	Authenticated bool

	// Identity is the authenticated identity (only if Authenticated=true).
	Identity *Identity

	// Error is the authentication error (only if Authenticated=false).
	Error error

	// Method indicates which authenticator method was used.
	Method string
}

// AuthSuccess creates a successful authentication result.
func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Identity:      identity,
		Method:        string(identity.Method),
	}
}

// AuthFailure creates a failed authentication result.
func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{
		Authenticated: false,
		Error:         err,
		Method:        method,
	}
}

// AuthenticatorFunc is an adapter to allow use of ordinary functions as Authenticators.
type AuthenticatorFunc func(ctx context.Context, creds *Credentials) (*AuthResult, error)

// Authenticate calls the function.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error) {
	return f(ctx, creds)
}

// Name returns "func" for function-based authenticators.
func (f AuthenticatorFunc) Name() string {
	return "func"
}

// StaticAuthenticator accepts any credentials and returns a fixed identity.
// It performs no verification and is meant for tests and local wiring;
// production chains use UserStoreAuthenticator or JWTAuthenticator.
type StaticAuthenticator struct {
	// Principal is the name reported for every request.
	Principal string

	// Roles are granted to every request.
	Roles []string

	// UsePrincipal reports the credential's username instead of Principal
	// when one was presented.
	UsePrincipal bool
}

// NewStaticAuthenticator creates a stub authenticator for principal with roles.
func NewStaticAuthenticator(principal string, roles ...string) *StaticAuthenticator {
	return &StaticAuthenticator{Principal: principal, Roles: roles}
}

// Name returns "static".
func (a *StaticAuthenticator) Name() string {
	return "static"
}

// Authenticate returns the configured identity.
func (a *StaticAuthenticator) Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if creds == nil {
		return AuthFailure(ErrMissingCredentials, string(AuthMethodStatic)), nil
	}

	principal := a.Principal
	if a.UsePrincipal && creds.Principal != "" {
		principal = creds.Principal
	}

	return AuthSuccess(&Identity{
		Principal: principal,
		Roles:     append([]string(nil), a.Roles...),
		Method:    AuthMethodStatic,
		Claims:    make(map[string]any),
	}), nil
}

// NameOf returns the Name of a component when it has one.
func NameOf(v any) string {
	if n, ok := v.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unnamed"
}

var (
	_ Authenticator = (*StaticAuthenticator)(nil)
	_ Authenticator = AuthenticatorFunc(nil)
)
