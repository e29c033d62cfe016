package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	// Credential extraction errors
	ErrMissingCredentials   = errors.New("auth: missing credentials")
	ErrMalformedCredentials = errors.New("auth: malformed credentials")

	// Authentication errors
	ErrUnauthenticated    = errors.New("auth: authentication required")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountDisabled    = errors.New("auth: account disabled")
	ErrAccountLocked      = errors.New("auth: account locked")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrKeyNotFound        = errors.New("auth: signing key not found")
	ErrUnsupportedScheme  = errors.New("auth: unsupported credential scheme")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")
)
