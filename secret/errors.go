package secret

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrProviderNotRegistered indicates a reference to an unknown provider.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrNotFound indicates a provider has no secret for a reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmpty indicates a strict resolver received an empty secret.
	ErrEmpty = errors.New("secret: empty value")

	// ErrInvalidRef indicates a malformed or disallowed reference.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
