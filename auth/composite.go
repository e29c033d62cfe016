package auth

import (
	"context"
	"strings"
)

// SchemeAuthenticator routes credentials to an authenticator chosen by
// their scheme, so one chain can accept several authentication mechanisms.
type SchemeAuthenticator struct {
	delegates map[string]Authenticator
}

// NewSchemeAuthenticator creates an empty scheme router.
func NewSchemeAuthenticator() *SchemeAuthenticator {
	return &SchemeAuthenticator{delegates: make(map[string]Authenticator)}
}

// Handle registers the authenticator for scheme and returns the receiver.
// It must not be called once the authenticator is in use.
func (s *SchemeAuthenticator) Handle(scheme string, a Authenticator) *SchemeAuthenticator {
	s.delegates[strings.ToLower(scheme)] = a
	return s
}

// Name returns "scheme".
func (s *SchemeAuthenticator) Name() string {
	return "scheme"
}

// Authenticate dispatches to the authenticator registered for creds.Scheme.
func (s *SchemeAuthenticator) Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error) {
	if creds == nil {
		return AuthFailure(ErrMissingCredentials, ""), nil
	}
	delegate, ok := s.delegates[strings.ToLower(creds.Scheme)]
	if !ok {
		return AuthFailure(ErrUnsupportedScheme, creds.Scheme), nil
	}
	return delegate.Authenticate(ctx, creds)
}

// FirstSuccessAuthenticator tries authenticators in order and returns the
// first successful result, or the last failure.
type FirstSuccessAuthenticator []Authenticator

// Name returns "first_success".
func (f FirstSuccessAuthenticator) Name() string {
	return "first_success"
}

// Authenticate tries each authenticator in sequence.
func (f FirstSuccessAuthenticator) Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error) {
	var last *AuthResult
	for _, a := range f {
		result, err := a.Authenticate(ctx, creds)
		if err != nil {
			// Propagate internal errors immediately
			return nil, err
		}
		if result == nil {
			result = AuthFailure(ErrInvalidCredentials, "")
		}
		if result.Authenticated {
			return result, nil
		}
		last = result
	}
	if last != nil {
		return last, nil
	}
	return AuthFailure(ErrMissingCredentials, ""), nil
}

var (
	_ Authenticator = (*SchemeAuthenticator)(nil)
	_ Authenticator = FirstSuccessAuthenticator(nil)
)
