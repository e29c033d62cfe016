package filter

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/observe"
)

// AuthenticationError reports credentials that were presented and rejected.
// It matches auth.ErrUnauthenticated.
type AuthenticationError struct {
	// Method is the authentication method that rejected the credentials.
	Method string
	// Err is the underlying reason, such as auth.ErrInvalidCredentials.
	Err error
}

func (e *AuthenticationError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("%s authentication failed: %v", e.Method, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Is reports whether target is auth.ErrUnauthenticated.
func (e *AuthenticationError) Is(target error) bool {
	return target == auth.ErrUnauthenticated
}

// AuthenticationFilter extracts credentials, resolves them to an identity
// and binds the identity to the request context.
//
// Requests without credentials continue unauthenticated. Rejected or
// malformed credentials are answered by the failure handler and the chain
// stops. Resolver outages are returned as errors.
type AuthenticationFilter struct {
	extractor     auth.CredentialExtractor
	authenticator auth.Authenticator
	failure       FailureHandler
}

// NewAuthenticationFilter creates an authentication filter. A nil failure
// handler answers with a Basic challenge.
func NewAuthenticationFilter(extractor auth.CredentialExtractor, authenticator auth.Authenticator, failure FailureHandler) *AuthenticationFilter {
	if failure == nil {
		failure = EntryPointFailureHandler(BasicEntryPoint{})
	}
	return &AuthenticationFilter{
		extractor:     extractor,
		authenticator: authenticator,
		failure:       failure,
	}
}

// Filter implements Filter.
func (f *AuthenticationFilter) Filter(ex *Exchange, next Next) error {
	ctx := ex.Context()

	creds, err := f.extractor.Extract(ctx, auth.NewAuthRequest(ex.Request))
	if err != nil {
		if errors.Is(err, auth.ErrMalformedCredentials) {
			return f.fail(ex, "", &AuthenticationError{Err: err})
		}
		return fmt.Errorf("extract credentials: %w", err)
	}
	if creds == nil {
		ex.record("authentication", "absent")
		return next(ex)
	}

	result, err := f.authenticator.Authenticate(ctx, creds)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if result == nil {
		result = auth.AuthFailure(auth.ErrInvalidCredentials, "")
	}
	if !result.Authenticated || result.Identity == nil {
		reason := result.Error
		if reason == nil {
			reason = auth.ErrInvalidCredentials
		}
		return f.fail(ex, creds.Principal, &AuthenticationError{Method: result.Method, Err: reason})
	}

	id := result.Identity
	if id.IsExpired() {
		return f.fail(ex, id.Principal, &AuthenticationError{Method: string(id.Method), Err: auth.ErrTokenExpired})
	}

	ex.WithContext(auth.WithIdentity(ctx, id))
	ex.logger = ex.logger.With(observe.F("principal", id.Principal))
	ex.setState(StateAuthenticated)
	ex.record("authentication", "success")
	ex.Logger().Debug(ex.Context(), "authenticated", observe.F("method", string(id.Method)))

	return next(ex)
}

func (f *AuthenticationFilter) fail(ex *Exchange, principal string, err *AuthenticationError) error {
	ex.authFailed = true
	ex.setState(StateDenied)
	ex.record("authentication", "failure")

	fields := []observe.Field{
		observe.F("error", err),
		observe.F("remote_addr", ex.Request.RemoteAddr),
	}
	if principal != "" {
		fields = append(fields, observe.F("principal", principal))
	}
	ex.Logger().Warn(ex.Context(), "authentication failed", fields...)

	return f.failure.OnAuthenticationFailure(ex, err)
}
