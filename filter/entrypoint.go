package filter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jonwraymond/webguard/auth"
)

// DefaultRealm is the realm advertised by BasicEntryPoint when none is set.
const DefaultRealm = "Realm"

// EntryPoint starts authentication by responding with a challenge.
type EntryPoint interface {
	Commence(ex *Exchange, err error) error
}

// EntryPointFunc adapts a function to the EntryPoint interface.
type EntryPointFunc func(ex *Exchange, err error) error

// Commence calls f.
func (f EntryPointFunc) Commence(ex *Exchange, err error) error { return f(ex, err) }

// BasicEntryPoint responds 401 with a Basic challenge and an empty body.
type BasicEntryPoint struct {
	Realm string
}

// Commence writes `WWW-Authenticate: Basic realm="<Realm>"` and 401.
func (e BasicEntryPoint) Commence(ex *Exchange, _ error) error {
	realm := e.Realm
	if realm == "" {
		realm = DefaultRealm
	}
	ex.Response.Header().Set("WWW-Authenticate", "Basic realm="+strconv.Quote(realm))
	ex.Response.WriteHeader(http.StatusUnauthorized)
	return nil
}

// BearerEntryPoint responds 401 with a Bearer challenge. When a presented
// token was rejected the challenge carries error="invalid_token".
type BearerEntryPoint struct {
	Realm string
}

// Commence writes the Bearer challenge and 401.
func (e BearerEntryPoint) Commence(ex *Exchange, err error) error {
	challenge := "Bearer"
	sep := " "
	if e.Realm != "" {
		challenge += sep + "realm=" + strconv.Quote(e.Realm)
		sep = ", "
	}
	if ex.AuthenticationFailed() && !errors.Is(err, auth.ErrMissingCredentials) {
		challenge += sep + `error="invalid_token"`
	}
	ex.Response.Header().Set("WWW-Authenticate", challenge)
	ex.Response.WriteHeader(http.StatusUnauthorized)
	return nil
}

// FailureHandler responds to rejected credentials.
type FailureHandler interface {
	OnAuthenticationFailure(ex *Exchange, err error) error
}

// FailureHandlerFunc adapts a function to the FailureHandler interface.
type FailureHandlerFunc func(ex *Exchange, err error) error

// OnAuthenticationFailure calls f.
func (f FailureHandlerFunc) OnAuthenticationFailure(ex *Exchange, err error) error { return f(ex, err) }

// EntryPointFailureHandler answers authentication failures with ep's challenge.
func EntryPointFailureHandler(ep EntryPoint) FailureHandler {
	return FailureHandlerFunc(ep.Commence)
}

// AccessDeniedHandler responds when an authenticated identity is denied.
type AccessDeniedHandler interface {
	OnAccessDenied(ex *Exchange, err error) error
}

// AccessDeniedHandlerFunc adapts a function to the AccessDeniedHandler interface.
type AccessDeniedHandlerFunc func(ex *Exchange, err error) error

// OnAccessDenied calls f.
func (f AccessDeniedHandlerFunc) OnAccessDenied(ex *Exchange, err error) error { return f(ex, err) }

// StatusAccessDeniedHandler responds 403 with an empty body.
func StatusAccessDeniedHandler() AccessDeniedHandler {
	return AccessDeniedHandlerFunc(func(ex *Exchange, _ error) error {
		ex.Response.WriteHeader(http.StatusForbidden)
		return nil
	})
}
