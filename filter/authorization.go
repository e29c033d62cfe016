package filter

import (
	"fmt"

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/observe"
)

// AuthorizationFilter asks an authorizer whether the current identity may
// perform the request. A denial is returned as an *auth.AuthzError for
// ExceptionTranslationFilter to answer; the downstream handler never runs.
type AuthorizationFilter struct {
	authorizer auth.Authorizer
}

// NewAuthorizationFilter creates an authorization filter.
func NewAuthorizationFilter(authorizer auth.Authorizer) *AuthorizationFilter {
	return &AuthorizationFilter{authorizer: authorizer}
}

// Filter implements Filter.
func (f *AuthorizationFilter) Filter(ex *Exchange, next Next) error {
	req := &auth.AuthzRequest{
		Subject:  ex.Identity(),
		Resource: ex.Request.URL.Path,
		Action:   ex.Request.Method,
	}

	if err := f.authorizer.Authorize(ex.Context(), req); err != nil {
		if !auth.IsDenied(err) {
			return fmt.Errorf("authorize: %w", err)
		}
		ex.setState(StateDenied)
		ex.record("authorization", auth.Deny.String())
		ex.Logger().Info(ex.Context(), "access denied",
			observe.F("authorizer", auth.NameOf(f.authorizer)),
			observe.F("reason", err),
		)
		return err
	}

	ex.setState(StateAuthorized)
	ex.record("authorization", auth.Allow.String())
	return next(ex)
}
