package filter

import (
	"errors"

	"github.com/jonwraymond/webguard/auth"
)

// ExceptionTranslationFilter turns security errors returned by later
// stages into responses:
//
//   - authentication errors start the entry point (401)
//   - denials for requests with no identity, or an anonymous one, also
//     start the entry point, so unauthenticated callers get a challenge
//   - denials for authenticated identities go to the access denied
//     handler (403)
//
// Any other error is returned unchanged.
type ExceptionTranslationFilter struct {
	entryPoint   EntryPoint
	accessDenied AccessDeniedHandler
}

// NewExceptionTranslationFilter creates the filter. Nil arguments default
// to BasicEntryPoint and StatusAccessDeniedHandler.
func NewExceptionTranslationFilter(entryPoint EntryPoint, accessDenied AccessDeniedHandler) *ExceptionTranslationFilter {
	if entryPoint == nil {
		entryPoint = BasicEntryPoint{}
	}
	if accessDenied == nil {
		accessDenied = StatusAccessDeniedHandler()
	}
	return &ExceptionTranslationFilter{entryPoint: entryPoint, accessDenied: accessDenied}
}

// Filter implements Filter.
func (f *ExceptionTranslationFilter) Filter(ex *Exchange, next Next) error {
	err := next(ex)
	if err == nil || ex.Response.Committed() || ex.Context().Err() != nil {
		return err
	}

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		ex.setState(StateDenied)
		return f.entryPoint.Commence(ex, err)

	case errors.Is(err, auth.ErrForbidden):
		ex.setState(StateDenied)
		if ex.Identity().IsAnonymous() {
			return f.entryPoint.Commence(ex, &AuthenticationError{Err: err})
		}
		return f.accessDenied.OnAccessDenied(ex, err)
	}

	return err
}
