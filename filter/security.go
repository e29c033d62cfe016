package filter

import (
	"errors"

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/resilience"
)

// ErrNoAuthenticator is returned by NewSecurityChain when no authenticator is configured.
var ErrNoAuthenticator = errors.New("filter: authenticator is required")

// SecurityConfig describes a standard security chain.
type SecurityConfig struct {
	// Name identifies the chain in logs and telemetry. Default: "default".
	Name string

	// Matcher selects the requests the chain applies to. Default: all.
	Matcher Matcher

	// Extractor reads credentials. Default: auth.BasicExtractor.
	Extractor auth.CredentialExtractor

	// Authenticator resolves credentials. Required.
	Authenticator auth.Authenticator

	// Authorizer decides access. Default: auth.AuthenticatedAuthorizer.
	Authorizer auth.Authorizer

	// EntryPoint issues challenges. Default: BasicEntryPoint with DefaultRealm.
	EntryPoint EntryPoint

	// FailureHandler answers rejected credentials. Default: EntryPoint.
	FailureHandler FailureHandler

	// AccessDeniedHandler answers denied authenticated requests. Default: 403.
	AccessDeniedHandler AccessDeniedHandler

	// FailureLimiter, when set, throttles repeated authentication failures.
	FailureLimiter *resilience.KeyedRateLimiter
}

// NewSecurityChain builds the chain
// [FailureLimit], Authentication, ExceptionTranslation, Authorization.
func NewSecurityChain(cfg SecurityConfig) (*Chain, error) {
	if cfg.Authenticator == nil {
		return nil, ErrNoAuthenticator
	}
	if cfg.Extractor == nil {
		cfg.Extractor = auth.BasicExtractor{}
	}
	if cfg.Authorizer == nil {
		cfg.Authorizer = auth.AuthenticatedAuthorizer{}
	}
	if cfg.EntryPoint == nil {
		cfg.EntryPoint = BasicEntryPoint{Realm: DefaultRealm}
	}
	if cfg.FailureHandler == nil {
		cfg.FailureHandler = EntryPointFailureHandler(cfg.EntryPoint)
	}

	var filters []Filter
	if cfg.FailureLimiter != nil {
		filters = append(filters, NewFailureLimitFilter(cfg.FailureLimiter, nil))
	}
	filters = append(filters,
		NewAuthenticationFilter(cfg.Extractor, cfg.Authenticator, cfg.FailureHandler),
		NewExceptionTranslationFilter(cfg.EntryPoint, cfg.AccessDeniedHandler),
		NewAuthorizationFilter(cfg.Authorizer),
	)

	chain := NewChain(cfg.Matcher, filters...)
	if cfg.Name != "" {
		chain = chain.WithName(cfg.Name)
	}
	return chain, nil
}
