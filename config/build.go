package config

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/cache"
	"github.com/jonwraymond/webguard/credstore"
	"github.com/jonwraymond/webguard/filter"
	"github.com/jonwraymond/webguard/health"
	"github.com/jonwraymond/webguard/observe"
	_ "github.com/jonwraymond/webguard/policy" // registers the casbin authorizer
	"github.com/jonwraymond/webguard/resilience"
)

// Runtime is a built configuration.
type Runtime struct {
	Proxy    *filter.Proxy
	Health   *health.Aggregator
	Observer observe.Observer
	Logger   observe.Logger

	// Store is the SQL user store, nil when no credstore is configured.
	Store *credstore.Store
}

// Close shuts down telemetry and closes the user store.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Store != nil {
		errs = append(errs, rt.Store.Close())
	}
	if rt.Observer != nil {
		errs = append(errs, rt.Observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

type buildOptions struct {
	registry *auth.Registry
	observer observe.Observer
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithRegistry sets the component registry. Default: auth.DefaultRegistry.
func WithRegistry(r *auth.Registry) BuildOption {
	return func(o *buildOptions) { o.registry = r }
}

// WithObserver uses obs instead of creating one from the observe section.
// The Runtime still shuts it down on Close.
func WithObserver(obs observe.Observer) BuildOption {
	return func(o *buildOptions) { o.observer = obs }
}

// Build creates the proxy described by cfg in front of downstream.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg *Config, downstream http.Handler, opts ...BuildOption) (rt *Runtime, err error) {
	o := buildOptions{registry: auth.DefaultRegistry}
	for _, opt := range opts {
		opt(&o)
	}

	rt = &Runtime{
		Health: health.NewAggregator(health.AggregatorConfig{Timeout: cfg.Server.HealthTimeout}),
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, rt.Close(context.WithoutCancel(ctx)))
			rt = nil
		}
	}()

	rt.Observer = o.observer
	if rt.Observer == nil {
		if rt.Observer, err = observe.NewObserver(ctx, cfg.Observe); err != nil {
			return rt, fmt.Errorf("observe: %w", err)
		}
	}
	rt.Logger = rt.Observer.Logger()
	mw, err := observe.MiddlewareFromObserver(rt.Observer)
	if err != nil {
		return rt, err
	}

	if cfg.CredStore != nil {
		if rt.Store, err = openStore(ctx, cfg.CredStore, rt.Logger); err != nil {
			return rt, err
		}
		rt.Health.Register("credstore", rt.Store.HealthChecker())
	}

	var limiter *resilience.KeyedRateLimiter
	if cfg.FailureLimit != nil {
		limiter = resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.FailureLimit.Rate,
			Burst: cfg.FailureLimit.Burst,
		})
	}

	chains := make([]*filter.Chain, 0, len(cfg.Chains))
	for i, cc := range cfg.Chains {
		sc, err := buildChain(cc, cfg.AuthCache, rt.Store, o.registry)
		if err != nil {
			return rt, fmt.Errorf("chains[%d] (%s): %w", i, cc.Name, err)
		}
		if cc.FailureLimit {
			sc.FailureLimiter = limiter
		}
		chain, err := filter.NewSecurityChain(sc)
		if err != nil {
			return rt, fmt.Errorf("chains[%d] (%s): %w", i, cc.Name, err)
		}
		chains = append(chains, chain)
	}

	rt.Proxy = filter.NewProxy(downstream, chains, filter.WithMiddleware(mw))
	rt.Logger.Info(ctx, "security proxy built", observe.F("chains", len(chains)))
	return rt, nil
}

func openStore(ctx context.Context, cfg *CredStoreConfig, logger observe.Logger) (*credstore.Store, error) {
	var opts []credstore.Option
	if cfg.Breaker != nil {
		opts = append(opts, credstore.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Breaker.MaxFailures,
			ResetTimeout: cfg.Breaker.ResetTimeout,
			OnStateChange: func(from, to resilience.State) {
				logger.Warn(context.Background(), "credstore circuit state changed",
					observe.F("from", from.String()), observe.F("to", to.String()))
			},
		})))
	}

	if cfg.ConnectAttempts > 1 {
		opts = append(opts, credstore.WithConnectRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.ConnectAttempts,
			InitialDelay: cmp.Or(cfg.ConnectBackoff, 500*time.Millisecond),
			Jitter:       true,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				logger.Warn(ctx, "credstore not reachable, retrying",
					observe.F("attempt", attempt), observe.F("delay", delay.String()), observe.F("error", err))
			},
		})))
	}

	store, err := credstore.Open(ctx, cfg.DSN, opts...)
	if err != nil {
		return nil, fmt.Errorf("credstore: %w", err)
	}
	if cfg.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, errors.Join(fmt.Errorf("credstore: %w", err), store.Close())
		}
	}
	return store, nil
}

func buildChain(cc ChainConfig, cacheCfg AuthCacheConfig, store *credstore.Store, reg *auth.Registry) (filter.SecurityConfig, error) {
	sc := filter.SecurityConfig{
		Name:    cc.Name,
		Matcher: buildMatcher(cc.Match),
	}

	extractors := make(auth.FirstExtractor, 0, len(cc.Extractors))
	for _, name := range cc.Extractors {
		ext, err := reg.CreateExtractor(name, nil)
		if err != nil {
			return sc, err
		}
		extractors = append(extractors, ext)
	}
	sc.Extractor = extractors
	if len(extractors) == 1 {
		sc.Extractor = extractors[0]
	}

	authn, err := buildAuthenticator(cc.Authenticator, store, reg)
	if err != nil {
		return sc, err
	}
	if cacheCfg.TTL > 0 {
		c, err := cache.New[*auth.Identity](cacheCfg.Kind, cacheCfg.MaxEntries)
		if err != nil {
			return sc, err
		}
		policy := cache.Policy{TTL: cacheCfg.TTL, MaxEntries: cacheCfg.MaxEntries}
		if authn, err = cache.NewCachingAuthenticator(authn, policy, c, nil); err != nil {
			return sc, err
		}
	}
	sc.Authenticator = authn

	if sc.Authorizer, err = reg.CreateAuthorizer(cc.Authorizer.Type, cc.Authorizer.Config); err != nil {
		return sc, err
	}

	switch cc.EntryPoint.Type {
	case "bearer":
		sc.EntryPoint = filter.BearerEntryPoint{Realm: cc.EntryPoint.Realm}
	default:
		sc.EntryPoint = filter.BasicEntryPoint{Realm: cc.EntryPoint.Realm}
	}
	return sc, nil
}

func buildAuthenticator(cfg ComponentConfig, store *credstore.Store, reg *auth.Registry) (auth.Authenticator, error) {
	if cfg.Type != CredStoreAuthenticator {
		return reg.CreateAuthenticator(cfg.Type, cfg.Config)
	}
	if store == nil {
		return nil, errors.New("credstore authenticator without a credstore")
	}
	return reg.CreateAuthenticator("user_store", map[string]any{"store": store})
}

func buildMatcher(m MatchConfig) filter.Matcher {
	var matchers []filter.Matcher
	if len(m.Paths) > 0 {
		paths := make([]filter.Matcher, len(m.Paths))
		for i, p := range m.Paths {
			if strings.ContainsAny(p, "*?[") {
				paths[i] = filter.PathPattern(p)
			} else {
				paths[i] = filter.PathPrefix(p)
			}
		}
		matchers = append(matchers, filter.Or(paths...))
	}
	if len(m.Methods) > 0 {
		matchers = append(matchers, filter.Methods(m.Methods...))
	}
	if len(matchers) == 0 {
		return filter.AnyRequest()
	}
	return filter.And(matchers...)
}
