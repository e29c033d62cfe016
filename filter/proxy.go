package filter

import (
	"context"
	"net/http"
	"slices"

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/observe"
)

// Proxy is an http.Handler that routes each request through the first
// matching Chain before the downstream handler. Requests no chain matches
// reach the downstream handler directly.
//
// Exactly one response is produced per request: if an error escapes the
// chain and nothing has been written, the proxy writes a 500, unless the
// request was cancelled, in which case nothing is written.
type Proxy struct {
	chains     []*Chain
	downstream Next
	mw         *observe.Middleware
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithMiddleware instruments the proxy with tracing, metrics and logging.
func WithMiddleware(mw *observe.Middleware) ProxyOption {
	return func(p *Proxy) {
		if mw != nil {
			p.mw = mw
		}
	}
}

// NewProxy creates a proxy in front of downstream. Chains are tried in order.
func NewProxy(downstream http.Handler, chains []*Chain, opts ...ProxyOption) *Proxy {
	p := &Proxy{
		chains:     slices.Clone(chains),
		downstream: Terminal(downstream),
		mw:         observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chains returns a copy of the proxy's chains.
func (p *Proxy) Chains() []*Chain { return slices.Clone(p.chains) }

// Match returns the first chain that matches r, or nil.
func (p *Proxy) Match(r *http.Request) *Chain {
	for _, c := range p.chains {
		if c.Matcher().Matches(r) {
			return c
		}
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ex := NewExchange(w, r)
	chain := p.Match(r)

	meta := observe.RequestMeta{ID: ex.ID(), Method: r.Method, Path: r.URL.Path}
	logger := p.mw.Logger()
	if chain != nil {
		meta.Chain = chain.Name()
		logger = logger.With(observe.F("chain", chain.Name()))
	}
	ex.instrument(logger, p.mw.Metrics())

	handle := p.mw.Wrap(func(ctx context.Context, _ observe.RequestMeta) (observe.Outcome, error) {
		ex.WithContext(ctx)

		var err error
		if chain == nil {
			err = p.downstream(ex)
		} else {
			err = chain.Process(ex, p.downstream)
		}
		if err != nil && !ex.Response.Committed() && ex.Context().Err() == nil {
			ex.Response.WriteHeader(http.StatusInternalServerError)
		}

		return observe.Outcome{
			Status:    ex.Response.Status(),
			Principal: auth.PrincipalFromContext(ex.Context()),
		}, err
	})

	_, _ = handle(r.Context(), meta)
}

var _ http.Handler = (*Proxy)(nil)
