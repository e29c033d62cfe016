package filter

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/observe"
)

// State is the progress of an exchange through the security chain.
type State int

const (
	// StateUnauthenticated is the initial state: no identity established.
	StateUnauthenticated State = iota
	// StateAuthenticated means credentials were verified and an identity bound.
	StateAuthenticated
	// StateAuthorized means the authorizer allowed the request.
	StateAuthorized
	// StateDenied means authentication failed or authorization denied.
	StateDenied
	// StateResponded means a response has been committed.
	StateResponded
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthorized:
		return "authorized"
	case StateDenied:
		return "denied"
	case StateResponded:
		return "responded"
	default:
		return "unknown"
	}
}

// Exchange is one request/response pair travelling through a chain.
// It is owned by a single request and must not be shared.
type Exchange struct {
	// Request is the current request. Filters that derive a new context
	// replace it with Request.WithContext.
	Request *http.Request

	// Response tracks whether anything has been written.
	Response *ResponseWriter

	id         string
	state      State
	authFailed bool
	logger     observe.Logger
	metrics    observe.Metrics
}

// NewExchange wraps w and r. The request ID is taken from the X-Request-Id
// header when present, otherwise generated.
func NewExchange(w http.ResponseWriter, r *http.Request) *Exchange {
	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w)
	}
	id := r.Header.Get("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}
	return &Exchange{
		Request:  r,
		Response: rw,
		id:       id,
		logger:   observe.NopLogger(),
		metrics:  observe.NopMetrics(),
	}
}

// ID returns the request identifier.
func (ex *Exchange) ID() string { return ex.id }

// Context returns the request context.
func (ex *Exchange) Context() context.Context { return ex.Request.Context() }

// Identity returns the identity bound to the request, or nil.
func (ex *Exchange) Identity() *auth.Identity {
	return auth.IdentityFromContext(ex.Context())
}

// State returns the current chain state.
func (ex *Exchange) State() State {
	if ex.Response.Committed() {
		return StateResponded
	}
	return ex.state
}

// AuthenticationFailed reports whether credentials were presented and rejected.
func (ex *Exchange) AuthenticationFailed() bool { return ex.authFailed }

// Logger returns the request-scoped logger.
func (ex *Exchange) Logger() observe.Logger { return ex.logger }

// WithContext replaces the request with one carrying ctx.
func (ex *Exchange) WithContext(ctx context.Context) {
	ex.Request = ex.Request.WithContext(ctx)
}

func (ex *Exchange) setState(s State) { ex.state = s }

func (ex *Exchange) instrument(logger observe.Logger, metrics observe.Metrics) {
	ex.logger = logger.With(observe.F("request_id", ex.id))
	ex.metrics = metrics
}

func (ex *Exchange) record(stage, outcome string) {
	ex.metrics.RecordDecision(ex.Context(), stage, outcome)
}

// ResponseWriter records the status of the response written through it.
type ResponseWriter struct {
	http.ResponseWriter
	status int
}

// NewResponseWriter wraps w.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w}
}

// WriteHeader records the status and forwards it once.
func (w *ResponseWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Write commits a 200 status if none was written.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Status returns the committed status, or 0.
func (w *ResponseWriter) Status() int { return w.status }

// Committed reports whether the status line has been written.
func (w *ResponseWriter) Committed() bool { return w.status != 0 }

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Flush commits the response and flushes it when the underlying writer supports it.
func (w *ResponseWriter) Flush() {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
