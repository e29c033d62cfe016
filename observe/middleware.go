package observe

import (
	"context"
	"time"
)

// HandleFunc is the signature of request handling that Middleware wraps.
// It reports what was written and returns any unhandled error.
type HandleFunc func(ctx context.Context, meta RequestMeta) (Outcome, error)

// Middleware wraps request handling with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a HandleFunc safe for concurrent use.
//   - Context: the wrapped function receives a context carrying the request span.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Metrics returns the metrics recorder.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap wraps fn with a request span, request metrics and a completion log line.
func (m *Middleware) Wrap(fn HandleFunc) HandleFunc {
	return func(ctx context.Context, meta RequestMeta) (Outcome, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		out, err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, out, err)
		m.metrics.RecordRequest(ctx, meta, out, duration, err)

		fields := []Field{
			F("request_id", meta.ID),
			F("method", meta.Method),
			F("path", meta.Path),
			F("status", out.Status),
			F("duration_ms", float64(duration.Microseconds())/1000),
		}
		if meta.Chain != "" {
			fields = append(fields, F("chain", meta.Chain))
		}
		if out.Principal != "" {
			fields = append(fields, F("principal", out.Principal))
		}

		if err != nil {
			fields = append(fields, F("error", err))
			m.logger.Error(ctx, "request failed", fields...)
		} else {
			m.logger.Info(ctx, "request completed", fields...)
		}

		return out, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
