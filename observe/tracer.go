package observe

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SpanName is the name of the span covering one proxied request.
const SpanName = "webguard.request"

// RequestMeta describes a request passing through the security proxy.
type RequestMeta struct {
	ID     string // Request identifier
	Method string // HTTP method
	Path   string // URL path; recorded on spans only
	Chain  string // Name of the matched filter chain; empty when none matched
}

// Attributes returns the span attributes for the request.
func (m RequestMeta) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", m.Method),
		attribute.String("url.path", m.Path),
	}
	if m.Chain != "" {
		attrs = append(attrs, attribute.String("security.chain", m.Chain))
	}
	return attrs
}

// MetricAttributes returns the bounded attribute set used on request
// metrics. The path is left out, methods outside the standard set become
// "_OTHER" and unmatched requests report the chain "none".
func (m RequestMeta) MetricAttributes() []attribute.KeyValue {
	method := m.Method
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
	default:
		method = "_OTHER"
	}
	chain := m.Chain
	if chain == "" {
		chain = "none"
	}
	return []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("security.chain", chain),
	}
}

// Outcome is what the proxy reports back once a request has been handled.
type Outcome struct {
	Status    int    // HTTP status written, 0 if nothing was written
	Principal string // Authenticated principal, empty if none
}

// Tracer wraps OpenTelemetry tracing with request span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, out Outcome, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	attrs := append(meta.Attributes(), attribute.Bool("security.error", false))
	if meta.ID != "" {
		attrs = append(attrs, attribute.String("request.id", meta.ID))
	}
	return t.tracer.Start(ctx, SpanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// EndSpan records the response status and principal, then ends the span.
// Server errors and returned errors mark the span as failed.
func (t *tracerImpl) EndSpan(span trace.Span, out Outcome, err error) {
	if out.Status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", out.Status))
	}
	if out.Principal != "" {
		span.SetAttributes(attribute.String("security.principal", out.Principal))
	}

	switch {
	case err != nil:
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("security.error", true))
		span.RecordError(err)
	case out.Status >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, http.StatusText(out.Status))
		span.SetAttributes(attribute.Bool("security.error", true))
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer that records nothing.
func NopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
