package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestMiddleware_SuccessPath(t *testing.T) {
	tr, recorder := newRecordingTracer()
	metrics, reader := newRecordingMetrics(t)
	var logs bytes.Buffer
	mw := NewMiddleware(tr, metrics, NewLoggerWithWriter("info", &logs))

	meta := RequestMeta{ID: "r-1", Method: "GET", Path: "/", Chain: "default"}
	out, err := mw.Wrap(func(context.Context, RequestMeta) (Outcome, error) {
		return Outcome{Status: 200, Principal: "user"}, nil
	})(context.Background(), meta)
	if err != nil {
		t.Fatalf("wrapped() error = %v", err)
	}
	if out.Status != 200 || out.Principal != "user" {
		t.Errorf("outcome = %+v", out)
	}

	if n := len(recorder.Ended()); n != 1 {
		t.Fatalf("expected 1 span, got %d", n)
	}
	if got := sumOf(t, collect(t, reader), MetricRequestsTotal); got != 1 {
		t.Errorf("%s = %d, want 1", MetricRequestsTotal, got)
	}

	entry := decodeLines(t, &logs)[0]
	if entry["msg"] != "request completed" || entry["principal"] != "user" || entry["chain"] != "default" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	tr, recorder := newRecordingTracer()
	metrics, reader := newRecordingMetrics(t)
	var logs bytes.Buffer
	mw := NewMiddleware(tr, metrics, NewLoggerWithWriter("info", &logs))

	testErr := errors.New("user store unavailable")
	_, err := mw.Wrap(func(context.Context, RequestMeta) (Outcome, error) {
		return Outcome{Status: 500}, testErr
	})(context.Background(), RequestMeta{Method: "GET", Path: "/"})

	if !errors.Is(err, testErr) {
		t.Errorf("wrapped() error = %v, want %v", err, testErr)
	}
	if !spanAttrs(recorder.Ended()[0])["security.error"].AsBool() {
		t.Error("expected security.error=true")
	}
	if got := sumOf(t, collect(t, reader), MetricRequestErrors); got != 1 {
		t.Errorf("%s = %d, want 1", MetricRequestErrors, got)
	}
	entry := decodeLines(t, &logs)[0]
	if entry["level"] != "error" || entry["error"] != testErr.Error() {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestMiddleware_PropagatesContext(t *testing.T) {
	mw := NopMiddleware()

	type ctxKey string
	key := ctxKey("k")
	var got any

	_, _ = mw.Wrap(func(ctx context.Context, _ RequestMeta) (Outcome, error) {
		got = ctx.Value(key)
		return Outcome{}, nil
	})(context.WithValue(context.Background(), key, "v"), RequestMeta{})

	if got != "v" {
		t.Errorf("context value = %v, want v", got)
	}
}

func TestMiddleware_SpanInContext(t *testing.T) {
	tr, recorder := newRecordingTracer()
	mw := NewMiddleware(tr, nil, nil)

	var sawSpan bool
	_, _ = mw.Wrap(func(ctx context.Context, _ RequestMeta) (Outcome, error) {
		_, inner := tr.StartSpan(ctx, RequestMeta{Path: "/inner"})
		tr.EndSpan(inner, Outcome{}, nil)
		sawSpan = true
		return Outcome{}, nil
	})(context.Background(), RequestMeta{Path: "/"})

	spans := recorder.Ended()
	if !sawSpan || len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("wrapped function should run inside the request span")
	}
}

func TestNewMiddleware_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	if mw.Metrics() == nil || mw.Logger() == nil {
		t.Fatal("nil components should be replaced with no-ops")
	}
}
