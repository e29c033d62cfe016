package observe

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names.
const (
	MetricRequestsTotal   = "webguard.requests.total"
	MetricRequestErrors   = "webguard.requests.errors"
	MetricRequestDuration = "webguard.requests.duration_ms"
	MetricAuthDecisions   = "webguard.auth.decisions"
)

// Metrics records request and security decision metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one handled request.
	RecordRequest(ctx context.Context, meta RequestMeta, out Outcome, duration time.Duration, err error)

	// RecordDecision records the outcome of a chain stage, for example
	// ("authentication", "failure") or ("authorization", "deny").
	RecordDecision(ctx context.Context, stage, outcome string)
}

type metricsImpl struct {
	totalCount    metric.Int64Counter
	errorCount    metric.Int64Counter
	durationHist  metric.Float64Histogram
	decisionCount metric.Int64Counter
}

// NewMetrics creates the request instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		MetricRequestsTotal,
		metric.WithDescription("Total number of requests handled by the security proxy"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricRequestErrors,
		metric.WithDescription("Requests that ended in an unhandled error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricRequestDuration,
		metric.WithDescription("Request handling duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	decisionCount, err := meter.Int64Counter(
		MetricAuthDecisions,
		metric.WithDescription("Authentication and authorization outcomes"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:    totalCount,
		errorCount:    errorCount,
		durationHist:  durationHist,
		decisionCount: decisionCount,
	}, nil
}

func (m *metricsImpl) RecordRequest(ctx context.Context, meta RequestMeta, out Outcome, duration time.Duration, err error) {
	attrs := meta.MetricAttributes()
	if out.Status != 0 {
		attrs = append(attrs, attribute.Int("http.status_code", out.Status))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil || out.Status >= http.StatusInternalServerError {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordDecision(ctx context.Context, stage, outcome string) {
	m.decisionCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("security.stage", stage),
		attribute.String("security.outcome", outcome),
	))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

type nopMetrics struct{}

func (nopMetrics) RecordRequest(context.Context, RequestMeta, Outcome, time.Duration, error) {}
func (nopMetrics) RecordDecision(context.Context, string, string)                            {}
