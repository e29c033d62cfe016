// Package exporters builds OpenTelemetry span exporters and metric readers
// by name.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrEndpointNotConfigured indicates a required endpoint environment variable is not set.
var ErrEndpointNotConfigured = errors.New("observe: endpoint not configured")

// TracingExporters lists the accepted tracing exporter names.
var TracingExporters = []string{"otlp", "stdout", "none", ""}

// MetricsExporters lists the accepted metrics exporter names.
var MetricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}

type options struct {
	writer     io.Writer
	registerer prometheus.Registerer
}

// Option configures exporter construction.
type Option func(*options)

// WithWriter sets the destination of the stdout exporters.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithRegisterer sets the Prometheus registerer the prometheus reader
// registers its collector with.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

func buildOptions(opts []Option) options {
	o := options{writer: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func otlpEndpoint(signal string) error {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" || os.Getenv("OTEL_EXPORTER_OTLP_"+signal+"_ENDPOINT") != "" {
		return nil
	}
	return fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_%s_ENDPOINT", ErrEndpointNotConfigured, signal)
}

// NewTracingExporter creates a span exporter: stdout, otlp or none.
// "none" and "" return a nil exporter.
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	o := buildOptions(opts)
	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(o.writer))
	case "otlp":
		if err := otlpEndpoint("TRACES"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown exporter: %q", name)
	}
}

// NewMetricsReader creates a metrics reader: stdout, otlp, prometheus or none.
// "none" and "" return a nil reader.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	o := buildOptions(opts)
	switch name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.writer))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "otlp":
		if err := otlpEndpoint("METRICS"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "prometheus":
		var promOpts []otelprom.Option
		if o.registerer != nil {
			promOpts = append(promOpts, otelprom.WithRegisterer(o.registerer))
		}
		exp, err := otelprom.New(promOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		return exp, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", name)
	}
}
