package observe

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid",
			cfg: Config{
				ServiceName: "webguard",
				Version:     "1.0.0",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
				Logging:     LoggingConfig{Enabled: true, Level: "info"},
			},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "unknown tracing exporter",
			cfg:     Config{ServiceName: "webguard", Tracing: TracingConfig{Enabled: true, Exporter: "jaeger"}},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name:    "unknown metrics exporter",
			cfg:     Config{ServiceName: "webguard", Metrics: MetricsConfig{Enabled: true, Exporter: "badvalue"}},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name:    "sample pct too high",
			cfg:     Config{ServiceName: "webguard", Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.5}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "sample pct negative",
			cfg:     Config{ServiceName: "webguard", Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: -0.1}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "unknown log level",
			cfg:     Config{ServiceName: "webguard", Logging: LoggingConfig{Enabled: true, Level: "loud"}},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "disabled sections are not validated",
			cfg:  Config{ServiceName: "webguard", Tracing: TracingConfig{Exporter: "bogus"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_DisabledNoop(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "webguard"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("disabled observer should still return usable no-op components")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	cfg := Config{
		ServiceName: "webguard",
		Version:     "1.0.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "error"},
		Registerer:  prometheus.NewRegistry(),
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	_, _ = mw.Wrap(func(context.Context, RequestMeta) (Outcome, error) {
		return Outcome{Status: 200}, nil
	})(context.Background(), RequestMeta{Method: "GET", Path: "/"})

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("NewObserver() error = %v, want ErrMissingServiceName", err)
	}
}

func TestNewObserver_OTLPWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	_, err := NewObserver(context.Background(), Config{
		ServiceName: "webguard",
		Tracing:     TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 1},
	})
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("NewObserver() error = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestMiddlewareFromObserver_Nil(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("MiddlewareFromObserver(nil) error = %v, want ErrNilObserver", err)
	}
}
