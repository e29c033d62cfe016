package exporters

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewTracingExporter(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantNil bool
		wantErr error
		errText string
	}{
		{name: "stdout"},
		{name: "none", wantNil: true},
		{name: "", wantNil: true},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": ""}, wantErr: ErrEndpointNotConfigured},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": "http://localhost:4317"}},
		{name: "jaeger", errText: "unknown exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			exp, err := NewTracingExporter(context.Background(), tt.name, WithWriter(&bytes.Buffer{}))
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.errText != "":
				if err == nil || !strings.Contains(err.Error(), tt.errText) {
					t.Errorf("error = %v, want %q", err, tt.errText)
				}
				return
			case err != nil:
				t.Fatalf("error = %v", err)
			}
			if (exp == nil) != tt.wantNil {
				t.Errorf("exporter nil = %v, want %v", exp == nil, tt.wantNil)
			}
		})
	}
}

func TestNewMetricsReader(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantNil bool
		wantErr error
		errText string
	}{
		{name: "stdout"},
		{name: "prometheus"},
		{name: "none", wantNil: true},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT": ""}, wantErr: ErrEndpointNotConfigured},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://localhost:4317"}},
		{name: "statsd", errText: "unknown metrics exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			reader, err := NewMetricsReader(context.Background(), tt.name,
				WithWriter(&bytes.Buffer{}),
				WithRegisterer(prometheus.NewRegistry()),
			)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.errText != "":
				if err == nil || !strings.Contains(err.Error(), tt.errText) {
					t.Errorf("error = %v, want %q", err, tt.errText)
				}
				return
			case err != nil:
				t.Fatalf("error = %v", err)
			}
			if (reader == nil) != tt.wantNil {
				t.Errorf("reader nil = %v, want %v", reader == nil, tt.wantNil)
			}
		})
	}
}
