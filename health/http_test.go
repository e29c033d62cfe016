package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestMux(checks map[string]Result) *http.ServeMux {
	agg := NewAggregator()
	for name, r := range checks {
		agg.Register(name, staticChecker(name, r))
	}
	mux := http.NewServeMux()
	RegisterHandlers(mux, agg)
	return mux
}

func TestHandlers(t *testing.T) {
	unhealthy := Unhealthy("store down", errors.New("dial tcp: connection refused"))

	tests := []struct {
		name       string
		checks     map[string]Result
		path       string
		wantStatus int
		wantBody   string
	}{
		{"liveness", map[string]Result{"db": unhealthy}, "/healthz", http.StatusOK, "OK"},
		{"ready", map[string]Result{"db": Healthy("")}, "/readyz", http.StatusOK, "OK"},
		{"ready degraded", map[string]Result{"db": Degraded("")}, "/readyz", http.StatusOK, "DEGRADED"},
		{"not ready", map[string]Result{"db": unhealthy}, "/readyz", http.StatusServiceUnavailable, "UNHEALTHY"},
		{"ready without checks", nil, "/readyz", http.StatusOK, "OK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestMux(tt.checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	mux := newTestMux(map[string]Result{
		"credstore": Unhealthy("store down", errors.New("connection refused")),
		"limiter":   Healthy("ok").WithDetails(map[string]any{"clients": 2}),
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Status != "unhealthy" || len(report.Checks) != 2 {
		t.Fatalf("report = %+v", report)
	}
	if got := report.Checks["credstore"].Error; got != "connection refused" {
		t.Errorf("credstore error = %q", got)
	}
	if got := report.Checks["limiter"].Details["clients"]; got != float64(2) {
		t.Errorf("limiter details = %v", report.Checks["limiter"].Details)
	}
}

func TestSingleCheckHandler(t *testing.T) {
	mux := newTestMux(map[string]Result{"credstore": Degraded("breaker open")})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/credstore", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var cr CheckReport
	if err := json.NewDecoder(rec.Body).Decode(&cr); err != nil {
		t.Fatal(err)
	}
	if cr.Status != "degraded" || cr.Message != "breaker open" {
		t.Errorf("report = %+v", cr)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing check status = %d, want 404", rec.Code)
	}
}
