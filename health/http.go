package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler answers 200 "OK" while the process serves requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler runs every check and answers "OK", "DEGRADED" (both
// 200) or "UNHEALTHY" (503).
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := OverallStatus(agg.CheckAll(ctx))

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(httpStatus(status))
		switch status {
		case StatusHealthy:
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// Report is the JSON body of the detailed endpoint.
type Report struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckReport `json:"checks,omitempty"`
}

// CheckReport is the JSON form of one Result.
type CheckReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func reportOf(r Result) CheckReport {
	cr := CheckReport{
		Status:   r.Status.String(),
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		cr.Error = r.Error.Error()
	}
	return cr
}

// DetailedHandler answers with a JSON Report of every check.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		results := agg.CheckAll(ctx)
		status := OverallStatus(results)

		report := Report{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckReport, len(results)),
		}
		for name, result := range results {
			report.Checks[name] = reportOf(result)
		}
		writeJSON(w, httpStatus(status), report)
	}
}

// SingleCheckHandler answers with the JSON CheckReport of the check named
// by the {name} path value, or 404.
func SingleCheckHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		result, err := agg.Check(ctx, r.PathValue("name"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, httpStatus(result.Status), reportOf(result))
	}
}

// RegisterHandlers mounts the health endpoints on mux.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator) {
	mux.HandleFunc("GET /healthz", LivenessHandler())
	mux.HandleFunc("GET /readyz", ReadinessHandler(agg))
	mux.HandleFunc("GET /health", DetailedHandler(agg))
	mux.HandleFunc("GET /health/{name}", SingleCheckHandler(agg))
}

func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
