package health

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func staticChecker(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()
	if agg.config.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", agg.config.Timeout)
	}
	if agg.config.Sequential {
		t.Error("checks should run concurrently by default")
	}

	agg = NewAggregator(AggregatorConfig{Sequential: true})
	if agg.config.Timeout != 10*time.Second || !agg.config.Sequential {
		t.Errorf("config = %+v", agg.config)
	}
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register("b", staticChecker("b", Healthy("")))
	agg.Register("a", staticChecker("a", Healthy("")))
	agg.Register("c", staticChecker("c", Healthy("")))
	agg.Register("b", staticChecker("b", Degraded("")))
	agg.Unregister("a")

	if got := agg.CheckerNames(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("CheckerNames() = %v, want [b c]", got)
	}

	r, err := agg.Check(context.Background(), "b")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != StatusDegraded {
		t.Errorf("replaced checker Status = %v, want degraded", r.Status)
	}

	if _, err := agg.Check(context.Background(), "a"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(a) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	for _, sequential := range []bool{false, true} {
		agg := NewAggregator(AggregatorConfig{Sequential: sequential})

		var calls atomic.Int32
		counted := func(name string, r Result) Checker {
			return NewCheckerFunc(name, func(context.Context) Result {
				calls.Add(1)
				return r
			})
		}
		agg.Register("credstore", counted("credstore", Healthy("ok")))
		agg.Register("tokens", counted("tokens", Degraded("slow")))

		results := agg.CheckAll(context.Background())
		if len(results) != 2 || calls.Load() != 2 {
			t.Fatalf("sequential=%v: results = %d, calls = %d", sequential, len(results), calls.Load())
		}
		if results["tokens"].Status != StatusDegraded {
			t.Errorf("tokens = %v, want degraded", results["tokens"].Status)
		}
		if OverallStatus(results) != StatusDegraded {
			t.Errorf("OverallStatus = %v, want degraded", OverallStatus(results))
		}
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	release := make(chan struct{})
	defer close(release)

	agg.Register("stuck", NewCheckerFunc("stuck", func(context.Context) Result {
		<-release
		return Healthy("")
	}))

	r := agg.CheckAll(context.Background())["stuck"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("Result = %+v, want timeout", r)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
