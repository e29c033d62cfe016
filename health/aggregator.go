package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds a CheckAll run.
	// Default: 10 seconds
	Timeout time.Duration

	// Sequential runs checks one after another instead of concurrently.
	Sequential bool
}

// Aggregator runs a set of named checkers and combines their results.
// It is safe for concurrent use.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates an empty aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Aggregator{
		config:   cfg,
		checkers: make(map[string]Checker),
	}
}

// Register adds or replaces the checker registered under name.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// Unregister removes the checker registered under name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.checkers, name)
	a.order = slices.DeleteFunc(a.order, func(n string) bool { return n == name })
}

// CheckerNames returns the registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// Check runs the checker registered under name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every registered checker and returns the results by name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	names := slices.Clone(a.order)
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = a.checkers[name]
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	if a.config.Sequential {
		for i, c := range checkers {
			results[i] = runCheck(ctx, c)
		}
	} else {
		var g errgroup.Group
		for i, c := range checkers {
			g.Go(func() error {
				results[i] = runCheck(ctx, c)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := make(map[string]Result, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}

// OverallStatus returns the worst status in results. No results is healthy.
func OverallStatus(results map[string]Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		overall = max(overall, r.Status)
	}
	return overall
}

// runCheck runs checker and gives up when ctx ends, even if the checker
// ignores cancellation.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		r := checker.Check(ctx)
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		done <- r
	}()

	select {
	case r := <-done:
		r.Duration = time.Since(start)
		return r
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}
