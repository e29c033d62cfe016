package health

import (
	"context"
	"time"
)

// Status is the health of a component.
type Status int

const (
	// StatusHealthy means the component works normally.
	StatusHealthy Status = iota
	// StatusDegraded means the component works with reduced capacity.
	StatusDegraded
	// StatusUnhealthy means the component cannot serve requests.
	StatusUnhealthy
)

// String returns "healthy", "degraded" or "unhealthy".
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker reports the health of one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a named checker from fn.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the checker name.
func (f *CheckerFunc) Name() string { return f.name }

// Check calls the function.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// NewPingChecker reports Healthy when ping succeeds and Unhealthy with the
// ping error otherwise.
func NewPingChecker(name string, ping func(context.Context) error) *CheckerFunc {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if err := ping(ctx); err != nil {
			return Unhealthy(name+" unreachable", err)
		}
		return Healthy(name + " reachable")
	})
}
