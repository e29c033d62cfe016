package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed lets calls through and counts failures.
	StateClosed State = iota
	// StateOpen rejects calls until the reset timeout elapses.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of concurrent probes allowed.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called with the breaker lock held; it must not call
	// back into the breaker.
	OnStateChange func(from, to State)

	// IsFailure decides whether an error counts against the circuit.
	// Default: any error except context cancellation.
	IsFailure func(err error) bool

	// Now overrides the clock. Tests only.
	Now func() time.Time
}

// CircuitBreaker guards calls to a dependency that may fail persistently,
// such as a credential database.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	inFlight  int
	lastError time.Time
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{config: config}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Execute runs op unless the circuit is open, in which case it returns
// ErrCircuitOpen without calling op.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	probe, err := cb.acquire()
	if err != nil {
		return err
	}
	err = op(ctx)
	cb.release(probe, err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// Reset closes the circuit and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.inFlight = 0
	cb.transitionLocked(StateClosed)
}

// Metrics returns current circuit breaker statistics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerMetrics{
		State:       cb.stateLocked(),
		Failures:    cb.failures,
		LastFailure: cb.lastError,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	Failures    int
	LastFailure time.Time
}

func (cb *CircuitBreaker) acquire() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case StateOpen:
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if cb.inFlight >= cb.config.HalfOpenMaxRequests {
			return false, ErrCircuitOpen
		}
		cb.inFlight++
		return true, nil
	default:
		return false, nil
	}
}

func (cb *CircuitBreaker) release(probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.inFlight--
	}
	failed := cb.config.IsFailure(err)
	if failed {
		cb.lastError = cb.config.Now()
	}

	switch cb.state {
	case StateClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.openLocked()
		}
	case StateHalfOpen:
		if !probe {
			return
		}
		if failed {
			cb.openLocked()
			return
		}
		cb.failures = 0
		cb.transitionLocked(StateClosed)
	}
}

func (cb *CircuitBreaker) openLocked() {
	cb.openedAt = cb.config.Now()
	cb.inFlight = 0
	cb.transitionLocked(StateOpen)
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.inFlight = 0
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	cb.state = to
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}
