package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last error once Retry gives up.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrRateLimitExceeded reports that a key has no tokens left.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")
)
