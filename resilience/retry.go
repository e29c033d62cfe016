package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts is the number of attempts including the first.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the wait before the second attempt. Later waits
	// double up to MaxDelay.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps a single wait.
	// Default: 5s
	MaxDelay time.Duration

	// Jitter adds up to 25% to each wait.
	Jitter bool

	// RetryIf decides whether an error is worth another attempt.
	// Default: any error except context cancellation.
	RetryIf func(err error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry runs an operation until it succeeds or attempts run out, backing
// off exponentially between attempts.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a Retry.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.RetryIf == nil {
		config.RetryIf = defaultIsFailure
	}
	return &Retry{config: config}
}

// Execute runs op. When every attempt fails the last error is returned
// wrapped in ErrMaxRetriesExceeded; an error RetryIf rejects is returned
// as is.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt, err)
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Retry) delay(attempt int) time.Duration {
	d := r.config.InitialDelay
	for i := 1; i < attempt && d < r.config.MaxDelay; i++ {
		d *= 2
	}
	d = min(d, r.config.MaxDelay)
	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}
