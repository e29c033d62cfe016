// Package resilience provides the protective primitives the security chain
// relies on.
//
//   - KeyedRateLimiter: a token bucket per key (client address, username)
//     used to throttle repeated authentication failures.
//
//   - CircuitBreaker: stops calling a failing credential store after a
//     threshold and probes it again after a cooldown.
//
//   - Retry: exponential backoff for connecting to a credential store that
//     is still starting.
//
// Usage:
//
//	limiter := resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
//	    Rate:  0.1, // one failure forgiven every ten seconds
//	    Burst: 5,
//	})
//	if limiter.Blocked(clientIP) {
//	    // reject with 429
//	}
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	})
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return db.PingContext(ctx)
//	})
package resilience
