package credstore

import (
	"context"

	"github.com/jonwraymond/webguard/health"
	"github.com/jonwraymond/webguard/resilience"
)

// HealthChecker reports Unhealthy when the database does not answer a
// ping and Degraded while the lookup circuit breaker is not closed.
func (s *Store) HealthChecker() health.Checker {
	return health.NewCheckerFunc("credstore", func(ctx context.Context) health.Result {
		if err := s.Ping(ctx); err != nil {
			return health.Unhealthy("credential database unreachable", err)
		}

		details := map[string]any{"dialect": string(s.dialect)}
		if s.breaker == nil {
			return health.Healthy("credential database reachable").WithDetails(details)
		}

		m := s.breaker.Metrics()
		details["breaker"] = m.State.String()
		details["failures"] = m.Failures
		if m.State != resilience.StateClosed {
			return health.Degraded("credential lookups circuit " + m.State.String()).WithDetails(details)
		}
		return health.Healthy("credential database reachable").WithDetails(details)
	})
}
