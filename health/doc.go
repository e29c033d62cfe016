// Package health reports whether webguard's collaborators, such as the
// credential store, are usable.
//
// A Checker reports a Status: Healthy, Degraded or Unhealthy. An
// Aggregator runs a set of named checkers under one deadline and folds
// their results into an overall status.
//
//	agg := health.NewAggregator()
//	agg.Register("credstore", store.HealthChecker())
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// The handlers are meant to be mounted outside the security chain so that
// orchestrators can probe them without credentials:
//
//	GET /healthz         liveness, always 200 while the process serves
//	GET /readyz          200 unless a check is unhealthy, then 503
//	GET /health          JSON report of every check
//	GET /health/{name}   JSON report of one check
package health
