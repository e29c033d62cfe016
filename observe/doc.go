// Package observe provides observability primitives for the security
// filter chain: a redacting structured logger, OpenTelemetry tracing and
// metrics for proxied requests, and a middleware that ties them together.
//
// It is a pure instrumentation library. The filter package calls into it;
// observe never inspects credentials or writes responses.
package observe
