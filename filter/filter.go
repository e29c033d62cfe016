package filter

import "net/http"

// Next continues processing with the remaining filters and, after the
// last one, the downstream handler.
type Next func(ex *Exchange) error

// Filter is one stage of a security chain.
//
// Contract:
//   - Concurrency: a Filter is shared by all requests and must be safe for concurrent use.
//   - Short-circuit: a filter that writes a response returns without calling next.
//   - Errors: errors are returned, never written, unless the filter owns the
//     translation of that error into a response.
type Filter interface {
	Filter(ex *Exchange, next Next) error
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(ex *Exchange, next Next) error

// Filter calls f.
func (f FilterFunc) Filter(ex *Exchange, next Next) error {
	return f(ex, next)
}

// ErrorHandlerFunc is a downstream handler that reports failures as errors
// instead of writing them. Errors travel back through the chain to the Proxy.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ServeHTTP calls f and writes a 500 if it fails before responding.
func (f ErrorHandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)
	if err := f(rw, r); err != nil && !rw.Committed() {
		rw.WriteHeader(http.StatusInternalServerError)
	}
}

// Terminal adapts a downstream handler to Next. ErrorHandlerFunc errors
// are returned; other handlers never fail.
func Terminal(h http.Handler) Next {
	if eh, ok := h.(ErrorHandlerFunc); ok {
		return func(ex *Exchange) error {
			return eh(ex.Response, ex.Request)
		}
	}
	return func(ex *Exchange) error {
		h.ServeHTTP(ex.Response, ex.Request)
		return nil
	}
}
