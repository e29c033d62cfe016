package filter

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/jonwraymond/webguard/observe"
	"github.com/jonwraymond/webguard/resilience"
)

// KeyFunc selects the rate limiting key for a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FailureLimitFilter throttles clients that keep presenting bad
// credentials. Every authentication failure takes a token from the
// client's bucket; while the bucket is empty requests are answered with
// 429 before any credential is checked. Successful requests cost nothing.
//
// It must run before AuthenticationFilter.
type FailureLimitFilter struct {
	limiter *resilience.KeyedRateLimiter
	key     KeyFunc
}

// NewFailureLimitFilter creates the filter. A nil key function uses ClientIP.
func NewFailureLimitFilter(limiter *resilience.KeyedRateLimiter, key KeyFunc) *FailureLimitFilter {
	if key == nil {
		key = ClientIP
	}
	return &FailureLimitFilter{limiter: limiter, key: key}
}

// Filter implements Filter.
func (f *FailureLimitFilter) Filter(ex *Exchange, next Next) error {
	key := f.key(ex.Request)

	if f.limiter.Blocked(key) {
		ex.setState(StateDenied)
		ex.record("rate_limit", "reject")
		ex.Logger().Warn(ex.Context(), "too many authentication failures",
			observe.F("client", key), observe.F("error", resilience.ErrRateLimitExceeded))

		if wait := f.limiter.RetryAfter(key); wait > 0 {
			ex.Response.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		ex.Response.WriteHeader(http.StatusTooManyRequests)
		return nil
	}

	err := next(ex)
	if ex.AuthenticationFailed() {
		f.limiter.Allow(key)
	}
	return err
}
