package filter

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/resilience"
)

// newFrozenLimiter allows two failures per client and refills one token
// every two seconds on a clock that never moves.
func newFrozenLimiter() *resilience.KeyedRateLimiter {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
		Rate:  0.5,
		Burst: 2,
		Now:   func() time.Time { return now },
	})
}

func TestFailureLimitFilter(t *testing.T) {
	limiter := newFrozenLimiter()
	chain, err := NewSecurityChain(SecurityConfig{
		Authenticator:  auth.NewUserStoreAuthenticator(newUserStore(t)),
		FailureLimiter: limiter,
	})
	if err != nil {
		t.Fatal(err)
	}
	proxy := NewProxy(principalHandler(), []*Chain{chain})

	send := func(remote, user, password string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if user != "" {
			req.SetBasicAuth(user, password)
		}
		rec := httptest.NewRecorder()
		proxy.ServeHTTP(rec, req)
		return rec
	}

	const attacker = "203.0.113.9:4100"

	for i := range 2 {
		if rec := send(attacker, "user", "guess"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("failure %d: status = %d, want 401", i+1, rec.Code)
		}
	}

	rec := send(attacker, "user", "guess")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}

	// Blocked before credentials are checked.
	if rec := send("203.0.113.9:4200", "user", "password"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("valid credentials from blocked client: status = %d, want 429", rec.Code)
	}

	if rec := send("198.51.100.1:5000", "user", "password"); rec.Code != http.StatusOK {
		t.Errorf("other client: status = %d, want 200", rec.Code)
	}

	limiter.Reset("203.0.113.9")
	if rec := send(attacker, "user", "password"); rec.Code != http.StatusOK {
		t.Errorf("after reset: status = %d, want 200", rec.Code)
	}
}

func TestFailureLimitFilter_AnonymousAndSuccessAreFree(t *testing.T) {
	limiter := newFrozenLimiter()
	chain, err := NewSecurityChain(SecurityConfig{
		Authenticator:  auth.NewUserStoreAuthenticator(newUserStore(t)),
		FailureLimiter: limiter,
	})
	if err != nil {
		t.Fatal(err)
	}
	proxy := NewProxy(principalHandler(), []*Chain{chain})

	for range 5 {
		proxy.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", userPasswordBasic)
		proxy.ServeHTTP(httptest.NewRecorder(), req)
	}

	if limiter.Len() != 0 {
		t.Errorf("Len() = %d, want 0 tracked clients", limiter.Len())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"unix-socket", "unix-socket"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if got := ClientIP(req); got != tt.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestFailureLimitFilter_ForgetsIdleClients(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	limiter := resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
		Rate:    1,
		Burst:   2,
		IdleTTL: time.Minute,
		Now:     clock,
	})
	chain, err := NewSecurityChain(SecurityConfig{
		Authenticator:  auth.NewUserStoreAuthenticator(newUserStore(t)),
		FailureLimiter: limiter,
	})
	if err != nil {
		t.Fatal(err)
	}
	proxy := NewProxy(principalHandler(), []*Chain{chain})

	fail := func(remote string) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		req.SetBasicAuth("user", "guess")
		proxy.ServeHTTP(httptest.NewRecorder(), req)
	}

	for i := range 200 {
		fail(fmt.Sprintf("[2001:db8::%x]:443", i))
	}
	if got := limiter.Len(); got != 200 {
		t.Fatalf("Len() = %d, want 200", got)
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	fail("[2001:db8::ffff]:443")
	if got := limiter.Len(); got != 1 {
		t.Errorf("Len() = %d after IdleTTL, want 1", got)
	}
}
