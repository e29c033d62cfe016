package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	for _, err := range []error{ErrCircuitOpen, ErrMaxRetriesExceeded, ErrRateLimitExceeded} {
		wrapped := fmt.Errorf("lookup: %w", err)
		if !errors.Is(wrapped, err) {
			t.Errorf("errors.Is(%v) = false through wrapping", err)
		}
	}
	if errors.Is(ErrCircuitOpen, ErrRateLimitExceeded) {
		t.Error("distinct sentinels must not match")
	}
}
