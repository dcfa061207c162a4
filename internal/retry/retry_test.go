package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"testing"
	"time"
)

func TestJitter_BackoffBounds(t *testing.T) {
	p := DefaultPolicy()
	j := NewJitterWithRand(rand.New(rand.NewPCG(7, 11)))

	if d := j.Backoff(1, p); d != 0 {
		t.Errorf("Expected no pause before the first attempt, got %s", d)
	}

	for attempt := 2; attempt < 500; attempt++ {
		d := j.Backoff(attempt, p)
		if d < 2*time.Second || d > 4*time.Second {
			t.Fatalf("Attempt %d: backoff %s outside [2s, 4s]", attempt, d)
		}
	}
}

func TestJitter_FixedInterval(t *testing.T) {
	p := Policy{MaxAttempts: 3, MinBackoff: time.Second, MaxBackoff: time.Second}
	if d := NewJitter().Backoff(3, p); d != time.Second {
		t.Errorf("Expected 1s, got %s", d)
	}
}

func TestPolicy_Validate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("Default policy should validate: %v", err)
	}
	if err := (Policy{MaxAttempts: 0}).Validate(); err == nil {
		t.Error("Expected error for zero attempts")
	}
	if err := (Policy{MaxAttempts: 1, MinBackoff: 3 * time.Second, MaxBackoff: time.Second}).Validate(); err == nil {
		t.Error("Expected error for inverted interval")
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly on cancellation")
	}
}

func TestSleep_Elapses(t *testing.T) {
	if err := Sleep(context.Background(), 5*time.Millisecond); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) {
		t.Error("Expected wrapped deadline to be a timeout")
	}
	if IsTimeout(errors.New("boom")) {
		t.Error("Plain error is not a timeout")
	}
}

func TestHTTPError(t *testing.T) {
	err := NewHTTPError(http.StatusTooManyRequests, "Too Many Requests", "")
	var sc StatusCoder = err
	if sc.GetStatusCode() != 429 {
		t.Errorf("Expected 429, got %d", sc.GetStatusCode())
	}
	if err.Error() != "HTTP 429: Too Many Requests" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestStatusCode(t *testing.T) {
	wrapped := fmt.Errorf("blocked: %w", NewHTTPError(http.StatusForbidden, "Forbidden", ""))
	if got := StatusCode(wrapped); got != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", got)
	}
	if got := StatusCode(errors.New("boom")); got != 0 {
		t.Errorf("Expected 0 without a status, got %d", got)
	}
}
