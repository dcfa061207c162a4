package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestDomainLimiter_BurstThenWait(t *testing.T) {
	lim := NewDomainLimiter(20, 2)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := lim.Wait(ctx, "https://vahanx.in/rc-search/A"); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	if time.Since(start) > 30*time.Millisecond {
		t.Errorf("Burst requests should not wait, took %s", time.Since(start))
	}

	// Third request needs a fresh token (~50ms at 20 rps)
	if err := lim.Wait(ctx, "https://vahanx.in/rc-search/B"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Errorf("Expected the third request to be throttled, took %s", time.Since(start))
	}
}

func TestDomainLimiter_PerHost(t *testing.T) {
	lim := NewDomainLimiter(0.001, 1)
	ctx := context.Background()

	if err := lim.Wait(ctx, "https://a.example/"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	// Different host has its own bucket
	if err := lim.Wait(ctx, "https://b.example/"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if lim.Tokens("a.example") >= 1 {
		t.Error("Expected host a.example to be drained")
	}
}

func TestDomainLimiter_ContextCancel(t *testing.T) {
	lim := NewDomainLimiter(0.001, 1)
	_ = lim.Wait(context.Background(), "https://a.example/")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := lim.Wait(ctx, "https://a.example/"); err == nil {
		t.Error("Expected error when the wait exceeds the context deadline")
	}
}

func TestUnlimited(t *testing.T) {
	if err := (Unlimited{}).Wait(context.Background(), "x"); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
