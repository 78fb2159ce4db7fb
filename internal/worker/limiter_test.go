package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.Wait(ctx, "https://nominatim.openstreetmap.org/search"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	// A different host has its own bucket and must not wait
	if err := limiter.Wait(ctx, "https://api.opencagedata.com/geocode"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("distinct hosts should not share a bucket, waited %v", elapsed)
	}
}

func TestLimiter_Paces(t *testing.T) {
	limiter := NewIntervalLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "https://api.telegram.org/bot/sendMessage"); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected pacing of ~100ms for 3 requests, got %v", elapsed)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewIntervalLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		_ = limiter.Wait(ctx, "http://example.com")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("unlimited limiter should not wait, took %v", elapsed)
	}
}

func TestLimiter_ContextCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	ctx, cancel := context.WithCancel(context.Background())

	_ = limiter.Wait(ctx, "http://example.com") // consume the burst
	cancel()

	if err := limiter.Wait(ctx, "http://example.com"); err == nil {
		t.Error("expected error from cancelled context")
	}
}
