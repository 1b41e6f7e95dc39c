package rate

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketFirstWaitImmediate(t *testing.T) {
	tb := NewTokenBucket(1)
	defer tb.Stop()

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("first wait blocked for %v", elapsed)
	}
}

func TestTokenBucketPacesSubsequentWaits(t *testing.T) {
	tb := NewTokenBucket(50) // 20ms interval
	defer tb.Stop()

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := tb.Wait(ctx); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}
	// first token is free; the remaining three arrive on 20ms ticks
	// (bound is slack to absorb ticker start jitter)
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("4 waits completed in %v, throttle did not delay", elapsed)
	}
}

func TestTokenBucketWaitHonorsContext(t *testing.T) {
	tb := NewTokenBucket(0.001)
	defer tb.Stop()

	ctx := context.Background()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := tb.Wait(canceled); err == nil {
		t.Fatalf("expected error from canceled context")
	}
}

func TestTokenBucketStopReturnsPromptly(t *testing.T) {
	tb := NewTokenBucket(0.001) // next tick is ~17 minutes away
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		tb.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Stop did not return")
	}
}

func TestTokenBucketBadRateDefaults(t *testing.T) {
	tb := NewTokenBucket(-3)
	defer tb.Stop()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
}
