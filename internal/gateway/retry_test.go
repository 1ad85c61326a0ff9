package gateway

import (
	"context"
	"testing"
	"time"
)

func TestBackoffDelay_ClampedToRange(t *testing.T) {
	for n := 0; n < 10; n++ {
		d := backoffDelay(n)
		if d < backoffMinDelay || d > backoffMaxDelay {
			t.Errorf("Delay for retry %d out of range: %v", n, d)
		}
	}
}

func TestBackoffDelay_MultiplierOne(t *testing.T) {
	// With multiplier 1 every retry waits exactly the minimum delay.
	for n := 0; n < 3; n++ {
		if d := backoffDelay(n); d != backoffMinDelay {
			t.Errorf("Expected %v for retry %d, got %v", backoffMinDelay, n, d)
		}
	}
}

func TestSleep_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, 10*time.Second)
	if err == nil {
		t.Fatal("Expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("Cancelled sleep should return immediately")
	}
}

func TestSleep_Completes(t *testing.T) {
	if err := sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Expected nil, got %v", err)
	}
}
