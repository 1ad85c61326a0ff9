package gateway

import (
	"context"
	"math"
	"time"
)

// Retry behavior is fixed for every provider leg: 3 total attempts with
// exponential backoff, multiplier 1, clamped to [1s, 10s]. No jitter; the
// delay sequence is deterministic.
const (
	maxAttempts       = 3
	backoffMinDelay   = 1 * time.Second
	backoffMaxDelay   = 10 * time.Second
	backoffMultiplier = 1.0
)

// backoffDelay returns the wait before retry number n (n starts at 0 for
// the first retry): clamp(min * multiplier^n, min, max).
func backoffDelay(n int) time.Duration {
	d := time.Duration(float64(backoffMinDelay) * math.Pow(backoffMultiplier, float64(n)))
	if d < backoffMinDelay {
		return backoffMinDelay
	}
	if d > backoffMaxDelay {
		return backoffMaxDelay
	}
	return d
}

// sleepFn is swapped out in tests to avoid real backoff waits.
var sleepFn = sleep

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
