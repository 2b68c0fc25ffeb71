package reconcile

import (
	"context"
	"time"
)

// Policy bounds a retrying stage. Delay receives the 1-based attempt number
// that just failed and returns how long to wait before the next one.
type Policy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
}

// Linear grows the wait by base each failed attempt: base, 2×base, 3×base.
func Linear(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Fixed waits the same interval every attempt.
func Fixed(interval time.Duration) func(int) time.Duration {
	return func(int) time.Duration {
		return interval
	}
}

// sleep waits for d or until ctx ends, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
