// Package retry runs an operation under an explicit retry policy.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int
	// Interval is the fixed pause between two attempts.
	Interval time.Duration
	// NonRetryable stops the loop early and returns the error as is.
	NonRetryable func(error) bool
	// Sleep pauses between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// ErrNoAttempts is returned when a policy allows zero attempts.
var ErrNoAttempts = errors.New("retry: policy allows no attempts")

// Do calls fn until it succeeds, the attempt budget is spent, or fn returns a
// non-retryable error. The last error is returned.
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	if p.Attempts <= 0 {
		return zero, ErrNoAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if p.NonRetryable != nil && p.NonRetryable(err) {
			break
		}
		if attempt == p.Attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return zero, errors.Join(lastErr, err)
		}
	}
	return zero, lastErr
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoSleep is a Sleep that returns immediately; used to make retries deterministic in tests.
func NoSleep(context.Context, time.Duration) error { return nil }
