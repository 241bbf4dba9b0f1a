package utils

import (
	"context"
	"time"
)

// RetryPolicy describes a bounded retry loop. MaxRetries counts retries,
// so an operation runs at most MaxRetries+1 times.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	Retryable  func(error) bool
	OnRetry    func(attempt int, err error)
	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy(retryable func(error) bool) RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultRetries,
		Delay:      DefaultRetryDelay,
		Retryable:  retryable,
	}
}

// Retry runs op until it succeeds, fails with a non-retryable error or the
// retry budget is spent. The last error is returned unchanged.
func Retry(ctx context.Context, policy RetryPolicy, op func(attempt int) error) error {
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = op(attempt)
		if err == nil {
			return nil
		}
		if attempt > policy.MaxRetries || policy.Retryable == nil || !policy.Retryable(err) {
			return err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}
		if sleepErr := sleep(ctx, policy.Delay); sleepErr != nil {
			return err
		}
	}
}

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
