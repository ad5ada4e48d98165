package service

import (
	"context"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
)

// RetryPolicy retries the same provider on transient failures.
// It is independent of the fallback chain: the chain moves to the next provider only
// after the policy has given up.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NoRetry calls the provider once
var NoRetry = RetryPolicy{MaxAttempts: 1}

// NewRetryPolicy creates a policy with exponential backoff
func NewRetryPolicy(maxAttempts int, initial, max time.Duration) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if max < initial {
		max = initial
	}
	return RetryPolicy{MaxAttempts: maxAttempts, InitialBackoff: initial, MaxBackoff: max}
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts run out.
// It returns the number of calls made and the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	backoff := p.InitialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !failure.IsRetryable(err) || attempt == maxAttempts {
			return attempt, err
		}
		if serr := sleep(ctx, backoff); serr != nil {
			return attempt, err
		}
		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
	return maxAttempts, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
