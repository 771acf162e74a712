package gateway

import (
	"context"
	"time"
)

// RetryPolicy is a bounded-retry combinator. Backoff is a fixed interval
// between attempts: request volume is low and the model endpoint already
// bounds latency, so there is no exponential growth or jitter.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration

	// Retryable decides whether an attempt error consumes another slot
	// in the budget. Defaults to IsRetryable.
	Retryable func(error) bool

	// Sleep is swapped out in tests. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// DefaultRetryPolicy returns the reference policy: 3 attempts, 4s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff:  4 * time.Second,
	}
}

// Do runs fn up to p.Attempts times, sleeping p.Backoff between attempts.
// Non-retryable errors surface immediately; once the budget is exhausted
// the final attempt's error is the one returned.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			sleep(p.Backoff)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
