// Package retry provides a small retry policy for calls to external services
// that fail transiently. The policy owns the attempt budget and the backoff
// schedule; the caller owns the decision of what counts as transient.
package retry

import (
	"context"
	"time"
)

// Policy describes how a single logical call may be re-attempted.
type Policy struct {
	// MaxAttempts is the total attempt budget including the first call.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; each further wait
	// doubles (BaseDelay * 2^(attempt-1)).
	BaseDelay time.Duration
	// Retryable reports whether an error is worth another attempt. A nil
	// predicate retries nothing.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, returns a non-retryable error, exhausts the
// attempt budget, or ctx is done. The error returned is always the one from
// the last attempt.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, p.delay(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

func (p Policy) delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay << (attempt - 1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
