// Package retry expresses bounded retry-with-backoff as a reusable policy
// instead of per-call-site loops.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes how an operation is retried: attempt budget, exponential
// delay shape, jitter, and which failures are worth retrying.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterFrac  float64
	// Retryable decides whether a failure should be retried. Nil retries
	// every failure.
	Retryable func(error) bool
}

// Do runs op until it succeeds, the attempt budget is exhausted, the error
// is non-retryable, or ctx is cancelled. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if sleepErr := sleep(ctx, p.delay(attempt)); sleepErr != nil {
				return sleepErr
			}
		}

		if err = op(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return err
}

// delay computes the backoff before the given attempt (1-based for the
// first retry): exponential growth from BaseDelay, capped at MaxDelay,
// plus uniform jitter up to JitterFrac of the capped delay.
func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	if p.JitterFrac > 0 {
		d += time.Duration(rand.Float64() * p.JitterFrac * float64(d))
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
