package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff computes the delay before a retry. attempt is the number of
// attempts already made, starting at 1 for the delay preceding the second
// attempt.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// BackoffFunc adapts a function to the Backoff interface.
type BackoffFunc func(attempt int) time.Duration

// Delay calls the wrapped function.
func (f BackoffFunc) Delay(attempt int) time.Duration { return f(attempt) }

// Exponential doubles the base delay with each attempt.
func Exponential(base time.Duration) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	})
}

// WithCap limits the delay produced by b to max.
func WithCap(b Backoff, max time.Duration) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		d := b.Delay(attempt)
		if d > max {
			return max
		}
		return d
	})
}

// WithJitter applies full jitter: a uniformly random delay in [0, d] where d
// is the delay produced by b. Jitter spreads retry storms from correlated
// failures.
func WithJitter(b Backoff) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		d := b.Delay(attempt)
		if d <= 0 {
			return 0
		}
		return time.Duration(rand.Int64N(int64(d) + 1))
	})
}

// Clock abstracts time operations so tests can run without real sleeps.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the Clock backed by the time package.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d, honoring ctx cancellation.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
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
