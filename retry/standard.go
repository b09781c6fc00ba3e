package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/rpcmesh/bag"
)

// Condition decides whether an attempt error is retryable.
type Condition func(err error) bool

// RetryAll treats every error as retryable.
func RetryAll(error) bool { return true }

// attemptsMade is the per-execution attempt counter. It lives in the
// configuration bag because Standard instances are shared across executions.
type attemptsMade struct {
	n int
}

// StandardOptions configures a Standard strategy.
type StandardOptions struct {
	// MaxAttempts is the total attempt budget per execution, including the
	// first attempt.
	MaxAttempts int

	// Backoff computes the delay before each retry.
	Backoff Backoff

	// Retryable classifies attempt errors. Non-retryable errors stop the
	// loop immediately.
	Retryable Condition

	// Clock drives backoff sleeps and token refill. Defaults to SystemClock.
	Clock Clock

	// TokenBucketCapacity enables client-side admission control when > 0:
	// each execution takes a token before its first attempt, waiting for a
	// refill when the bucket is empty.
	TokenBucketCapacity int

	// TokenBucketRefillPerSecond is the bucket's refill rate.
	TokenBucketRefillPerSecond float64
}

// Standard is the default production retry strategy: a bounded number of
// attempts with exponential backoff and full jitter, an error classifier,
// and optional token-bucket admission for the initial request.
type Standard struct {
	maxAttempts int
	backoff     Backoff
	retryable   Condition
	clock       Clock
	bucket      *tokenBucket
}

// NewStandard creates a Standard strategy. The defaults allow three attempts
// with capped exponential backoff and jitter and no admission control.
func NewStandard(optFns ...func(o *StandardOptions)) *Standard {
	opts := StandardOptions{
		MaxAttempts: 3,
		Backoff:     WithJitter(WithCap(Exponential(100*time.Millisecond), 20*time.Second)),
		Retryable:   RetryAll,
		Clock:       SystemClock{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Standard{
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		retryable:   opts.Retryable,
		clock:       opts.Clock,
	}
	if opts.TokenBucketCapacity > 0 {
		s.bucket = newTokenBucket(opts.TokenBucketCapacity, opts.TokenBucketRefillPerSecond, opts.Clock)
	}
	return s
}

// ShouldAttemptInitialRequest admits the execution once a token is
// available, waiting for a refill when the bucket is empty. Without
// admission control it admits immediately.
func (s *Standard) ShouldAttemptInitialRequest(ctx context.Context, cfg *bag.Bag) error {
	if s.bucket != nil {
		if err := s.bucket.take(ctx); err != nil {
			return fmt.Errorf("request admission: %w", err)
		}
	}
	bag.Put(cfg, attemptsMade{n: 1})
	return nil
}

// ShouldAttemptRetry retries failed attempts while budget remains and the
// error is classified retryable, sleeping the backoff delay first.
func (s *Standard) ShouldAttemptRetry(ctx context.Context, res Result, cfg *bag.Bag) (bool, error) {
	if res.Err == nil {
		return false, nil
	}
	made, ok := bag.Get[attemptsMade](cfg)
	if !ok {
		made = attemptsMade{n: 1}
	}
	if made.n >= s.maxAttempts {
		return false, nil
	}
	if !s.retryable(res.Err) {
		return false, nil
	}
	if err := s.clock.Sleep(ctx, s.backoff.Delay(made.n)); err != nil {
		return false, err
	}
	bag.Put(cfg, attemptsMade{n: made.n + 1})
	return true, nil
}

// tokenBucket is a refilling admission bucket shared by all executions using
// the same Standard instance.
type tokenBucket struct {
	mu           sync.Mutex
	capacity     float64
	tokens       float64
	refillPerSec float64
	last         time.Time
	clock        Clock
}

func newTokenBucket(capacity int, refillPerSec float64, clock Clock) *tokenBucket {
	return &tokenBucket{
		capacity:     float64(capacity),
		tokens:       float64(capacity),
		refillPerSec: refillPerSec,
		last:         clock.Now(),
		clock:        clock,
	}
}

// take removes one token, sleeping until the bucket refills when empty. It
// returns ctx.Err() if the caller gives up first, or an error when the
// bucket can never refill.
func (b *tokenBucket) take(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := b.clock.Now()
		b.tokens = min(b.capacity, b.tokens+now.Sub(b.last).Seconds()*b.refillPerSec)
		b.last = now
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		if b.refillPerSec <= 0 {
			b.mu.Unlock()
			return fmt.Errorf("token bucket exhausted")
		}
		wait := time.Duration((1 - b.tokens) / b.refillPerSec * float64(time.Second))
		b.mu.Unlock()

		if err := b.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}
