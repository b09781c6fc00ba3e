package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rpcmesh/bag"
)

// fakeClock advances instantly on Sleep and records the requested delays.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func newStandardForTest(clock Clock, optFns ...func(o *StandardOptions)) (*Standard, *bag.Bag) {
	all := append([]func(o *StandardOptions){func(o *StandardOptions) {
		o.Clock = clock
		o.Backoff = Exponential(100 * time.Millisecond)
	}}, optFns...)
	return NewStandard(all...), bag.New()
}

func TestStandard_RetriesUntilBudgetExhausted(t *testing.T) {
	clock := newFakeClock()
	s, cfg := newStandardForTest(clock)
	ctx := context.Background()

	require.NoError(t, s.ShouldAttemptInitialRequest(ctx, cfg))

	failed := Result{Err: errors.New("throttled")}

	ok, err := s.ShouldAttemptRetry(ctx, failed, cfg)
	require.NoError(t, err)
	assert.True(t, ok, "second attempt should be granted")

	ok, err = s.ShouldAttemptRetry(ctx, failed, cfg)
	require.NoError(t, err)
	assert.True(t, ok, "third attempt should be granted")

	ok, err = s.ShouldAttemptRetry(ctx, failed, cfg)
	require.NoError(t, err)
	assert.False(t, ok, "budget of 3 attempts is spent")

	// Exponential backoff without jitter: 100ms then 200ms.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, clock.sleeps)
}

func TestStandard_SuccessStopsLoop(t *testing.T) {
	clock := newFakeClock()
	s, cfg := newStandardForTest(clock)
	ctx := context.Background()

	require.NoError(t, s.ShouldAttemptInitialRequest(ctx, cfg))
	ok, err := s.ShouldAttemptRetry(ctx, Result{Output: "done"}, cfg)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, clock.sleeps, "no backoff sleep on success")
}

func TestStandard_NonRetryableError(t *testing.T) {
	sentinel := errors.New("validation failed")
	clock := newFakeClock()
	s, cfg := newStandardForTest(clock, func(o *StandardOptions) {
		o.Retryable = func(err error) bool { return !errors.Is(err, sentinel) }
	})
	ctx := context.Background()

	require.NoError(t, s.ShouldAttemptInitialRequest(ctx, cfg))
	ok, err := s.ShouldAttemptRetry(ctx, Result{Err: sentinel}, cfg)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStandard_AttemptCountersAreExecutionScoped(t *testing.T) {
	clock := newFakeClock()
	s, _ := newStandardForTest(clock)
	ctx := context.Background()
	failed := Result{Err: errors.New("boom")}

	// Two executions share the strategy but carry separate bags.
	cfg1, cfg2 := bag.New(), bag.New()
	require.NoError(t, s.ShouldAttemptInitialRequest(ctx, cfg1))
	require.NoError(t, s.ShouldAttemptInitialRequest(ctx, cfg2))

	for i := 0; i < 2; i++ {
		ok, err := s.ShouldAttemptRetry(ctx, failed, cfg1)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := s.ShouldAttemptRetry(ctx, failed, cfg1)
	require.NoError(t, err)
	assert.False(t, ok, "first execution exhausted")

	ok, err = s.ShouldAttemptRetry(ctx, failed, cfg2)
	require.NoError(t, err)
	assert.True(t, ok, "second execution has its own budget")
}

func TestStandard_TokenBucketWaitsForRefill(t *testing.T) {
	clock := newFakeClock()
	s, _ := newStandardForTest(clock, func(o *StandardOptions) {
		o.TokenBucketCapacity = 1
		o.TokenBucketRefillPerSecond = 1
	})
	ctx := context.Background()

	require.NoError(t, s.ShouldAttemptInitialRequest(ctx, bag.New()))
	assert.Empty(t, clock.sleeps, "first admission should not wait")

	require.NoError(t, s.ShouldAttemptInitialRequest(ctx, bag.New()))
	assert.NotEmpty(t, clock.sleeps, "second admission must wait for a refill")
}

func TestStandard_TokenBucketNeverRefills(t *testing.T) {
	clock := newFakeClock()
	s, _ := newStandardForTest(clock, func(o *StandardOptions) {
		o.TokenBucketCapacity = 1
		o.TokenBucketRefillPerSecond = 0
	})
	ctx := context.Background()

	require.NoError(t, s.ShouldAttemptInitialRequest(ctx, bag.New()))
	err := s.ShouldAttemptInitialRequest(ctx, bag.New())
	require.Error(t, err)
}

func TestSystemClock_SleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SystemClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNever(t *testing.T) {
	cfg := bag.New()
	require.NoError(t, Never{}.ShouldAttemptInitialRequest(context.Background(), cfg))
	ok, err := Never{}.ShouldAttemptRetry(context.Background(), Result{Err: errors.New("boom")}, cfg)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStrategyPlugin_InstallsIntoBag(t *testing.T) {
	cfg := bag.New()
	s := NewStandard()
	require.NoError(t, StrategyPlugin{Strategy: s}.Configure(cfg))

	got, ok := FromBag(cfg)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestDecisionError_Unwrap(t *testing.T) {
	cause := errors.New("bucket corrupt")
	err := &DecisionError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "retry decision failed")
}

func TestBackoff_Composition(t *testing.T) {
	b := Exponential(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 400*time.Millisecond, b.Delay(3))

	capped := WithCap(b, 250*time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, capped.Delay(3))

	jittered := WithJitter(capped)
	for i := 0; i < 50; i++ {
		d := jittered.Delay(3)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}
