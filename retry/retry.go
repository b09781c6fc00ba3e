package retry

import (
	"context"
	"fmt"

	"github.com/hupe1980/rpcmesh/bag"
)

// Result carries the modeled outcome of one attempt: a success output or an
// error. Exactly one of the two is meaningful.
type Result struct {
	Output any
	Err    error
}

// Strategy decides whether the pipeline may enter the attempt loop and
// whether a failed attempt should be retried.
//
// Both decision points may suspend (token-bucket admission, backoff sleeps)
// and must honor ctx cancellation while doing so. A Strategy returning an
// error from either call aborts the execution with that error as the modeled
// response.
//
// Strategy instances live in the configuration bag and may be shared across
// concurrent executions; per-execution bookkeeping belongs in the bag, not
// in the strategy.
type Strategy interface {
	// ShouldAttemptInitialRequest gates entry into the attempt loop. A nil
	// return admits the execution; a non-nil return rejects it before any
	// attempt is made (for example when a circuit breaker is open).
	ShouldAttemptInitialRequest(ctx context.Context, cfg *bag.Bag) error

	// ShouldAttemptRetry is consulted after each attempt completes. It
	// returns true to loop back into a fresh attempt and false to proceed to
	// execution completion with res as the outcome.
	ShouldAttemptRetry(ctx context.Context, res Result, cfg *bag.Bag) (bool, error)
}

// Install stores s as the active strategy in the configuration bag,
// replacing any previous one.
func Install(cfg *bag.Bag, s Strategy) {
	bag.Put[Strategy](cfg, s)
}

// FromBag retrieves the active strategy from the configuration bag.
func FromBag(cfg *bag.Bag) (Strategy, bool) {
	return bag.Get[Strategy](cfg)
}

// StrategyPlugin installs a Strategy into the configuration bag during the
// one-time plugin step that precedes an execution. It satisfies the
// pipeline's Plugin interface.
type StrategyPlugin struct {
	Strategy Strategy
}

// Configure installs the wrapped strategy into cfg.
func (p StrategyPlugin) Configure(cfg *bag.Bag) error {
	Install(cfg, p.Strategy)
	return nil
}

// DecisionError wraps an error raised by a Strategy's own retry decision.
// It is always fatal to the execution.
type DecisionError struct {
	Err error
}

// Error implements the error interface.
func (e *DecisionError) Error() string {
	return fmt.Sprintf("retry decision failed: %v", e.Err)
}

// Unwrap returns the underlying strategy error.
func (e *DecisionError) Unwrap() error { return e.Err }

// Never performs no retries: every execution is admitted and runs exactly
// one attempt. It is the pipeline's default when no strategy is installed.
type Never struct{}

// ShouldAttemptInitialRequest always admits the execution.
func (Never) ShouldAttemptInitialRequest(context.Context, *bag.Bag) error { return nil }

// ShouldAttemptRetry never retries.
func (Never) ShouldAttemptRetry(context.Context, Result, *bag.Bag) (bool, error) {
	return false, nil
}
