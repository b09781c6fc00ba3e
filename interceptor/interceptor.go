package interceptor

import (
	"context"

	"github.com/hupe1980/rpcmesh/bag"
	"github.com/hupe1980/rpcmesh/core"
)

// Interceptor allows injecting code into the request execution pipeline.
//
// Terminology:
//   - An execution is one end-to-end invocation of an operation against the
//     client. By default executions are retried based on the active retry
//     strategy.
//   - An attempt is one try at transmitting the request within an execution.
//   - A hook is a single method on the interceptor. "Read" hooks observe
//     in-flight state and must not be relied upon to mutate it; "Modify"
//     hooks may replace the relevant context slot with a value of the same
//     type.
//
// All hooks are optional: embed Nop and override only the hooks you need.
// Interceptor instances are shared across concurrent executions and must not
// keep execution-scoped state; use the configuration bag for that.
type Interceptor[TxReq, TxRes any] interface {
	// ReadBeforeExecution is called once at the start of an execution, before
	// anything else. Only the modeled request is available. Errors are
	// collected across all interceptors (last wins) and jump execution to
	// ModifyBeforeCompletion.
	ReadBeforeExecution(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ModifyBeforeSerialization is called once per execution before the
	// modeled request is marshalled. It may replace the modeled request with
	// a new value of the same type. Errors jump to ModifyBeforeCompletion.
	ModifyBeforeSerialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadBeforeSerialization is called once per execution immediately before
	// marshalling. Errors jump to ModifyBeforeCompletion.
	ReadBeforeSerialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadAfterSerialization is called once per execution after the transport
	// request has been produced. Errors jump to ModifyBeforeCompletion.
	ReadAfterSerialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ModifyBeforeRetryLoop is called once per execution before the retry
	// loop is entered. It may replace the transport request. The state of the
	// context at the end of this hook is the rewind point for every attempt.
	// Errors jump to ModifyBeforeCompletion.
	ModifyBeforeRetryLoop(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadBeforeAttempt is called at the start of each attempt. Errors are
	// collected across all interceptors (last wins) and jump to
	// ModifyBeforeAttemptCompletion.
	ReadBeforeAttempt(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ModifyBeforeSigning is called once per attempt before the transport
	// request is signed and may replace it. Errors jump to
	// ModifyBeforeAttemptCompletion.
	ModifyBeforeSigning(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadBeforeSigning is called once per attempt immediately before
	// signing. Errors jump to ModifyBeforeAttemptCompletion.
	ReadBeforeSigning(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadAfterSigning is called once per attempt immediately after signing.
	// Errors jump to ModifyBeforeAttemptCompletion.
	ReadAfterSigning(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ModifyBeforeTransmit is called once per attempt before the transport
	// request is sent and may replace it. Errors jump to
	// ModifyBeforeAttemptCompletion.
	ModifyBeforeTransmit(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadBeforeTransmit is called once per attempt immediately before the
	// request is sent. Errors jump to ModifyBeforeAttemptCompletion.
	ReadBeforeTransmit(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadAfterTransmit is called once per attempt after a transport response
	// has been received. Errors jump to ModifyBeforeAttemptCompletion.
	ReadAfterTransmit(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ModifyBeforeDeserialization is called once per attempt before the
	// transport response is unmarshalled and may replace it. Errors jump to
	// ModifyBeforeAttemptCompletion.
	ModifyBeforeDeserialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadBeforeDeserialization is called once per attempt immediately before
	// unmarshalling. Errors jump to ModifyBeforeAttemptCompletion.
	ReadBeforeDeserialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadAfterDeserialization is called once per attempt after the modeled
	// response has been produced. Errors jump to
	// ModifyBeforeAttemptCompletion.
	ReadAfterDeserialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ModifyBeforeAttemptCompletion is called at the end of each attempt that
	// got past ReadBeforeAttempt. It may replace the modeled response with a
	// conforming output or any error. Errors jump to ReadAfterAttempt.
	ModifyBeforeAttemptCompletion(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadAfterAttempt is called at the end of each attempt that got past
	// ReadBeforeAttempt. The transport response is available only if one was
	// received. Errors are collected (last wins) and become the attempt's
	// modeled response before the retry decision is made.
	ReadAfterAttempt(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ModifyBeforeCompletion is called once per execution before the outcome
	// is surfaced. It may replace the modeled response with a conforming
	// output or any error. Errors become the modeled response and execution
	// continues to ReadAfterExecution.
	ModifyBeforeCompletion(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error

	// ReadAfterExecution is called once per execution, last of all hooks.
	// The modeled request and modeled response are always available. Errors
	// are collected (last wins) and become the final modeled response.
	ReadAfterExecution(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error
}

// Nop implements every Interceptor hook as a no-op. Embed it to implement
// only the hooks you care about.
type Nop[TxReq, TxRes any] struct{}

// ReadBeforeExecution is a no-op.
func (Nop[TxReq, TxRes]) ReadBeforeExecution(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ModifyBeforeSerialization is a no-op.
func (Nop[TxReq, TxRes]) ModifyBeforeSerialization(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadBeforeSerialization is a no-op.
func (Nop[TxReq, TxRes]) ReadBeforeSerialization(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadAfterSerialization is a no-op.
func (Nop[TxReq, TxRes]) ReadAfterSerialization(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ModifyBeforeRetryLoop is a no-op.
func (Nop[TxReq, TxRes]) ModifyBeforeRetryLoop(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadBeforeAttempt is a no-op.
func (Nop[TxReq, TxRes]) ReadBeforeAttempt(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ModifyBeforeSigning is a no-op.
func (Nop[TxReq, TxRes]) ModifyBeforeSigning(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadBeforeSigning is a no-op.
func (Nop[TxReq, TxRes]) ReadBeforeSigning(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadAfterSigning is a no-op.
func (Nop[TxReq, TxRes]) ReadAfterSigning(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ModifyBeforeTransmit is a no-op.
func (Nop[TxReq, TxRes]) ModifyBeforeTransmit(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadBeforeTransmit is a no-op.
func (Nop[TxReq, TxRes]) ReadBeforeTransmit(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadAfterTransmit is a no-op.
func (Nop[TxReq, TxRes]) ReadAfterTransmit(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ModifyBeforeDeserialization is a no-op.
func (Nop[TxReq, TxRes]) ModifyBeforeDeserialization(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadBeforeDeserialization is a no-op.
func (Nop[TxReq, TxRes]) ReadBeforeDeserialization(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadAfterDeserialization is a no-op.
func (Nop[TxReq, TxRes]) ReadAfterDeserialization(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ModifyBeforeAttemptCompletion is a no-op.
func (Nop[TxReq, TxRes]) ModifyBeforeAttemptCompletion(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadAfterAttempt is a no-op.
func (Nop[TxReq, TxRes]) ReadAfterAttempt(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ModifyBeforeCompletion is a no-op.
func (Nop[TxReq, TxRes]) ModifyBeforeCompletion(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}

// ReadAfterExecution is a no-op.
func (Nop[TxReq, TxRes]) ReadAfterExecution(context.Context, *core.ExecutionContext[TxReq, TxRes], *bag.Bag) error {
	return nil
}
