package core

import (
	"reflect"

	"github.com/google/uuid"
)

// ExecutionContext carries the mutable state of one in-flight execution as it
// moves through serialization, signing, transmission, deserialization and
// retry. It owns four slots:
//
//   - the modeled request: the operation's typed input, present from the start
//   - the transport request (TxReq): absent until serialization
//   - the transport response (TxRes): absent until a transmit completes
//   - the modeled response: a success output or error, absent until
//     deserialization, an early failure, or a hook-injected result
//
// Field availability is monotonic within an attempt: once populated, a slot
// is never cleared until the next attempt begins. On retry the transport
// request is restored from the checkpoint taken after the pre-loop modify
// hooks, so mutations made by one attempt's hooks never leak into the next.
//
// The context is exclusively owned by its execution and must not be shared
// across executions. Transport-level slots are typed by the generic
// parameters, so replacing them with a different type is a compile error;
// the dynamically typed modeled slots are validated at dispatch time via
// CheckModeledRequestType and CheckModeledResponseType.
type ExecutionContext[TxReq, TxRes any] struct {
	executionID string
	attempt     int

	modeledRequest any
	requestType    reflect.Type

	txRequest    TxReq
	hasTxRequest bool

	txResponse    TxRes
	hasTxResponse bool

	output      any
	outputType  reflect.Type
	err         error
	hasResponse bool

	checkpoint    TxReq
	hasCheckpoint bool
}

// NewExecutionContext creates a context for one execution of an operation
// with the given modeled input. The input's concrete type is recorded as the
// contract for later modify-hook replacements.
func NewExecutionContext[TxReq, TxRes any](input any) *ExecutionContext[TxReq, TxRes] {
	return &ExecutionContext[TxReq, TxRes]{
		executionID:    uuid.NewString(),
		modeledRequest: input,
		requestType:    reflect.TypeOf(input),
	}
}

// ExecutionID returns the unique identifier of this execution.
func (c *ExecutionContext[TxReq, TxRes]) ExecutionID() string { return c.executionID }

// Attempt returns the current attempt number, starting at 1 once the retry
// loop has been entered. It is 0 before the first attempt begins.
func (c *ExecutionContext[TxReq, TxRes]) Attempt() int { return c.attempt }

// ModeledRequest returns the operation's typed input.
func (c *ExecutionContext[TxReq, TxRes]) ModeledRequest() any { return c.modeledRequest }

// SetModeledRequest replaces the modeled request. The replacement must have
// the same concrete type as the original input; violations surface as
// dispatch errors via CheckModeledRequestType.
func (c *ExecutionContext[TxReq, TxRes]) SetModeledRequest(v any) { c.modeledRequest = v }

// CheckModeledRequestType validates that the modeled request still has the
// concrete type recorded at construction.
func (c *ExecutionContext[TxReq, TxRes]) CheckModeledRequestType() error {
	if got := reflect.TypeOf(c.modeledRequest); got != c.requestType {
		return &TypeError{Slot: "modeled request", Want: c.requestType, Got: got}
	}
	return nil
}

// TxRequest returns the transport request and whether it has been produced.
func (c *ExecutionContext[TxReq, TxRes]) TxRequest() (TxReq, bool) {
	return c.txRequest, c.hasTxRequest
}

// SetTxRequest stores or replaces the transport request.
func (c *ExecutionContext[TxReq, TxRes]) SetTxRequest(req TxReq) {
	c.txRequest = req
	c.hasTxRequest = true
}

// TxResponse returns the transport response and whether one was received.
func (c *ExecutionContext[TxReq, TxRes]) TxResponse() (TxRes, bool) {
	return c.txResponse, c.hasTxResponse
}

// SetTxResponse stores or replaces the transport response.
func (c *ExecutionContext[TxReq, TxRes]) SetTxResponse(res TxRes) {
	c.txResponse = res
	c.hasTxResponse = true
}

// Response returns the modeled response: a success output or an error.
// Exactly one of the two is meaningful when HasResponse reports true.
func (c *ExecutionContext[TxReq, TxRes]) Response() (any, error) { return c.output, c.err }

// HasResponse reports whether a modeled response has been produced.
func (c *ExecutionContext[TxReq, TxRes]) HasResponse() bool { return c.hasResponse }

// SetOutput records a successful modeled response. The first success output
// of the execution fixes the expected output type for later replacements.
func (c *ExecutionContext[TxReq, TxRes]) SetOutput(v any) {
	c.output = v
	c.err = nil
	c.hasResponse = true
	if c.outputType == nil {
		c.outputType = reflect.TypeOf(v)
	}
}

// SetError records a failed modeled response. Any error type is permitted.
func (c *ExecutionContext[TxReq, TxRes]) SetError(err error) {
	c.output = nil
	c.err = err
	c.hasResponse = true
}

// CheckModeledResponseType validates a modify-hook replacement of the modeled
// response: errors of any type are accepted, success outputs must match the
// concrete type of the operation's first success output.
func (c *ExecutionContext[TxReq, TxRes]) CheckModeledResponseType() error {
	if !c.hasResponse || c.err != nil {
		return nil
	}
	if got := reflect.TypeOf(c.output); c.outputType != nil && got != c.outputType {
		return &TypeError{Slot: "modeled response", Want: c.outputType, Got: got}
	}
	return nil
}

// SaveCheckpoint records the transport request as the rewind point for the
// retry loop. It is taken once, after the pre-loop modify hooks have run.
func (c *ExecutionContext[TxReq, TxRes]) SaveCheckpoint(clone func(TxReq) TxReq) {
	if !c.hasTxRequest {
		return
	}
	c.checkpoint = clone(c.txRequest)
	c.hasCheckpoint = true
}

// BeginAttempt advances the attempt counter and rewinds per-attempt state:
// the transport request is restored from the checkpoint and the transport
// response and modeled response of the prior attempt are discarded. The
// recorded output type is kept, since it describes the operation rather than
// any single attempt.
func (c *ExecutionContext[TxReq, TxRes]) BeginAttempt(clone func(TxReq) TxReq) {
	c.attempt++
	if c.hasCheckpoint {
		c.txRequest = clone(c.checkpoint)
		c.hasTxRequest = true
	}
	var zeroRes TxRes
	c.txResponse = zeroRes
	c.hasTxResponse = false
	c.output = nil
	c.err = nil
	c.hasResponse = false
}
