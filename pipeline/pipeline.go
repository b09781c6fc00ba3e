package pipeline

import (
	"context"
	"fmt"

	"github.com/hupe1980/rpcmesh/bag"
	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/interceptor"
	"github.com/hupe1980/rpcmesh/logging"
	"github.com/hupe1980/rpcmesh/retry"
)

// Serializer marshals a modeled request into a transport request.
type Serializer[TxReq any] interface {
	SerializeRequest(ctx context.Context, in any, cfg *bag.Bag) (TxReq, error)
}

// SerializerFunc adapts a function to the Serializer interface.
type SerializerFunc[TxReq any] func(ctx context.Context, in any, cfg *bag.Bag) (TxReq, error)

// SerializeRequest calls the wrapped function.
func (f SerializerFunc[TxReq]) SerializeRequest(ctx context.Context, in any, cfg *bag.Bag) (TxReq, error) {
	return f(ctx, in, cfg)
}

// Signer signs a transport request, returning the signed request.
type Signer[TxReq any] interface {
	SignRequest(ctx context.Context, req TxReq, cfg *bag.Bag) (TxReq, error)
}

// SignerFunc adapts a function to the Signer interface.
type SignerFunc[TxReq any] func(ctx context.Context, req TxReq, cfg *bag.Bag) (TxReq, error)

// SignRequest calls the wrapped function.
func (f SignerFunc[TxReq]) SignRequest(ctx context.Context, req TxReq, cfg *bag.Bag) (TxReq, error) {
	return f(ctx, req, cfg)
}

// Transport sends a transport request and returns the transport response.
type Transport[TxReq, TxRes any] interface {
	RoundTrip(ctx context.Context, req TxReq, cfg *bag.Bag) (TxRes, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc[TxReq, TxRes any] func(ctx context.Context, req TxReq, cfg *bag.Bag) (TxRes, error)

// RoundTrip calls the wrapped function.
func (f TransportFunc[TxReq, TxRes]) RoundTrip(ctx context.Context, req TxReq, cfg *bag.Bag) (TxRes, error) {
	return f(ctx, req, cfg)
}

// Deserializer unmarshals a transport response into a modeled output.
type Deserializer[TxRes any] interface {
	DeserializeResponse(ctx context.Context, res TxRes, cfg *bag.Bag) (any, error)
}

// DeserializerFunc adapts a function to the Deserializer interface.
type DeserializerFunc[TxRes any] func(ctx context.Context, res TxRes, cfg *bag.Bag) (any, error)

// DeserializeResponse calls the wrapped function.
func (f DeserializerFunc[TxRes]) DeserializeResponse(ctx context.Context, res TxRes, cfg *bag.Bag) (any, error) {
	return f(ctx, res, cfg)
}

// Plugin performs one-time configuration-bag setup before an execution, for
// example installing the active retry strategy.
type Plugin interface {
	Configure(cfg *bag.Bag) error
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc func(cfg *bag.Bag) error

// Configure calls the wrapped function.
func (f PluginFunc) Configure(cfg *bag.Bag) error { return f(cfg) }

// Options configures a Pipeline.
type Options[TxReq, TxRes any] struct {
	// Registry supplies the interceptors dispatched at each phase. A fresh
	// empty registry is used when nil.
	Registry *interceptor.Registry[TxReq, TxRes]

	// Plugins run once per execution against its configuration bag, in
	// order, before any hook is dispatched.
	Plugins []Plugin

	// Logger receives driver-level diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger

	// CloneTxRequest deep-copies a transport request for the retry-loop
	// checkpoint. The default copies by value, which is only correct for
	// transport request types without pointer-shaped internals.
	CloneTxRequest func(TxReq) TxReq
}

// Pipeline drives one operation execution through the interceptor lifecycle:
// serialization, signing, transmission, deserialization and retry, with the
// registry dispatched at every phase boundary and the retry strategy
// consulted at its two decision points.
//
// Hook dispatch within an execution is strictly sequential. Concurrency
// exists only across executions: each Execute call builds its own execution
// context and configuration bag, so one Pipeline may serve any number of
// goroutines as long as its interceptors and collaborators tolerate that.
type Pipeline[TxReq, TxRes any] struct {
	serializer   Serializer[TxReq]
	signer       Signer[TxReq]
	transport    Transport[TxReq, TxRes]
	deserializer Deserializer[TxRes]

	registry *interceptor.Registry[TxReq, TxRes]
	plugins  []Plugin
	logger   logging.Logger
	clone    func(TxReq) TxReq
}

// New creates a Pipeline from the four collaborator stages and optional
// configuration.
func New[TxReq, TxRes any](
	serializer Serializer[TxReq],
	signer Signer[TxReq],
	transport Transport[TxReq, TxRes],
	deserializer Deserializer[TxRes],
	optFns ...func(o *Options[TxReq, TxRes]),
) *Pipeline[TxReq, TxRes] {
	opts := Options[TxReq, TxRes]{
		Logger:         logging.NoOpLogger{},
		CloneTxRequest: func(req TxReq) TxReq { return req },
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = interceptor.NewRegistry[TxReq, TxRes](func(o *interceptor.RegistryOptions) {
			o.Logger = opts.Logger
		})
	}

	return &Pipeline[TxReq, TxRes]{
		serializer:   serializer,
		signer:       signer,
		transport:    transport,
		deserializer: deserializer,
		registry:     opts.Registry,
		plugins:      opts.Plugins,
		logger:       opts.Logger,
		clone:        opts.CloneTxRequest,
	}
}

// Registry returns the pipeline's interceptor registry for registration.
func (p *Pipeline[TxReq, TxRes]) Registry() *interceptor.Registry[TxReq, TxRes] {
	return p.registry
}

// Execute runs one end-to-end execution of an operation with the given
// modeled input. A fresh configuration bag is built from the pipeline's
// plugins. The returned values are the final modeled response exactly as
// observed by the read_after_execution hook: a success output or an error,
// indistinguishable to the caller whether it originated from the transport,
// deserialization, the retry strategy, or an interceptor.
func (p *Pipeline[TxReq, TxRes]) Execute(ctx context.Context, input any) (any, error) {
	cfg := bag.New()
	for _, pl := range p.plugins {
		if err := pl.Configure(cfg); err != nil {
			return nil, fmt.Errorf("configure plugin: %w", err)
		}
	}
	return p.ExecuteWithConfig(ctx, input, cfg)
}

// ExecuteWithConfig runs one execution against a caller-prepared
// configuration bag. The bag is mutably shared by every hook and retry
// decision of this execution and must not be used concurrently elsewhere.
func (p *Pipeline[TxReq, TxRes]) ExecuteWithConfig(ctx context.Context, input any, cfg *bag.Bag) (any, error) {
	ectx := core.NewExecutionContext[TxReq, TxRes](input)
	p.logger.Debug("execution starting", "execution_id", ectx.ExecutionID())

	if err := p.registry.ReadBeforeExecution(ctx, ectx, cfg); err != nil {
		ectx.SetError(err)
	} else if err := p.runToRetryLoop(ctx, ectx, cfg); err != nil {
		ectx.SetError(err)
	} else {
		p.runAttemptLoop(ctx, ectx, cfg)
	}

	// Recovery point for execution-scoped failures: completion hooks always
	// run, with the error recorded as the modeled response.
	if err := p.registry.ModifyBeforeCompletion(ctx, ectx, cfg); err != nil {
		ectx.SetError(err)
	}
	if err := p.registry.ReadAfterExecution(ctx, ectx, cfg); err != nil {
		ectx.SetError(err)
	}

	out, err := ectx.Response()
	if err != nil {
		p.logger.Debug("execution failed", "execution_id", ectx.ExecutionID(), "attempts", ectx.Attempt(), "error", err)
		return nil, err
	}
	p.logger.Debug("execution completed", "execution_id", ectx.ExecutionID(), "attempts", ectx.Attempt())
	return out, nil
}

// runToRetryLoop covers the once-per-execution phases between
// before_execution and loop entry: serialization and its surrounding hooks.
func (p *Pipeline[TxReq, TxRes]) runToRetryLoop(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	if err := p.registry.ModifyBeforeSerialization(ctx, ectx, cfg); err != nil {
		return err
	}
	if err := p.registry.ReadBeforeSerialization(ctx, ectx, cfg); err != nil {
		return err
	}

	req, err := p.serializer.SerializeRequest(ctx, ectx.ModeledRequest(), cfg)
	if err != nil {
		return fmt.Errorf("serialize request: %w", err)
	}
	ectx.SetTxRequest(req)

	if err := p.registry.ReadAfterSerialization(ctx, ectx, cfg); err != nil {
		return err
	}
	return p.registry.ModifyBeforeRetryLoop(ctx, ectx, cfg)
}

// runAttemptLoop gates loop entry through the retry strategy, then runs
// attempts until the strategy declines a retry or fails. The transport
// request as it stood after modify_before_retry_loop is the checkpoint every
// attempt rewinds to.
func (p *Pipeline[TxReq, TxRes]) runAttemptLoop(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) {
	strategy, ok := retry.FromBag(cfg)
	if !ok {
		strategy = retry.Never{}
	}

	if err := strategy.ShouldAttemptInitialRequest(ctx, cfg); err != nil {
		ectx.SetError(err)
		return
	}

	ectx.SaveCheckpoint(p.clone)
	for {
		ectx.BeginAttempt(p.clone)
		p.runAttempt(ctx, ectx, cfg)

		out, err := ectx.Response()
		retryable, derr := strategy.ShouldAttemptRetry(ctx, retry.Result{Output: out, Err: err}, cfg)
		if derr != nil {
			ectx.SetError(&retry.DecisionError{Err: derr})
			return
		}
		if !retryable {
			return
		}
		p.logger.Debug("retrying", "execution_id", ectx.ExecutionID(), "attempt", ectx.Attempt(), "error", err)
	}
}

// runAttempt performs one attempt. Whatever happens past before_attempt, the
// attempt-completion hooks run exactly once before the retry decision.
func (p *Pipeline[TxReq, TxRes]) runAttempt(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) {
	if err := p.registry.ReadBeforeAttempt(ctx, ectx, cfg); err != nil {
		ectx.SetError(err)
	} else if err := p.transmitAttempt(ctx, ectx, cfg); err != nil {
		ectx.SetError(err)
	}

	if err := p.registry.ModifyBeforeAttemptCompletion(ctx, ectx, cfg); err != nil {
		ectx.SetError(err)
	}
	if err := p.registry.ReadAfterAttempt(ctx, ectx, cfg); err != nil {
		ectx.SetError(err)
	}
}

// transmitAttempt covers the per-attempt phases from signing through
// deserialization. Any returned error becomes the attempt's modeled
// response and jumps to the attempt-completion hooks.
func (p *Pipeline[TxReq, TxRes]) transmitAttempt(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	if err := p.registry.ModifyBeforeSigning(ctx, ectx, cfg); err != nil {
		return err
	}
	if err := p.registry.ReadBeforeSigning(ctx, ectx, cfg); err != nil {
		return err
	}

	req, _ := ectx.TxRequest()
	signed, err := p.signer.SignRequest(ctx, req, cfg)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	ectx.SetTxRequest(signed)

	if err := p.registry.ReadAfterSigning(ctx, ectx, cfg); err != nil {
		return err
	}
	if err := p.registry.ModifyBeforeTransmit(ctx, ectx, cfg); err != nil {
		return err
	}
	if err := p.registry.ReadBeforeTransmit(ctx, ectx, cfg); err != nil {
		return err
	}

	req, _ = ectx.TxRequest()
	res, err := p.transport.RoundTrip(ctx, req, cfg)
	if err != nil {
		return fmt.Errorf("transmit request: %w", err)
	}
	ectx.SetTxResponse(res)

	if err := p.registry.ReadAfterTransmit(ctx, ectx, cfg); err != nil {
		return err
	}
	if err := p.registry.ModifyBeforeDeserialization(ctx, ectx, cfg); err != nil {
		return err
	}
	if err := p.registry.ReadBeforeDeserialization(ctx, ectx, cfg); err != nil {
		return err
	}

	res, _ = ectx.TxResponse()
	out, err := p.deserializer.DeserializeResponse(ctx, res, cfg)
	if err != nil {
		ectx.SetError(err)
	} else {
		ectx.SetOutput(out)
	}

	return p.registry.ReadAfterDeserialization(ctx, ectx, cfg)
}
