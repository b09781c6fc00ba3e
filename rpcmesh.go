// Package rpcmesh provides a high-level façade over the pipeline driver and
// interceptor registry for building instrumented RPC clients. Most
// applications interact with this package by:
//  1. Creating a Client via New() from the four protocol stages
//     (serializer, signer, transport, deserializer)
//  2. Registering client-scoped and operation-scoped interceptors and
//     configuration plugins such as a retry strategy
//  3. Invoking operations with Execute
//
// The façade delegates orchestration to pipeline.Pipeline while keeping setup
// and usage ergonomics concise. The defaults are safe for local development
// and testing: no retries, no logging, value-copy request cloning. Production
// deployments typically supply a retry.Standard strategy, a structured logger
// and a deep-copying CloneTxRequest for pointer-shaped transport requests.
package rpcmesh

import (
	"context"

	"github.com/hupe1980/rpcmesh/interceptor"
	"github.com/hupe1980/rpcmesh/logging"
	"github.com/hupe1980/rpcmesh/pipeline"
)

// Options configures a Client.
type Options[TxReq, TxRes any] struct {
	// ClientInterceptors run for every operation of this client, before any
	// operation-scoped interceptor.
	ClientInterceptors []interceptor.Interceptor[TxReq, TxRes]

	// OperationInterceptors run after the client-scoped ones, in
	// registration order.
	OperationInterceptors []interceptor.Interceptor[TxReq, TxRes]

	// Plugins prepare each execution's configuration bag, e.g.
	// retry.StrategyPlugin. Without one the client makes a single attempt.
	Plugins []pipeline.Plugin

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// CloneTxRequest deep-copies a transport request for the retry
	// checkpoint. Defaults to a value copy.
	CloneTxRequest func(TxReq) TxReq
}

// Client is the high-level façade aggregating the pipeline and its registry.
type Client[TxReq, TxRes any] struct {
	opts     Options[TxReq, TxRes]
	pipeline *pipeline.Pipeline[TxReq, TxRes]
}

// New creates a Client from the four protocol stages with optional overrides.
func New[TxReq, TxRes any](
	serializer pipeline.Serializer[TxReq],
	signer pipeline.Signer[TxReq],
	transport pipeline.Transport[TxReq, TxRes],
	deserializer pipeline.Deserializer[TxRes],
	optFns ...func(o *Options[TxReq, TxRes]),
) *Client[TxReq, TxRes] {
	opts := Options[TxReq, TxRes]{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry := interceptor.NewRegistry[TxReq, TxRes](func(o *interceptor.RegistryOptions) {
		o.Logger = opts.Logger
	})
	registry.AddClient(opts.ClientInterceptors...)
	registry.AddOperation(opts.OperationInterceptors...)

	p := pipeline.New(serializer, signer, transport, deserializer, func(o *pipeline.Options[TxReq, TxRes]) {
		o.Registry = registry
		o.Plugins = opts.Plugins
		o.Logger = opts.Logger
		if opts.CloneTxRequest != nil {
			o.CloneTxRequest = opts.CloneTxRequest
		}
	})

	return &Client[TxReq, TxRes]{opts: opts, pipeline: p}
}

// Registry exposes the underlying registry for registration after
// construction.
func (c *Client[TxReq, TxRes]) Registry() *interceptor.Registry[TxReq, TxRes] {
	return c.pipeline.Registry()
}

// Execute runs one operation with the given modeled input and returns its
// modeled output or error.
func (c *Client[TxReq, TxRes]) Execute(ctx context.Context, input any) (any, error) {
	return c.pipeline.Execute(ctx, input)
}
