package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/rpcmesh/bag"
	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/interceptor"
)

const tracerName = "github.com/hupe1980/rpcmesh"

// executionSpan and attemptSpan live in the configuration bag rather than on
// the interceptor, which is shared across concurrent executions.
type executionSpan struct {
	ctx  context.Context
	span trace.Span
}

type attemptSpan struct {
	span trace.Span
}

// TracingOptions configures a TracingInterceptor.
type TracingOptions struct {
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// SpanName names the execution span; attempt spans append ".attempt".
	// Defaults to "rpc.execute".
	SpanName string
}

// TracingInterceptor emits one OpenTelemetry span per execution with a child
// span per attempt. Attempt spans carry the attempt number and record the
// attempt's error; the execution span carries the total attempt count and
// the final outcome.
type TracingInterceptor[TxReq, TxRes any] struct {
	interceptor.Nop[TxReq, TxRes]

	tracer trace.Tracer
	name   string
}

// NewTracingInterceptor creates a TracingInterceptor.
func NewTracingInterceptor[TxReq, TxRes any](optFns ...func(o *TracingOptions)) *TracingInterceptor[TxReq, TxRes] {
	opts := TracingOptions{
		TracerProvider: otel.GetTracerProvider(),
		SpanName:       "rpc.execute",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &TracingInterceptor[TxReq, TxRes]{
		tracer: opts.TracerProvider.Tracer(tracerName),
		name:   opts.SpanName,
	}
}

// ReadBeforeExecution opens the execution span.
func (t *TracingInterceptor[TxReq, TxRes]) ReadBeforeExecution(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	sctx, span := t.tracer.Start(ctx, t.name, trace.WithAttributes(
		attribute.String("rpc.execution_id", ectx.ExecutionID()),
	))
	bag.Put(cfg, executionSpan{ctx: sctx, span: span})
	return nil
}

// ReadBeforeAttempt opens an attempt span as a child of the execution span.
func (t *TracingInterceptor[TxReq, TxRes]) ReadBeforeAttempt(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	parent := ctx
	if es, ok := bag.Get[executionSpan](cfg); ok {
		parent = es.ctx
	}
	_, span := t.tracer.Start(parent, t.name+".attempt", trace.WithAttributes(
		attribute.Int("rpc.attempt", ectx.Attempt()),
	))
	bag.Put(cfg, attemptSpan{span: span})
	return nil
}

// ReadAfterAttempt closes the attempt span with the attempt's outcome.
func (t *TracingInterceptor[TxReq, TxRes]) ReadAfterAttempt(_ context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	as, ok := bag.Get[attemptSpan](cfg)
	if !ok {
		return nil
	}
	if _, err := ectx.Response(); err != nil {
		as.span.RecordError(err)
		as.span.SetStatus(codes.Error, err.Error())
	} else {
		as.span.SetStatus(codes.Ok, "")
	}
	as.span.End()
	bag.Delete[attemptSpan](cfg)
	return nil
}

// ReadAfterExecution closes the execution span with the final outcome.
func (t *TracingInterceptor[TxReq, TxRes]) ReadAfterExecution(_ context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	es, ok := bag.Get[executionSpan](cfg)
	if !ok {
		return nil
	}
	es.span.SetAttributes(attribute.Int("rpc.attempts", ectx.Attempt()))
	if _, err := ectx.Response(); err != nil {
		es.span.RecordError(err)
		es.span.SetStatus(codes.Error, err.Error())
	} else {
		es.span.SetStatus(codes.Ok, "")
	}
	es.span.End()
	bag.Delete[executionSpan](cfg)
	return nil
}
