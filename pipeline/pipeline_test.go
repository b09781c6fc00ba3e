package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rpcmesh/bag"
	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/interceptor"
	"github.com/hupe1980/rpcmesh/retry"
)

type ectx = core.ExecutionContext[string, string]

// recorder implements every hook, appending its name to a shared trace and
// failing where scripted.
type recorder struct {
	trace  *[]string
	failAt map[string]error
}

func newRecorder(trace *[]string) *recorder {
	return &recorder{trace: trace, failAt: map[string]error{}}
}

func (r *recorder) hook(name string) error {
	*r.trace = append(*r.trace, name)
	return r.failAt[name]
}

func (r *recorder) ReadBeforeExecution(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_before_execution")
}

func (r *recorder) ModifyBeforeSerialization(context.Context, *ectx, *bag.Bag) error {
	return r.hook("modify_before_serialization")
}

func (r *recorder) ReadBeforeSerialization(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_before_serialization")
}

func (r *recorder) ReadAfterSerialization(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_after_serialization")
}

func (r *recorder) ModifyBeforeRetryLoop(context.Context, *ectx, *bag.Bag) error {
	return r.hook("modify_before_retry_loop")
}

func (r *recorder) ReadBeforeAttempt(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_before_attempt")
}

func (r *recorder) ModifyBeforeSigning(context.Context, *ectx, *bag.Bag) error {
	return r.hook("modify_before_signing")
}

func (r *recorder) ReadBeforeSigning(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_before_signing")
}

func (r *recorder) ReadAfterSigning(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_after_signing")
}

func (r *recorder) ModifyBeforeTransmit(context.Context, *ectx, *bag.Bag) error {
	return r.hook("modify_before_transmit")
}

func (r *recorder) ReadBeforeTransmit(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_before_transmit")
}

func (r *recorder) ReadAfterTransmit(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_after_transmit")
}

func (r *recorder) ModifyBeforeDeserialization(context.Context, *ectx, *bag.Bag) error {
	return r.hook("modify_before_deserialization")
}

func (r *recorder) ReadBeforeDeserialization(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_before_deserialization")
}

func (r *recorder) ReadAfterDeserialization(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_after_deserialization")
}

func (r *recorder) ModifyBeforeAttemptCompletion(context.Context, *ectx, *bag.Bag) error {
	return r.hook("modify_before_attempt_completion")
}

func (r *recorder) ReadAfterAttempt(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_after_attempt")
}

func (r *recorder) ModifyBeforeCompletion(context.Context, *ectx, *bag.Bag) error {
	return r.hook("modify_before_completion")
}

func (r *recorder) ReadAfterExecution(context.Context, *ectx, *bag.Bag) error {
	return r.hook("read_after_execution")
}

// scriptedStrategy admits the initial request unless initialErr is set and
// grants retriesLeft retries before declining.
type scriptedStrategy struct {
	initialErr  error
	decisionErr error
	retriesLeft int

	retryCalls int
}

func (s *scriptedStrategy) ShouldAttemptInitialRequest(context.Context, *bag.Bag) error {
	return s.initialErr
}

func (s *scriptedStrategy) ShouldAttemptRetry(_ context.Context, res retry.Result, _ *bag.Bag) (bool, error) {
	s.retryCalls++
	if s.decisionErr != nil {
		return false, s.decisionErr
	}
	if res.Err == nil || s.retriesLeft == 0 {
		return false, nil
	}
	s.retriesLeft--
	return true, nil
}

// flakyTransport fails the first failures round trips, then echoes.
type flakyTransport struct {
	failures int
	calls    int
	seen     []string
}

func (t *flakyTransport) RoundTrip(_ context.Context, req string, _ *bag.Bag) (string, error) {
	t.calls++
	t.seen = append(t.seen, req)
	if t.calls <= t.failures {
		return "", fmt.Errorf("connection reset")
	}
	return "res(" + req + ")", nil
}

func newTestPipeline(transport Transport[string, string], optFns ...func(o *Options[string, string])) *Pipeline[string, string] {
	return New[string, string](
		SerializerFunc[string](func(_ context.Context, in any, _ *bag.Bag) (string, error) {
			return "req:" + in.(string), nil
		}),
		SignerFunc[string](func(_ context.Context, req string, _ *bag.Bag) (string, error) {
			return req + ":signed", nil
		}),
		transport,
		DeserializerFunc[string](func(_ context.Context, res string, _ *bag.Bag) (any, error) {
			return "out:" + res, nil
		}),
		optFns...,
	)
}

func withStrategy(s retry.Strategy) func(o *Options[string, string]) {
	return func(o *Options[string, string]) {
		o.Plugins = append(o.Plugins, retry.StrategyPlugin{Strategy: s})
	}
}

func TestPipeline_SuccessLifecycleOrder(t *testing.T) {
	var trace []string
	p := newTestPipeline(&flakyTransport{})
	p.Registry().AddClient(newRecorder(&trace))

	out, err := p.Execute(context.Background(), "in")
	require.NoError(t, err)
	assert.Equal(t, "out:res(req:in:signed)", out)

	assert.Equal(t, []string{
		"read_before_execution",
		"modify_before_serialization",
		"read_before_serialization",
		"read_after_serialization",
		"modify_before_retry_loop",
		"read_before_attempt",
		"modify_before_signing",
		"read_before_signing",
		"read_after_signing",
		"modify_before_transmit",
		"read_before_transmit",
		"read_after_transmit",
		"modify_before_deserialization",
		"read_before_deserialization",
		"read_after_deserialization",
		"modify_before_attempt_completion",
		"read_after_attempt",
		"modify_before_completion",
		"read_after_execution",
	}, trace)
}

// txRequestMutator rewrites the transport request before signing and records
// what the transport is about to see.
type txRequestMutator struct {
	interceptor.Nop[string, string]
}

func (txRequestMutator) ModifyBeforeSigning(_ context.Context, ectx *ectx, _ *bag.Bag) error {
	req, _ := ectx.TxRequest()
	ectx.SetTxRequest(req + ":mut")
	return nil
}

func TestPipeline_AttemptIsolation(t *testing.T) {
	transport := &flakyTransport{failures: 1}
	strategy := &scriptedStrategy{retriesLeft: 1}
	p := newTestPipeline(transport, withStrategy(strategy))
	p.Registry().AddClient(txRequestMutator{})

	out, err := p.Execute(context.Background(), "in")
	require.NoError(t, err)
	assert.Equal(t, "out:res(req:in:mut:signed)", out)

	// Each attempt rewinds to the checkpoint, so the mutation does not
	// accumulate across attempts.
	assert.Equal(t, []string{"req:in:mut:signed", "req:in:mut:signed"}, transport.seen)
}

func TestPipeline_InitialAdmissionRejected(t *testing.T) {
	admissionErr := errors.New("token bucket exhausted")
	var trace []string
	p := newTestPipeline(&flakyTransport{}, withStrategy(&scriptedStrategy{initialErr: admissionErr}))
	p.Registry().AddClient(newRecorder(&trace))

	out, err := p.Execute(context.Background(), "in")
	require.ErrorIs(t, err, admissionErr)
	assert.Nil(t, out)

	// No attempt ever starts. The rejection jumps straight from loop entry
	// to the completion hooks.
	assert.NotContains(t, trace, "read_before_attempt")
	assert.NotContains(t, trace, "read_after_attempt")
	assert.Contains(t, trace, "modify_before_retry_loop")
	assert.Contains(t, trace, "modify_before_completion")
	assert.Contains(t, trace, "read_after_execution")
}

func TestPipeline_RetryLoopRunsAttempts(t *testing.T) {
	var trace []string
	transport := &flakyTransport{failures: 10}
	strategy := &scriptedStrategy{retriesLeft: 2}
	p := newTestPipeline(transport, withStrategy(strategy))
	p.Registry().AddClient(newRecorder(&trace))

	_, err := p.Execute(context.Background(), "in")
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")

	attempts := 0
	for _, h := range trace {
		if h == "read_before_attempt" {
			attempts++
		}
	}
	assert.Equal(t, 3, attempts, "two granted retries make three attempts")
	assert.Equal(t, 3, transport.calls)
	assert.Equal(t, 3, strategy.retryCalls)
}

// terminalObserver snapshots the modeled response as read_after_execution
// sees it.
type terminalObserver struct {
	interceptor.Nop[string, string]
	sawResponse bool
	sawErr      error
	sawRequest  any
}

func (o *terminalObserver) ReadAfterExecution(_ context.Context, ectx *ectx, _ *bag.Bag) error {
	o.sawResponse = ectx.HasResponse()
	_, o.sawErr = ectx.Response()
	o.sawRequest = ectx.ModeledRequest()
	return nil
}

func TestPipeline_AfterExecutionSeesEarlyFailure(t *testing.T) {
	vetoErr := errors.New("missing credentials")
	var trace []string
	rec := newRecorder(&trace)
	rec.failAt["read_before_execution"] = vetoErr

	obs := &terminalObserver{}
	p := newTestPipeline(&flakyTransport{})
	p.Registry().AddClient(rec)
	p.Registry().AddOperation(obs)

	_, err := p.Execute(context.Background(), "in")
	require.ErrorIs(t, err, vetoErr)

	// Even the earliest possible failure is visible as a modeled response at
	// the end of the lifecycle, with the modeled request still attached.
	assert.True(t, obs.sawResponse)
	assert.ErrorIs(t, obs.sawErr, vetoErr)
	assert.Equal(t, "in", obs.sawRequest)

	assert.NotContains(t, trace, "modify_before_serialization")
	assert.Contains(t, trace, "modify_before_completion")
	assert.Contains(t, trace, "read_after_execution")
}

func TestPipeline_DecisionErrorIsFatal(t *testing.T) {
	cause := errors.New("retry state corrupt")
	transport := &flakyTransport{failures: 10}
	p := newTestPipeline(transport, withStrategy(&scriptedStrategy{decisionErr: cause, retriesLeft: 5}))

	_, err := p.Execute(context.Background(), "in")
	require.Error(t, err)

	var derr *retry.DecisionError
	require.ErrorAs(t, err, &derr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, transport.calls, "a failed decision ends the loop, it never grants a retry")
}

func TestPipeline_SerializerErrorJumpsToCompletion(t *testing.T) {
	var trace []string
	p := New[string, string](
		SerializerFunc[string](func(context.Context, any, *bag.Bag) (string, error) {
			return "", errors.New("unencodable input")
		}),
		SignerFunc[string](func(_ context.Context, req string, _ *bag.Bag) (string, error) { return req, nil }),
		&flakyTransport{},
		DeserializerFunc[string](func(_ context.Context, res string, _ *bag.Bag) (any, error) { return res, nil }),
	)
	p.Registry().AddClient(newRecorder(&trace))

	_, err := p.Execute(context.Background(), "in")
	require.Error(t, err)
	assert.ErrorContains(t, err, "serialize request")

	assert.NotContains(t, trace, "read_after_serialization")
	assert.NotContains(t, trace, "read_before_attempt")
	assert.Contains(t, trace, "modify_before_completion")
	assert.Contains(t, trace, "read_after_execution")
}

func TestPipeline_PluginConfigureError(t *testing.T) {
	p := newTestPipeline(&flakyTransport{}, func(o *Options[string, string]) {
		o.Plugins = append(o.Plugins, PluginFunc(func(*bag.Bag) error {
			return errors.New("bad config")
		}))
	})

	_, err := p.Execute(context.Background(), "in")
	require.Error(t, err)
	assert.ErrorContains(t, err, "configure plugin")
}

// fallbackInterceptor turns a failed execution into a default output at the
// final modify hook.
type fallbackInterceptor struct {
	interceptor.Nop[string, string]
}

func (fallbackInterceptor) ModifyBeforeCompletion(_ context.Context, ectx *ectx, _ *bag.Bag) error {
	if _, err := ectx.Response(); err != nil {
		ectx.SetOutput("fallback")
	}
	return nil
}

func TestPipeline_CompletionHookReplacesError(t *testing.T) {
	transport := &flakyTransport{failures: 10}
	p := newTestPipeline(transport)
	p.Registry().AddClient(fallbackInterceptor{})

	out, err := p.Execute(context.Background(), "in")
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestPipeline_DeserializedOutputUsesHookModifiedResponse(t *testing.T) {
	p := New[string, string](
		SerializerFunc[string](func(_ context.Context, in any, _ *bag.Bag) (string, error) {
			return in.(string), nil
		}),
		SignerFunc[string](func(_ context.Context, req string, _ *bag.Bag) (string, error) { return req, nil }),
		TransportFunc[string, string](func(_ context.Context, req string, _ *bag.Bag) (string, error) {
			return "RAW", nil
		}),
		DeserializerFunc[string](func(_ context.Context, res string, _ *bag.Bag) (any, error) {
			return strings.ToLower(res), nil
		}),
	)
	p.Registry().AddClient(responseRewriter{})

	out, err := p.Execute(context.Background(), "in")
	require.NoError(t, err)
	assert.Equal(t, "raw+patched", out, "deserializer must read the response as modified by hooks")
}

type responseRewriter struct {
	interceptor.Nop[string, string]
}

func (responseRewriter) ModifyBeforeDeserialization(_ context.Context, ectx *ectx, _ *bag.Bag) error {
	res, _ := ectx.TxResponse()
	ectx.SetTxResponse(res + "+PATCHED")
	return nil
}
