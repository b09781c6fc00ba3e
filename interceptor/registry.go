package interceptor

import (
	"context"

	"github.com/hupe1980/rpcmesh/bag"
	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/logging"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Logger receives the earlier errors that collect-then-jump phases drop
	// in favor of the last one. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry holds the client-scoped and operation-scoped interceptor lists
// and dispatches each hook across them. Client interceptors always run
// before operation interceptors; within each list, registration order is
// preserved. The registry holds no per-execution state, so one instance may
// drive any number of concurrent executions.
//
// Two error policies apply, keyed by phase. Collect-then-jump phases
// (before_execution, before_attempt, after_attempt, after_execution) invoke
// every interceptor regardless of failures and keep only the last error,
// logging the ones they drop. All other phases fail fast on the first error.
// Modify dispatches additionally validate the type-preservation contract
// after every interceptor, so a violation is attributed to the interceptor
// that committed it and stops the dispatch like any other failure.
type Registry[TxReq, TxRes any] struct {
	client    []Interceptor[TxReq, TxRes]
	operation []Interceptor[TxReq, TxRes]
	logger    logging.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry[TxReq, TxRes any](optFns ...func(o *RegistryOptions)) *Registry[TxReq, TxRes] {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry[TxReq, TxRes]{logger: opts.Logger}
}

// AddClient appends interceptors to the client-scoped list. Registration
// order is significant and preserved.
func (r *Registry[TxReq, TxRes]) AddClient(interceptors ...Interceptor[TxReq, TxRes]) {
	r.client = append(r.client, interceptors...)
}

// AddOperation appends interceptors to the operation-scoped list.
// Registration order is significant and preserved.
func (r *Registry[TxReq, TxRes]) AddOperation(interceptors ...Interceptor[TxReq, TxRes]) {
	r.operation = append(r.operation, interceptors...)
}

type hookFn[TxReq, TxRes any] func(Interceptor[TxReq, TxRes]) error

// failFast stops at the first interceptor error.
func (r *Registry[TxReq, TxRes]) failFast(phase core.Phase, hook string, fn hookFn[TxReq, TxRes]) error {
	for _, list := range [][]Interceptor[TxReq, TxRes]{r.client, r.operation} {
		for _, i := range list {
			if err := fn(i); err != nil {
				return &Error{Phase: phase, Hook: hook, Err: err}
			}
		}
	}
	return nil
}

// failFastChecked runs check after each interceptor to enforce the modify
// hooks' type-preservation contract. A check failure aborts the dispatch
// exactly like a hook error.
func (r *Registry[TxReq, TxRes]) failFastChecked(phase core.Phase, hook string, fn hookFn[TxReq, TxRes], check func() error) error {
	for _, list := range [][]Interceptor[TxReq, TxRes]{r.client, r.operation} {
		for _, i := range list {
			if err := fn(i); err != nil {
				return &Error{Phase: phase, Hook: hook, Err: err}
			}
			if err := check(); err != nil {
				return &Error{Phase: phase, Hook: hook, Err: err}
			}
		}
	}
	return nil
}

// collect invokes every interceptor regardless of failures; the last error
// wins and earlier ones are logged and dropped.
func (r *Registry[TxReq, TxRes]) collect(phase core.Phase, hook string, fn hookFn[TxReq, TxRes]) error {
	var last error
	for _, list := range [][]Interceptor[TxReq, TxRes]{r.client, r.operation} {
		for _, i := range list {
			err := fn(i)
			if err == nil {
				continue
			}
			if last != nil {
				r.logger.Warn("dropping superseded interceptor error", "hook", hook, "error", last)
			}
			last = err
		}
	}
	if last != nil {
		return &Error{Phase: phase, Hook: hook, Err: last}
	}
	return nil
}

// ReadBeforeExecution dispatches the read_before_execution hook.
func (r *Registry[TxReq, TxRes]) ReadBeforeExecution(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.collect(core.PhaseBeforeExecution, "read_before_execution", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadBeforeExecution(ctx, ectx, cfg)
	})
}

// ModifyBeforeSerialization dispatches the modify_before_serialization hook,
// enforcing that the modeled request keeps its concrete type.
func (r *Registry[TxReq, TxRes]) ModifyBeforeSerialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFastChecked(core.PhaseBeforeSerialization, "modify_before_serialization", func(i Interceptor[TxReq, TxRes]) error {
		return i.ModifyBeforeSerialization(ctx, ectx, cfg)
	}, ectx.CheckModeledRequestType)
}

// ReadBeforeSerialization dispatches the read_before_serialization hook.
func (r *Registry[TxReq, TxRes]) ReadBeforeSerialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseBeforeSerialization, "read_before_serialization", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadBeforeSerialization(ctx, ectx, cfg)
	})
}

// ReadAfterSerialization dispatches the read_after_serialization hook.
func (r *Registry[TxReq, TxRes]) ReadAfterSerialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseAfterSerialization, "read_after_serialization", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadAfterSerialization(ctx, ectx, cfg)
	})
}

// ModifyBeforeRetryLoop dispatches the modify_before_retry_loop hook. The
// transport request slot is statically typed, so same-type replacement is
// enforced by the compiler.
func (r *Registry[TxReq, TxRes]) ModifyBeforeRetryLoop(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseBeforeRetryLoop, "modify_before_retry_loop", func(i Interceptor[TxReq, TxRes]) error {
		return i.ModifyBeforeRetryLoop(ctx, ectx, cfg)
	})
}

// ReadBeforeAttempt dispatches the read_before_attempt hook.
func (r *Registry[TxReq, TxRes]) ReadBeforeAttempt(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.collect(core.PhaseBeforeAttempt, "read_before_attempt", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadBeforeAttempt(ctx, ectx, cfg)
	})
}

// ModifyBeforeSigning dispatches the modify_before_signing hook.
func (r *Registry[TxReq, TxRes]) ModifyBeforeSigning(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseBeforeSigning, "modify_before_signing", func(i Interceptor[TxReq, TxRes]) error {
		return i.ModifyBeforeSigning(ctx, ectx, cfg)
	})
}

// ReadBeforeSigning dispatches the read_before_signing hook.
func (r *Registry[TxReq, TxRes]) ReadBeforeSigning(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseBeforeSigning, "read_before_signing", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadBeforeSigning(ctx, ectx, cfg)
	})
}

// ReadAfterSigning dispatches the read_after_signing hook.
func (r *Registry[TxReq, TxRes]) ReadAfterSigning(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseAfterSigning, "read_after_signing", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadAfterSigning(ctx, ectx, cfg)
	})
}

// ModifyBeforeTransmit dispatches the modify_before_transmit hook.
func (r *Registry[TxReq, TxRes]) ModifyBeforeTransmit(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseBeforeTransmit, "modify_before_transmit", func(i Interceptor[TxReq, TxRes]) error {
		return i.ModifyBeforeTransmit(ctx, ectx, cfg)
	})
}

// ReadBeforeTransmit dispatches the read_before_transmit hook.
func (r *Registry[TxReq, TxRes]) ReadBeforeTransmit(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseBeforeTransmit, "read_before_transmit", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadBeforeTransmit(ctx, ectx, cfg)
	})
}

// ReadAfterTransmit dispatches the read_after_transmit hook.
func (r *Registry[TxReq, TxRes]) ReadAfterTransmit(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseAfterTransmit, "read_after_transmit", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadAfterTransmit(ctx, ectx, cfg)
	})
}

// ModifyBeforeDeserialization dispatches the modify_before_deserialization hook.
func (r *Registry[TxReq, TxRes]) ModifyBeforeDeserialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseBeforeDeserialization, "modify_before_deserialization", func(i Interceptor[TxReq, TxRes]) error {
		return i.ModifyBeforeDeserialization(ctx, ectx, cfg)
	})
}

// ReadBeforeDeserialization dispatches the read_before_deserialization hook.
func (r *Registry[TxReq, TxRes]) ReadBeforeDeserialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseBeforeDeserialization, "read_before_deserialization", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadBeforeDeserialization(ctx, ectx, cfg)
	})
}

// ReadAfterDeserialization dispatches the read_after_deserialization hook.
func (r *Registry[TxReq, TxRes]) ReadAfterDeserialization(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFast(core.PhaseAfterDeserialization, "read_after_deserialization", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadAfterDeserialization(ctx, ectx, cfg)
	})
}

// ModifyBeforeAttemptCompletion dispatches the modify_before_attempt_completion
// hook, enforcing that a replaced success output matches the operation's
// output type. Error replacements of any type are accepted.
func (r *Registry[TxReq, TxRes]) ModifyBeforeAttemptCompletion(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFastChecked(core.PhaseBeforeAttemptCompletion, "modify_before_attempt_completion", func(i Interceptor[TxReq, TxRes]) error {
		return i.ModifyBeforeAttemptCompletion(ctx, ectx, cfg)
	}, ectx.CheckModeledResponseType)
}

// ReadAfterAttempt dispatches the read_after_attempt hook.
func (r *Registry[TxReq, TxRes]) ReadAfterAttempt(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.collect(core.PhaseAfterAttempt, "read_after_attempt", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadAfterAttempt(ctx, ectx, cfg)
	})
}

// ModifyBeforeCompletion dispatches the modify_before_completion hook,
// enforcing the same output type contract as ModifyBeforeAttemptCompletion.
func (r *Registry[TxReq, TxRes]) ModifyBeforeCompletion(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.failFastChecked(core.PhaseBeforeCompletion, "modify_before_completion", func(i Interceptor[TxReq, TxRes]) error {
		return i.ModifyBeforeCompletion(ctx, ectx, cfg)
	}, ectx.CheckModeledResponseType)
}

// ReadAfterExecution dispatches the read_after_execution hook.
func (r *Registry[TxReq, TxRes]) ReadAfterExecution(ctx context.Context, ectx *core.ExecutionContext[TxReq, TxRes], cfg *bag.Bag) error {
	return r.collect(core.PhaseAfterExecution, "read_after_execution", func(i Interceptor[TxReq, TxRes]) error {
		return i.ReadAfterExecution(ctx, ectx, cfg)
	})
}
