package interceptor

import (
	"context"

	"github.com/hupe1980/rpcmesh/bag"
	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/logging"
)

// LoggingInterceptor emits structured log lines at the coarse lifecycle
// points of an execution: start, end of each attempt, and completion. It is
// useful for debugging, monitoring, and audit trails.
//
// The interceptor keeps no per-execution state and is safe to register once
// on a client shared by concurrent executions.
type LoggingInterceptor[TxReq, TxRes any] struct {
	Nop[TxReq, TxRes]
	logger logging.Logger
}

// NewLoggingInterceptor creates a LoggingInterceptor writing to logger.
func NewLoggingInterceptor[TxReq, TxRes any](logger logging.Logger) *LoggingInterceptor[TxReq, TxRes] {
	return &LoggingInterceptor[TxReq, TxRes]{logger: logger}
}

// ReadBeforeExecution logs the start of the execution.
func (l *LoggingInterceptor[TxReq, TxRes]) ReadBeforeExecution(_ context.Context, ectx *core.ExecutionContext[TxReq, TxRes], _ *bag.Bag) error {
	l.logger.Debug("execution started", "execution_id", ectx.ExecutionID())
	return nil
}

// ReadAfterAttempt logs the outcome of the attempt that just completed.
func (l *LoggingInterceptor[TxReq, TxRes]) ReadAfterAttempt(_ context.Context, ectx *core.ExecutionContext[TxReq, TxRes], _ *bag.Bag) error {
	if _, err := ectx.Response(); err != nil {
		l.logger.Debug("attempt failed", "execution_id", ectx.ExecutionID(), "attempt", ectx.Attempt(), "error", err)
		return nil
	}
	l.logger.Debug("attempt succeeded", "execution_id", ectx.ExecutionID(), "attempt", ectx.Attempt())
	return nil
}

// ReadAfterExecution logs the final outcome of the execution.
func (l *LoggingInterceptor[TxReq, TxRes]) ReadAfterExecution(_ context.Context, ectx *core.ExecutionContext[TxReq, TxRes], _ *bag.Bag) error {
	if _, err := ectx.Response(); err != nil {
		l.logger.Info("execution failed", "execution_id", ectx.ExecutionID(), "attempts", ectx.Attempt(), "error", err)
		return nil
	}
	l.logger.Info("execution completed", "execution_id", ectx.ExecutionID(), "attempts", ectx.Attempt())
	return nil
}
