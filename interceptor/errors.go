package interceptor

import (
	"fmt"

	"github.com/hupe1980/rpcmesh/core"
)

// Error is a dispatch error: an interceptor hook failed, or a modify hook
// violated the type-preservation contract. Hook names the hook that raised
// it ("modify_before_signing", ...); Phase drives the recovery jump.
type Error struct {
	Phase core.Phase
	Hook  string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("interceptor %s: %v", e.Hook, e.Err)
}

// Unwrap returns the underlying hook error.
func (e *Error) Unwrap() error { return e.Err }
