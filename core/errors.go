package core

import (
	"fmt"
	"reflect"
)

// TypeError reports a modify hook replacing a dynamically typed context slot
// with a value of a different concrete type than the slot's contract allows.
type TypeError struct {
	Slot string
	Want reflect.Type
	Got  reflect.Type
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("%s replaced with value of type %v, want %v", e.Slot, e.Got, e.Want)
}
