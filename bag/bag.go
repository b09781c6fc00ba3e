package bag

import "reflect"

// Bag is a typed key/value store keyed by Go type identity. One Bag is
// threaded through every interceptor hook and retry decision of a single
// execution, carrying cross-cutting policy objects (the active retry
// strategy, tracing state, caller supplied configuration).
//
// A Bag is not safe for concurrent mutation. Hook dispatch within one
// execution is strictly sequential, so no locking is required; executions
// that run concurrently must each use their own Bag.
type Bag struct {
	values map[reflect.Type]any
}

// New creates an empty Bag.
func New() *Bag {
	return &Bag{values: make(map[reflect.Type]any)}
}

// Put stores v under the type identity of T, overwriting any previous value
// of that type. Storing under an interface type (Put[MyInterface](b, impl))
// keys by the interface, not the concrete implementation.
func Put[T any](b *Bag, v T) {
	b.values[reflect.TypeFor[T]()] = v
}

// Get retrieves the value stored under the type identity of T. The boolean
// reports whether a value was present.
func Get[T any](b *Bag) (T, bool) {
	v, ok := b.values[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Has reports whether a value is stored under the type identity of T.
func Has[T any](b *Bag) bool {
	_, ok := b.values[reflect.TypeFor[T]()]
	return ok
}

// Delete removes the value stored under the type identity of T, if any.
func Delete[T any](b *Bag) {
	delete(b.values, reflect.TypeFor[T]())
}

// Len returns the number of stored values.
func (b *Bag) Len() int { return len(b.values) }

// Clone returns a shallow copy of the Bag. Executions sharing policy objects
// conventionally clone a base Bag so per-execution insertions stay isolated.
func (b *Bag) Clone() *Bag {
	nb := New()
	for k, v := range b.values {
		nb.values[k] = v
	}
	return nb
}
