// Package pool provides typed object pools for the hot allocation
// paths: position scratch slices during filtering and byte buffers
// during serialization.
package pool

import "sync"

// Pool is a typed wrapper over sync.Pool.
type Pool[T any] struct {
	inner sync.Pool
	reset func(T) T
}

// NewPool builds a pool producing values with newFn; reset scrubs a
// value on return and may be nil.
func NewPool[T any](newFn func() T, reset func(T) T) *Pool[T] {
	return &Pool[T]{
		inner: sync.Pool{New: func() interface{} { return newFn() }},
		reset: reset,
	}
}

// Get takes a value from the pool.
func (p *Pool[T]) Get() T {
	return p.inner.Get().(T)
}

// Put returns a value to the pool after resetting it.
func (p *Pool[T]) Put(v T) {
	if p.reset != nil {
		v = p.reset(v)
	}
	p.inner.Put(v)
}

// IntSlice pools position scratch slices. Callers append into the
// zero-length slice and return it when done.
var IntSlice = NewPool(
	func() []int { return make([]int, 0, 256) },
	func(s []int) []int { return s[:0] },
)

// Bytes pools serialization buffers.
var Bytes = NewPool(
	func() []byte { return make([]byte, 0, 4096) },
	func(b []byte) []byte { return b[:0] },
)
