package misc

import "sync"

// Resetter is implemented by values that can be cleared for reuse.
type Resetter interface {
	Reset()
}

// Pool is a typed sync.Pool that resets values on Put.
type Pool[T Resetter] struct {
	p    sync.Pool
	keep func(T) bool
}

// NewPool creates a Pool whose empty slots are filled by newFn.
func NewPool[T Resetter](newFn func() T) *Pool[T] {
	pl := &Pool[T]{}
	pl.p.New = func() any {
		if newFn != nil {
			return newFn()
		}
		var zero T
		return zero
	}
	return pl
}

// SetKeep installs a filter consulted on Put; values it rejects are left to the
// garbage collector. Use it to avoid retaining oversized buffers.
func (pl *Pool[T]) SetKeep(fn func(T) bool) {
	pl.keep = fn
}

// Get retrieves a value from the pool.
func (pl *Pool[T]) Get() T {
	obj := pl.p.Get()
	if value, ok := obj.(T); ok {
		return value
	}
	var zero T
	return zero
}

// Put resets v and returns it to the pool.
func (pl *Pool[T]) Put(v T) {
	if pl.keep != nil && !pl.keep(v) {
		return
	}
	v.Reset()
	pl.p.Put(v)
}
