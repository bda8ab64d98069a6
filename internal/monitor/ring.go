package monitor

// Ring is a fixed-capacity circular buffer. Once full, each Push overwrites the oldest value.
type Ring[T any] struct {
	buf   []T
	start int
	n     int
}

// NewRing returns an empty ring holding at most capacity values.
func NewRing[T any](capacity int) *Ring[T] {
	return &Ring[T]{buf: make([]T, max(capacity, 0))}
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Len returns the number of stored values.
func (r *Ring[T]) Len() int { return r.n }

// Push appends v, dropping the oldest value when the ring is full.
func (r *Ring[T]) Push(v T) {
	if len(r.buf) == 0 {
		return
	}
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// At returns the i-th value, oldest first.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.n {
		panic("monitor: ring index out of range")
	}
	return r.buf[(r.start+i)%len(r.buf)]
}

// Latest returns the most recent value.
func (r *Ring[T]) Latest() (T, bool) {
	if r.n == 0 {
		var zero T
		return zero, false
	}
	return r.At(r.n - 1), true
}

// Values copies the stored values, oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.n)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}

// Tail copies up to n of the most recent values, oldest first.
func (r *Ring[T]) Tail(n int) []T {
	n = min(max(n, 0), r.n)
	out := make([]T, n)
	for i := range out {
		out[i] = r.At(r.n - n + i)
	}
	return out
}

// Resize changes the capacity, keeping the newest values that still fit.
func (r *Ring[T]) Resize(capacity int) {
	capacity = max(capacity, 0)
	if capacity == len(r.buf) {
		return
	}
	kept := r.Tail(capacity)
	r.buf = make([]T, capacity)
	copy(r.buf, kept)
	r.start = 0
	r.n = len(kept)
}

// Clear drops every value and keeps the capacity.
func (r *Ring[T]) Clear() {
	clear(r.buf)
	r.start = 0
	r.n = 0
}
