package common

// Ring is a fixed-capacity FIFO that overwrites its oldest element when full.
// It is not safe for concurrent use.
type Ring[T any] struct {
	buffer   []T
	size     int
	writePos int
	count    int
}

// NewRing creates a ring holding at most size elements. A size below 1 is treated as 1.
func NewRing[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}
	return &Ring[T]{
		buffer: make([]T, size),
		size:   size,
	}
}

// Push appends v, evicting the oldest element if the ring is full.
// It reports whether an element was evicted.
func (r *Ring[T]) Push(v T) bool {
	evicted := r.count == r.size
	r.buffer[r.writePos] = v
	r.writePos = (r.writePos + 1) % r.size
	if !evicted {
		r.count++
	}
	return evicted
}

// Len returns the number of stored elements
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the capacity
func (r *Ring[T]) Cap() int {
	return r.size
}

// IsFull returns true if the ring is at capacity
func (r *Ring[T]) IsFull() bool {
	return r.count == r.size
}

// At returns the i-th element counted from the oldest
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("common: ring index out of range")
	}
	start := (r.writePos - r.count + r.size) % r.size
	return r.buffer[(start+i)%r.size]
}

// Slice copies the contents oldest-first
func (r *Ring[T]) Slice() []T {
	out := make([]T, r.count)
	for i := range r.count {
		out[i] = r.At(i)
	}
	return out
}

// Last returns up to n most recent elements, oldest-first
func (r *Ring[T]) Last(n int) []T {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	offset := r.count - n
	for i := range n {
		out[i] = r.At(offset + i)
	}
	return out
}

// Clear empties the ring
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buffer {
		r.buffer[i] = zero
	}
	r.writePos = 0
	r.count = 0
}
