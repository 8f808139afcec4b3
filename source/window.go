package source

import "sync"

// SampleWindow keeps the most recent Size samples of a stream. Writers
// append from a device callback while readers copy out the window, so all
// access is serialized.
type SampleWindow struct {
	mu      sync.Mutex
	buf     []float64
	pos     int
	written int64
}

// NewSampleWindow creates a window of size samples, initially silent
func NewSampleWindow(size int) *SampleWindow {
	return &SampleWindow{buf: make([]float64, max(size, 1))}
}

// Size returns the window length in samples
func (w *SampleWindow) Size() int {
	return len(w.buf)
}

// Write appends 32-bit float samples, overwriting the oldest
func (w *SampleWindow) Write(samples []float32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range samples {
		w.buf[w.pos] = float64(s)
		w.pos = (w.pos + 1) % len(w.buf)
	}
	w.written += int64(len(samples))
}

// WriteFloat64 appends samples, overwriting the oldest
func (w *SampleWindow) WriteFloat64(samples []float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range samples {
		w.buf[w.pos] = s
		w.pos = (w.pos + 1) % len(w.buf)
	}
	w.written += int64(len(samples))
}

// CopyTo writes the window oldest-first into dst, which must have Size elements
func (w *SampleWindow) CopyTo(dst []float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := copy(dst, w.buf[w.pos:])
	copy(dst[n:], w.buf[:w.pos])
}

// Written returns the total number of samples written since the last Reset
func (w *SampleWindow) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Reset silences the window
func (w *SampleWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.buf)
	w.pos = 0
	w.written = 0
}
