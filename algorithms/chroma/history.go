package chroma

import "github.com/RyanBlaney/sonido-tonal/algorithms/common"

// History is a bounded rolling window of chroma vectors
type History struct {
	frames *common.Ring[ChromaVector]
}

// NewHistory keeps at most size vectors
func NewHistory(size int) *History {
	return &History{frames: common.NewRing[ChromaVector](size)}
}

// Push appends a vector, evicting the oldest when full
func (h *History) Push(cv ChromaVector) {
	h.frames.Push(cv)
}

// Len returns the number of stored vectors
func (h *History) Len() int {
	return h.frames.Len()
}

// Average returns the element-wise mean, or a zero vector when empty
func (h *History) Average() ChromaVector {
	var avg ChromaVector
	n := h.frames.Len()
	if n == 0 {
		return avg
	}
	for i := range n {
		frame := h.frames.At(i)
		for pc, v := range frame {
			avg[pc] += v
		}
	}
	for pc := range avg {
		avg[pc] /= float64(n)
	}
	return avg
}

// Clear drops all vectors
func (h *History) Clear() {
	h.frames.Clear()
}
