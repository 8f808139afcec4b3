// Package windowing provides tapering windows with cached coefficients
package windowing

import (
	"fmt"
	"strings"

	"github.com/mjibson/go-dsp/window"
)

// Type names a window shape
type Type string

const (
	Hann        Type = "hann"
	Hamming     Type = "hamming"
	Blackman    Type = "blackman"
	Bartlett    Type = "bartlett"
	FlatTop     Type = "flattop"
	Rectangular Type = "rectangular"
)

var generators = map[Type]func(int) []float64{
	Hann:        window.Hann,
	Hamming:     window.Hamming,
	Blackman:    window.Blackman,
	Bartlett:    window.Bartlett,
	FlatTop:     window.FlatTop,
	Rectangular: window.Rectangular,
}

// Types returns the supported window names
func Types() []Type {
	return []Type{Hann, Hamming, Blackman, Bartlett, FlatTop, Rectangular}
}

// ParseType resolves a window name; the empty string selects Hann
func ParseType(name string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	if t == "" {
		return Hann, nil
	}
	if _, ok := generators[t]; !ok {
		return "", fmt.Errorf("unknown window %q", name)
	}
	return t, nil
}

// Window is a symmetric window of fixed size
type Window struct {
	kind         Type
	coefficients []float64
}

// New creates a window of the given type and size
func New(kind Type, size int) (*Window, error) {
	gen, ok := generators[kind]
	if !ok {
		return nil, fmt.Errorf("unknown window %q", kind)
	}

	w := &Window{kind: kind}
	switch {
	case size <= 0:
		w.coefficients = []float64{}
	case size == 1:
		w.coefficients = []float64{1}
	default:
		w.coefficients = gen(size)
	}
	return w, nil
}

// NewHann creates a Hann window of the given size
func NewHann(size int) *Window {
	w, _ := New(Hann, size)
	return w
}

// Apply applies the window to a signal (creates new array)
func (w *Window) Apply(signal []float64) []float64 {
	if len(signal) != len(w.coefficients) {
		return nil
	}

	windowed := make([]float64, len(signal))
	for i, c := range w.coefficients {
		windowed[i] = signal[i] * c
	}
	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != len(w.coefficients) {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), len(w.coefficients))
	}

	for i, c := range w.coefficients {
		signal[i] *= c
	}
	return nil
}

// GetCoefficients returns a copy of the window coefficients
func (w *Window) GetCoefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// GetSize returns the window size
func (w *Window) GetSize() int {
	return len(w.coefficients)
}

// GetType returns the window type
func (w *Window) GetType() Type {
	return w.kind
}
