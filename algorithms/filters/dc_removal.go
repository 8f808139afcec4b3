// Package filters provides streaming filters applied to audio before analysis
package filters

import (
	"math"
)

// DCBlocker is a one-pole DC blocking (high-pass) filter:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// Reference: Julius O. Smith III, "Introduction to Digital Filters with Audio
// Applications", https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
//
// State carries across calls, so one blocker must see one continuous stream.
// It is not safe for concurrent use.
type DCBlocker struct {
	pole float64

	x1 float64
	y1 float64
}

// DefaultPole gives a cutoff of roughly 35 Hz at 44.1 kHz
const DefaultPole = 0.995

// NewDCBlocker creates a blocker with the given -3 dB cutoff. The pole is
// R = 1 - 2*pi*fc/fs, clamped to (0, 1); a non-positive cutoff or sample
// rate selects DefaultPole.
func NewDCBlocker(sampleRate int, cutoff float64) *DCBlocker {
	if sampleRate <= 0 || cutoff <= 0 {
		return &DCBlocker{pole: DefaultPole}
	}
	pole := 1 - 2*math.Pi*cutoff/float64(sampleRate)
	pole = math.Min(math.Max(pole, 0.001), 0.9999)
	return &DCBlocker{pole: pole}
}

// Process filters one sample
func (dc *DCBlocker) Process(x float64) float64 {
	y := x - dc.x1 + dc.pole*dc.y1
	dc.x1 = x
	dc.y1 = y
	return y
}

// ProcessInPlace filters a buffer in place
func (dc *DCBlocker) ProcessInPlace(buf []float64) {
	for i, x := range buf {
		buf[i] = dc.Process(x)
	}
}

// ProcessFloat32 filters a float32 buffer in place
func (dc *DCBlocker) ProcessFloat32(buf []float32) {
	for i, x := range buf {
		buf[i] = float32(dc.Process(float64(x)))
	}
}

// Reset clears the filter state; call it between discontinuous segments
func (dc *DCBlocker) Reset() {
	dc.x1, dc.y1 = 0, 0
}

// Pole returns the pole location R
func (dc *DCBlocker) Pole() float64 {
	return dc.pole
}

// Cutoff returns the approximate -3 dB frequency, (1-R)*fs/(2*pi)
func (dc *DCBlocker) Cutoff(sampleRate int) float64 {
	return (1 - dc.pole) * float64(sampleRate) / (2 * math.Pi)
}

// Magnitude returns the linear gain at frequency:
// |H(e^jw)| = |1 - e^-jw| / |1 - R*e^-jw|
func (dc *DCBlocker) Magnitude(frequency float64, sampleRate int) float64 {
	w := 2 * math.Pi * frequency / float64(sampleRate)
	num := math.Hypot(1-math.Cos(w), math.Sin(w))
	den := math.Hypot(1-dc.pole*math.Cos(w), dc.pole*math.Sin(w))
	return num / den
}
