package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-tonal/algorithms/windowing"
)

// AnalyzerParams configures a dB magnitude analyser
type AnalyzerParams struct {
	FFTSize    int     `json:"fft_size"`
	MinDecibel float64 `json:"min_decibels"`
	Smoothing  float64 `json:"smoothing"` // time constant in [0,1), 0 disables smoothing

	// Window tapers each frame before the FFT; empty selects Hann
	Window windowing.Type `json:"window,omitempty"`
}

// DefaultAnalyzerParams mirrors a browser-style analyser node: 8192-point FFT,
// -100 dB floor, 0.6 smoothing
func DefaultAnalyzerParams() AnalyzerParams {
	return AnalyzerParams{
		FFTSize:    8192,
		MinDecibel: -100,
		Smoothing:  0.6,
		Window:     windowing.Hann,
	}
}

// Analyzer converts time-domain windows into FFTSize/2 bins of dB magnitude.
// Magnitudes are windowed, scaled by 1/N and smoothed across calls
// before conversion to decibels. It is not safe for concurrent use.
type Analyzer struct {
	params   AnalyzerParams
	window   *windowing.Window
	fft      *FFT
	smoothed []float64
}

// NewAnalyzer creates an analyser; non-positive FFT sizes fall back to the
// default and unknown windows to Hann
func NewAnalyzer(params AnalyzerParams) *Analyzer {
	if params.FFTSize <= 0 {
		params.FFTSize = DefaultAnalyzerParams().FFTSize
	}
	if params.Smoothing < 0 || params.Smoothing >= 1 {
		params.Smoothing = 0
	}
	w, err := windowing.New(params.Window, params.FFTSize)
	if err != nil {
		params.Window = windowing.Hann
		w = windowing.NewHann(params.FFTSize)
	}
	return &Analyzer{
		params:   params,
		window:   w,
		fft:      NewFFT(),
		smoothed: make([]float64, params.FFTSize/2),
	}
}

// BinCount returns the number of output bins
func (a *Analyzer) BinCount() int {
	return a.params.FFTSize / 2
}

// Process writes the dB spectrum of frame into dst, which must have BinCount
// elements. frame must have FFTSize samples.
func (a *Analyzer) Process(frame []float64, dst []float64) {
	if len(frame) != a.params.FFTSize || len(dst) != a.BinCount() {
		panic("spectral: analyser buffer size mismatch")
	}

	windowed := a.window.Apply(frame)
	mags := a.fft.Magnitudes(windowed)

	tau := a.params.Smoothing
	for k, m := range mags {
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*m
		dst[k] = ToDecibels(a.smoothed[k], a.params.MinDecibel)
	}
}

// Reset clears the smoothing state
func (a *Analyzer) Reset() {
	clear(a.smoothed)
}

// ToDecibels converts a linear magnitude to dB, floored at minDB
func ToDecibels(mag, minDB float64) float64 {
	if mag <= 0 {
		return minDB
	}
	db := 20 * math.Log10(mag)
	if db < minDB || math.IsNaN(db) {
		return minDB
	}
	return db
}

// FromDecibels converts dB back to linear magnitude
func FromDecibels(db float64) float64 {
	return math.Pow(10, db/20)
}

// BinFrequency returns the center frequency of bin k for an N-point FFT
func BinFrequency(k, fftSize, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(fftSize)
}
