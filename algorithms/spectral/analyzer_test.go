package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/algorithms/windowing"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestAnalyzerPeakAtToneFrequency(t *testing.T) {
	const sr, n = 44100, 4096
	a := NewAnalyzer(AnalyzerParams{FFTSize: n, MinDecibel: -100})
	require.Equal(t, n/2, a.BinCount())

	dst := make([]float64, a.BinCount())
	a.Process(sine(1000, sr, n), dst)

	peak := common.ArgMax(dst)
	assert.InDelta(t, 1000.0, BinFrequency(peak, n, sr), float64(sr)/float64(n))
	for _, v := range dst {
		assert.GreaterOrEqual(t, v, -100.0)
	}
}

func TestAnalyzerSilenceIsFloor(t *testing.T) {
	a := NewAnalyzer(AnalyzerParams{FFTSize: 1024, MinDecibel: -90})
	dst := make([]float64, a.BinCount())
	a.Process(make([]float64, 1024), dst)
	for _, v := range dst {
		assert.Equal(t, -90.0, v)
	}
}

func TestAnalyzerSmoothingDecays(t *testing.T) {
	const sr, n = 44100, 2048
	a := NewAnalyzer(AnalyzerParams{FFTSize: n, MinDecibel: -100, Smoothing: 0.5})
	first := make([]float64, n/2)
	second := make([]float64, n/2)

	a.Process(sine(440, sr, n), first)
	peak := common.ArgMax(first)
	a.Process(make([]float64, n), second)

	// half the energy is retained: -6 dB
	assert.InDelta(t, first[peak]-20*math.Log10(2), second[peak], 1e-6)

	a.Reset()
	a.Process(make([]float64, n), second)
	assert.Equal(t, -100.0, second[peak])
}

func TestAnalyzerPanicsOnSizeMismatch(t *testing.T) {
	a := NewAnalyzer(AnalyzerParams{FFTSize: 512})
	assert.Panics(t, func() { a.Process(make([]float64, 256), make([]float64, 256)) })
}

func TestDecibelConversion(t *testing.T) {
	assert.InDelta(t, 0.0, ToDecibels(1, -100), 1e-12)
	assert.Equal(t, -100.0, ToDecibels(0, -100))
	assert.InDelta(t, 0.5, FromDecibels(ToDecibels(0.5, -100)), 1e-12)
}

func TestAnalyzerWindowSelection(t *testing.T) {
	assert.Equal(t, windowing.Hann, NewAnalyzer(AnalyzerParams{FFTSize: 512}).params.Window)
	assert.Equal(t, windowing.Hann, NewAnalyzer(AnalyzerParams{FFTSize: 512, Window: "kaiser"}).params.Window)

	// an integer-bin sine through a rectangular window concentrates in one bin
	const n = 1024
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * 32 * float64(i) / n)
	}
	rect := NewAnalyzer(AnalyzerParams{FFTSize: n, MinDecibel: -300, Window: windowing.Rectangular})
	spec := make([]float64, rect.BinCount())
	rect.Process(frame, spec)
	assert.Greater(t, spec[32]-spec[34], 100.0)
}
