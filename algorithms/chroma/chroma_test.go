package chroma

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonal/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

const (
	sampleRate = 44100
	fftSize    = 4096
)

func toneSpectrum(t *testing.T, freqs ...float64) []float64 {
	t.Helper()
	frame := make([]float64, fftSize)
	for _, f := range freqs {
		for i := range frame {
			frame[i] += 0.3 * math.Sin(2*math.Pi*f*float64(i)/sampleRate)
		}
	}
	a := spectral.NewAnalyzer(spectral.AnalyzerParams{FFTSize: fftSize, MinDecibel: -100})
	dst := make([]float64, a.BinCount())
	a.Process(frame, dst)
	return dst
}

func TestExtractSingleTone(t *testing.T) {
	e := NewExtractor(DefaultExtractorParams())
	cv := e.Extract(toneSpectrum(t, 440), sampleRate)

	assert.Equal(t, theory.A, cv.Dominant())
	assert.InDelta(t, 1.0, cv[theory.A], 1e-12)
	for pc, v := range cv {
		assert.GreaterOrEqual(t, v, 0.0, "pc %d", pc)
		assert.LessOrEqual(t, v, 1.0, "pc %d", pc)
	}
}

func TestExtractTriad(t *testing.T) {
	e := NewExtractor(DefaultExtractorParams())
	cv := e.Extract(toneSpectrum(t, 261.63, 329.63, 392.0), sampleRate)

	for _, pc := range []theory.PitchClass{theory.C, theory.E, theory.G} {
		assert.Greater(t, cv[pc], 0.5, pc.String())
	}
	assert.Less(t, cv[theory.FSharp], 0.1)
}

func TestExtractIgnoresOutOfBandEnergy(t *testing.T) {
	e := NewExtractor(ExtractorParams{MinFreq: 80, MaxFreq: 2000})
	cv := e.Extract(toneSpectrum(t, 4000), sampleRate)

	// only the -100 dB floor remains in band, spread over every class
	for pc, v := range cv {
		assert.Greater(t, v, 0.5, "pc %d", pc)
	}
}

func TestExtractEmpty(t *testing.T) {
	e := NewExtractor(DefaultExtractorParams())
	assert.Equal(t, ChromaVector{}, e.Extract(nil, sampleRate))
}

func TestHistoryAverage(t *testing.T) {
	h := NewHistory(2)
	assert.Equal(t, ChromaVector{}, h.Average())

	var a, b, c ChromaVector
	a[0], b[0], c[0] = 1, 0.5, 0
	h.Push(a)
	h.Push(b)
	h.Push(c)

	require.Equal(t, 2, h.Len())
	assert.InDelta(t, 0.25, h.Average()[0], 1e-12)

	h.Clear()
	assert.Equal(t, 0, h.Len())
}
