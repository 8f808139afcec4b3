package harmonic

import (
	"github.com/RyanBlaney/sonido-tonal/algorithms/accel"
	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/algorithms/spectral"
)

// HarmonicProductParams configures the harmonic product spectrum detector
type HarmonicProductParams struct {
	SampleRate   int     `json:"sample_rate"`
	NumHarmonics int     `json:"num_harmonics"`
	MinF0        float64 `json:"min_f0"`
	MaxF0        float64 `json:"max_f0"`

	// MinFundamentalRatio rejects candidate bins whose own linear magnitude is
	// below this fraction of the spectrum maximum, which suppresses
	// subharmonic picks. 0 disables the guard.
	MinFundamentalRatio float64 `json:"min_fundamental_ratio"`
}

// DefaultHarmonicProductParams returns a 4-harmonic detector over 60-2000 Hz
func DefaultHarmonicProductParams(sampleRate int) HarmonicProductParams {
	return HarmonicProductParams{
		SampleRate:          sampleRate,
		NumHarmonics:        4,
		MinF0:               60,
		MaxF0:               2000,
		MinFundamentalRatio: 0.05,
	}
}

// minPeak is the smallest HPS value treated as a pitch
const minPeak = 1e-10

// HarmonicProduct implements Harmonic Product Spectrum for F0 estimation on
// dB magnitude spectra. It reuses internal buffers and is not safe for
// concurrent use.
type HarmonicProduct struct {
	params   HarmonicProductParams
	strategy accel.Strategy

	magnitude []float64
	hps       []float64
}

// NewHarmonicProduct creates a new harmonic product spectrum analyzer using the CPU strategy
func NewHarmonicProduct(params HarmonicProductParams) *HarmonicProduct {
	return NewHarmonicProductWithStrategy(params, accel.Default())
}

// NewHarmonicProductWithStrategy creates an analyzer backed by the given strategy
func NewHarmonicProductWithStrategy(params HarmonicProductParams, strategy accel.Strategy) *HarmonicProduct {
	if params.NumHarmonics < 1 {
		params.NumHarmonics = 1
	}
	if strategy == nil {
		strategy = accel.Default()
	}
	return &HarmonicProduct{
		params:   params,
		strategy: strategy,
	}
}

// ComputeHPS converts a dB spectrum to linear magnitude and returns the
// harmonic product over the first len/NumHarmonics bins. The returned slice
// is reused by the next call.
func (hp *HarmonicProduct) ComputeHPS(spectrumDB []float64) []float64 {
	binCount := len(spectrumDB)
	hp.magnitude = resize(hp.magnitude, binCount)
	for i, db := range spectrumDB {
		hp.magnitude[i] = spectral.FromDecibels(db)
	}

	hp.hps = resize(hp.hps, binCount/hp.params.NumHarmonics)
	hp.strategy.HarmonicProduct(hp.magnitude, hp.params.NumHarmonics, hp.hps)
	return hp.hps
}

// EstimateF0 returns the fundamental frequency and a peak-prominence
// confidence for a dB spectrum of FFT-size/2 bins. ok is false when no
// candidate clears the detection floor.
func (hp *HarmonicProduct) EstimateF0(spectrumDB []float64) (frequency, confidence float64, ok bool) {
	binCount := len(spectrumDB)
	if binCount == 0 || hp.params.SampleRate <= 0 {
		return 0, 0, false
	}

	hps := hp.ComputeHPS(spectrumDB)
	if len(hps) < 3 {
		return 0, 0, false
	}

	freqPerBin := float64(hp.params.SampleRate) / float64(binCount*2)
	minBin := int(hp.params.MinF0 / freqPerBin)
	maxBin := min(int(hp.params.MaxF0/freqPerBin), len(hps)-1)

	floor := 0.0
	if hp.params.MinFundamentalRatio > 0 {
		maxMag := hp.magnitude[common.ArgMax(hp.magnitude)]
		floor = hp.params.MinFundamentalRatio * maxMag
	}

	peakVal := 0.0
	peakBin := 0
	for i := max(minBin, 1); i <= maxBin; i++ {
		if hp.magnitude[i] < floor {
			continue
		}
		if hps[i] > peakVal {
			peakVal = hps[i]
			peakBin = i
		}
	}

	if peakBin == 0 || peakVal < minPeak {
		return 0, 0, false
	}

	refined := common.ParabolicPeak(hps, peakBin)
	frequency = refined * freqPerBin

	mean := common.Mean(hps)
	confidence = min(1.0, peakVal/(mean*10+1e-10))

	return frequency, confidence, true
}

func resize(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}
