package tonal

import (
	"math"

	"github.com/RyanBlaney/sonido-tonal/algorithms/accel"
	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-tonal/algorithms/windowing"
)

// PitchEstimate is a single-frame fundamental frequency with confidence in [0,1]
type PitchEstimate struct {
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
}

// PitchDetectionParams contains parameters for both frame-local detectors
// and their reconciliation
type PitchDetectionParams struct {
	SampleRate int `json:"sample_rate"`

	// Frequency range constraints
	MinFreq float64 `json:"min_freq"`
	MaxFreq float64 `json:"max_freq"`

	// Difference-function detector
	CMNDFThreshold float64 `json:"cmndf_threshold"` // first dip below this is taken
	MaxCMNDF       float64 `json:"max_cmndf"`       // candidates above this are rejected

	// Harmonic product spectrum detector
	MaxHarmonics        int     `json:"max_harmonics"`
	MinFundamentalRatio float64 `json:"min_fundamental_ratio"`

	// Reconciliation
	AgreementTolerance    float64 `json:"agreement_tolerance"`     // relative frequency agreement
	OctaveGuardConfidence float64 `json:"octave_guard_confidence"` // lower time-domain estimate wins above this
}

// DefaultPitchDetectionParams returns the reference tuning for monophonic instruments
func DefaultPitchDetectionParams(sampleRate int) PitchDetectionParams {
	return PitchDetectionParams{
		SampleRate:            sampleRate,
		MinFreq:               60.0,
		MaxFreq:               2000.0,
		CMNDFThreshold:        0.2,
		MaxCMNDF:              0.5,
		MaxHarmonics:          4,
		MinFundamentalRatio:   0.05,
		AgreementTolerance:    0.05,
		OctaveGuardConfidence: 0.4,
	}
}

// DifferenceDetector implements a YIN-style detector over the cumulative mean
// normalized difference function.
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
type DifferenceDetector struct {
	params   PitchDetectionParams
	strategy accel.Strategy

	window     *windowing.Window
	difference []float64
	cmndf      []float64
}

// NewDifferenceDetector creates a detector using the given strategy (nil selects CPU)
func NewDifferenceDetector(params PitchDetectionParams, strategy accel.Strategy) *DifferenceDetector {
	if strategy == nil {
		strategy = accel.Default()
	}
	return &DifferenceDetector{
		params:   params,
		strategy: strategy,
	}
}

// lagRange returns [minLag, maxLag) for the configured frequency band
func (d *DifferenceDetector) lagRange(frameSize int) (int, int) {
	sr := float64(d.params.SampleRate)
	minLag := int(math.Floor(sr / d.params.MaxFreq))
	maxLag := int(math.Floor(sr / d.params.MinFreq))
	if maxLag > frameSize {
		maxLag = frameSize
	}
	if minLag < 1 {
		minLag = 1
	}
	return minLag, maxLag
}

// CMNDF returns the cumulative mean normalized difference function of the
// Hann-windowed frame for lags [0, maxLag). The slice is reused by the next call.
func (d *DifferenceDetector) CMNDF(frame []float64) []float64 {
	_, maxLag := d.lagRange(len(frame))
	if maxLag < 2 {
		return nil
	}

	if d.window == nil || d.window.GetSize() != len(frame) {
		d.window = windowing.NewHann(len(frame))
	}
	windowed := d.window.Apply(frame)

	d.difference = resize(d.difference, maxLag)
	d.cmndf = resize(d.cmndf, maxLag)
	d.strategy.DifferenceFunction(windowed, d.difference)

	d.cmndf[0] = 1
	runningSum := 0.0
	for lag := 1; lag < maxLag; lag++ {
		runningSum += d.difference[lag]
		if runningSum <= 0 {
			d.cmndf[lag] = 1
			continue
		}
		d.cmndf[lag] = d.difference[lag] * float64(lag) / runningSum
	}
	return d.cmndf
}

// Detect estimates the fundamental of a time-domain frame. ok is false when
// no lag clears the rejection threshold.
func (d *DifferenceDetector) Detect(frame []float64) (PitchEstimate, bool) {
	minLag, maxLag := d.lagRange(len(frame))
	cmndf := d.CMNDF(frame)
	if cmndf == nil || minLag >= maxLag {
		return PitchEstimate{}, false
	}

	bestLag := 0
	bestValue := 1.0

	// first dip below threshold, followed down to its local minimum
	for lag := minLag; lag < maxLag-1; lag++ {
		if cmndf[lag] < d.params.CMNDFThreshold {
			for lag+1 < maxLag && cmndf[lag+1] < cmndf[lag] {
				lag++
			}
			bestLag = lag
			bestValue = cmndf[lag]
			break
		}
	}

	if bestLag == 0 {
		for lag := minLag; lag < maxLag; lag++ {
			if cmndf[lag] < bestValue {
				bestValue = cmndf[lag]
				bestLag = lag
			}
		}
	}

	if bestLag == 0 || bestValue > d.params.MaxCMNDF {
		return PitchEstimate{}, false
	}

	refinedLag := common.ParabolicPeak(cmndf, bestLag)
	if refinedLag <= 0 {
		return PitchEstimate{}, false
	}

	return PitchEstimate{
		Frequency:  float64(d.params.SampleRate) / refinedLag,
		Confidence: common.Clamp01(1 - bestValue),
	}, true
}

// Reconcile fuses the time-domain and frequency-domain estimates. When they
// agree the frequency-domain pitch is returned with the averaged confidence.
// A lower time-domain estimate above the octave guard overrides HPS.
func Reconcile(timeDomain PitchEstimate, timeOK bool, freqDomain PitchEstimate, freqOK bool, params PitchDetectionParams) (PitchEstimate, bool) {
	switch {
	case timeOK && freqOK:
		ratio := timeDomain.Frequency / freqDomain.Frequency
		if math.Abs(ratio-1) < params.AgreementTolerance {
			return PitchEstimate{
				Frequency:  freqDomain.Frequency,
				Confidence: (timeDomain.Confidence + freqDomain.Confidence) / 2,
			}, true
		}
		if timeDomain.Frequency < freqDomain.Frequency && timeDomain.Confidence > params.OctaveGuardConfidence {
			return timeDomain, true
		}
		if timeDomain.Confidence > freqDomain.Confidence {
			return timeDomain, true
		}
		return freqDomain, true
	case timeOK:
		return timeDomain, true
	case freqOK:
		return freqDomain, true
	default:
		return PitchEstimate{}, false
	}
}

// PitchEstimator runs both detectors on every frame and reconciles them
type PitchEstimator struct {
	params     PitchDetectionParams
	difference *DifferenceDetector
	hps        *harmonic.HarmonicProduct
}

// NewPitchEstimator creates an estimator with default parameters
func NewPitchEstimator(sampleRate int) *PitchEstimator {
	return NewPitchEstimatorWithParams(DefaultPitchDetectionParams(sampleRate), nil)
}

// NewPitchEstimatorWithParams creates an estimator with custom parameters and strategy
func NewPitchEstimatorWithParams(params PitchDetectionParams, strategy accel.Strategy) *PitchEstimator {
	if strategy == nil {
		strategy = accel.Default()
	}
	hps := harmonic.NewHarmonicProductWithStrategy(harmonic.HarmonicProductParams{
		SampleRate:          params.SampleRate,
		NumHarmonics:        params.MaxHarmonics,
		MinF0:               params.MinFreq,
		MaxF0:               params.MaxFreq,
		MinFundamentalRatio: params.MinFundamentalRatio,
	}, strategy)

	return &PitchEstimator{
		params:     params,
		difference: NewDifferenceDetector(params, strategy),
		hps:        hps,
	}
}

// Estimate returns the reconciled pitch for one frame
func (pe *PitchEstimator) Estimate(timeDomain, spectrumDB []float64) (PitchEstimate, bool) {
	td, tdOK := pe.difference.Detect(timeDomain)

	var fd PitchEstimate
	freq, conf, fdOK := pe.hps.EstimateF0(spectrumDB)
	if fdOK {
		fd = PitchEstimate{Frequency: freq, Confidence: common.Clamp01(conf)}
	}

	return Reconcile(td, tdOK, fd, fdOK, pe.params)
}

func resize(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}
