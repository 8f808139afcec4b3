package tonal

import (
	"github.com/RyanBlaney/sonido-tonal/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/evidence"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

// Krumhansl-Kessler probe-tone ratings, tonic first
var (
	krumhanslMajor = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	krumhanslMinor = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// KeyEstimationParams contains parameters for key estimation
type KeyEstimationParams struct {
	MinHistory int     `json:"min_history"` // chroma frames required before estimating
	SilenceStd float64 `json:"silence_std"` // averaged chroma flatter than this is silence

	CorrelationFloor float64 `json:"correlation_floor"` // also the confidence zero point
	PriorFloor       float64 `json:"prior_floor"`       // a prior this strong rescues weak correlation
	PriorWeight      float64 `json:"prior_weight"`      // score bonus for the prior's root
	TonicBoost       float64 `json:"tonic_boost"`       // confidence multiplier per unit of prior strength
}

// DefaultKeyEstimationParams returns the reference tuning
func DefaultKeyEstimationParams() KeyEstimationParams {
	return KeyEstimationParams{
		MinHistory:       3,
		SilenceStd:       0.001,
		CorrelationFloor: 0.33,
		PriorFloor:       0.35,
		PriorWeight:      0.22,
		TonicBoost:       0.15,
	}
}

// KeyCandidate is one (root, mode) hypothesis
type KeyCandidate struct {
	Key         theory.Key `json:"key"`
	Correlation float64    `json:"correlation"` // raw Pearson correlation
	Score       float64    `json:"score"`       // correlation plus prior bonus
}

// KeyEstimate is the outcome of one estimation. Key is meaningful only when Found.
type KeyEstimate struct {
	Key        theory.Key `json:"key"`
	Found      bool       `json:"found"`
	Confidence float64    `json:"confidence"`

	Correlation   float64 `json:"correlation"`    // best raw correlation over all 24 keys
	PriorStrength float64 `json:"prior_strength"` // strength of the tonic prior used
}

// KeyEstimator implements Krumhansl-Schmuckler key finding blended with a
// tonic prior from recent notes.
//
// References:
// - Krumhansl, C.L. (1990). "Cognitive Foundations of Musical Pitch"
type KeyEstimator struct {
	params KeyEstimationParams

	// z-scored once, indexed [mode][root] after rotation
	profiles [2][theory.NumPitchClasses][]float64
}

// NewKeyEstimator creates a new key estimator with default parameters
func NewKeyEstimator() *KeyEstimator {
	return NewKeyEstimatorWithParams(DefaultKeyEstimationParams())
}

// NewKeyEstimatorWithParams creates a key estimator with custom parameters
func NewKeyEstimatorWithParams(params KeyEstimationParams) *KeyEstimator {
	ke := &KeyEstimator{params: params}

	major := common.ZScore(krumhanslMajor)
	minor := common.ZScore(krumhanslMinor)
	for root := range theory.NumPitchClasses {
		ke.profiles[theory.Major][root] = rotateProfile(major, root)
		ke.profiles[theory.Minor][root] = rotateProfile(minor, root)
	}

	return ke
}

// rotateProfile moves the tonic entry to index shift
func rotateProfile(profile []float64, shift int) []float64 {
	n := len(profile)
	rotated := make([]float64, n)
	for i := range n {
		rotated[i] = profile[(i-shift+n)%n]
	}
	return rotated
}

// Candidates correlates a chroma vector against all 24 rotated profiles.
// The result is ordered by root, major before minor.
func (ke *KeyEstimator) Candidates(cv chroma.ChromaVector, prior evidence.Prior) []KeyCandidate {
	normalized := common.ZScore(cv[:])
	candidates := make([]KeyCandidate, 0, 2*theory.NumPitchClasses)

	for root := range theory.PitchClass(theory.NumPitchClasses) {
		for _, mode := range []theory.Mode{theory.Major, theory.Minor} {
			corr := common.Pearson(normalized, ke.profiles[mode][root])
			score := corr
			if prior.Found && prior.PitchClass == root {
				score += ke.params.PriorWeight * prior.Strength
			}
			candidates = append(candidates, KeyCandidate{
				Key:         theory.Key{Tonic: root, Mode: mode},
				Correlation: corr,
				Score:       score,
			})
		}
	}

	return candidates
}

// Estimate averages the chroma history and picks the best-scoring key
func (ke *KeyEstimator) Estimate(history *chroma.History, prior evidence.Prior) KeyEstimate {
	if history == nil || history.Len() < ke.params.MinHistory {
		return KeyEstimate{}
	}
	return ke.EstimateVector(history.Average(), prior)
}

// EstimateVector estimates the key of an already averaged chroma vector
func (ke *KeyEstimator) EstimateVector(avg chroma.ChromaVector, prior evidence.Prior) KeyEstimate {
	if common.PopulationStdDev(avg[:]) < ke.params.SilenceStd {
		return KeyEstimate{}
	}
	if !prior.Found {
		prior.Strength = 0
	}

	candidates := ke.Candidates(avg, prior)

	best := candidates[0]
	maxCorr := candidates[0].Correlation
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
		maxCorr = max(maxCorr, c.Correlation)
	}

	if maxCorr < ke.params.CorrelationFloor && prior.Strength < ke.params.PriorFloor {
		return KeyEstimate{Correlation: maxCorr, PriorStrength: prior.Strength}
	}

	confidence := common.Clamp01((best.Score - ke.params.CorrelationFloor) / (1 - ke.params.CorrelationFloor))
	if prior.Found {
		confidence = common.Clamp01(confidence * (1 + ke.params.TonicBoost*prior.Strength))
	}

	return KeyEstimate{
		Key:           best.Key,
		Found:         true,
		Confidence:    confidence,
		Correlation:   maxCorr,
		PriorStrength: prior.Strength,
	}
}
