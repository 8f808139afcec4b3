package chroma

import (
	"math"

	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

// ChromaVector is a 12-bin pitch-class energy distribution indexed C..B
type ChromaVector [theory.NumPitchClasses]float64

// Slice returns the values as a new slice
func (cv ChromaVector) Slice() []float64 {
	out := make([]float64, len(cv))
	copy(out, cv[:])
	return out
}

// Max returns the largest bin value
func (cv ChromaVector) Max() float64 {
	m := 0.0
	for _, v := range cv {
		m = math.Max(m, v)
	}
	return m
}

// Dominant returns the strongest pitch class (lowest on ties)
func (cv ChromaVector) Dominant() theory.PitchClass {
	return theory.PitchClass(common.ArgMax(cv[:]))
}

// ExtractorParams configures the chroma band
type ExtractorParams struct {
	MinFreq float64 `json:"min_freq"`
	MaxFreq float64 `json:"max_freq"`
}

// DefaultExtractorParams covers 80-2000 Hz
func DefaultExtractorParams() ExtractorParams {
	return ExtractorParams{MinFreq: 80, MaxFreq: 2000}
}

// normalizationFloor keeps near-silent frames from being amplified to full scale
const normalizationFloor = 1e-4

// Extractor folds dB magnitude spectra into chroma vectors. The bin to pitch
// class mapping is computed once per (bin count, sample rate). It is not safe
// for concurrent use.
type Extractor struct {
	params ExtractorParams

	mapping    []int // pitch class per bin, -1 outside the band
	binCount   int
	sampleRate int
}

// NewExtractor creates a chroma extractor
func NewExtractor(params ExtractorParams) *Extractor {
	return &Extractor{params: params}
}

// calculateChromaMapping assigns every in-band bin its nearest pitch class
func (e *Extractor) calculateChromaMapping(binCount, sampleRate int) {
	e.mapping = make([]int, binCount)
	e.binCount = binCount
	e.sampleRate = sampleRate

	fftSize := binCount * 2
	for k := range binCount {
		freq := spectral.BinFrequency(k, fftSize, sampleRate)
		if freq < e.params.MinFreq || freq > e.params.MaxFreq || freq <= 0 {
			e.mapping[k] = -1
			continue
		}
		e.mapping[k] = int(theory.FrequencyToPitchClass(freq))
	}
}

// Extract accumulates linear magnitude per pitch class and normalizes by the
// maximum bin
func (e *Extractor) Extract(spectrumDB []float64, sampleRate int) ChromaVector {
	var cv ChromaVector
	if len(spectrumDB) == 0 || sampleRate <= 0 {
		return cv
	}
	if e.binCount != len(spectrumDB) || e.sampleRate != sampleRate {
		e.calculateChromaMapping(len(spectrumDB), sampleRate)
	}

	for k, db := range spectrumDB {
		pc := e.mapping[k]
		if pc < 0 {
			continue
		}
		cv[pc] += spectral.FromDecibels(db)
	}

	norm := math.Max(cv.Max(), normalizationFloor)
	for i := range cv {
		cv[i] /= norm
	}
	return cv
}
