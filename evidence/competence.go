package evidence

import (
	"time"

	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

// Competence weights
const (
	countWeight      = 0.4
	durationWeight   = 0.4
	confidenceWeight = 0.2
)

// ClassEvidence aggregates the notes of one pitch class
type ClassEvidence struct {
	Count          int           `json:"count"`
	TotalDuration  time.Duration `json:"total_duration"`
	MeanConfidence float64       `json:"mean_confidence"`

	// NormalizedDuration is TotalDuration over the longest class total
	NormalizedDuration float64 `json:"normalized_duration"`

	// Competence is 0.4·count + 0.4·duration + 0.2·confidence, each
	// normalized against the maximum over observed classes
	Competence float64 `json:"competence"`
}

// Summary is the per-class aggregate of a set of notes
type Summary struct {
	Classes  [theory.NumPitchClasses]ClassEvidence `json:"classes"`
	Observed theory.PitchClassSet                  `json:"-"`
}

// Distinct returns the number of observed pitch classes
func (s Summary) Distinct() int {
	return s.Observed.Len()
}

// Summarize aggregates events per pitch class and computes competence
func Summarize(events []NoteEvent) Summary {
	var s Summary
	var confSum [theory.NumPitchClasses]float64

	for _, ev := range events {
		if !ev.PitchClass.Valid() {
			continue
		}
		c := &s.Classes[ev.PitchClass]
		c.Count++
		c.TotalDuration += ev.Duration
		confSum[ev.PitchClass] += ev.Confidence
		s.Observed = s.Observed.Add(ev.PitchClass)
	}

	if s.Observed.Len() == 0 {
		return s
	}

	maxCount, maxDur, maxConf := 0, time.Duration(0), 0.0
	for pc := range s.Classes {
		c := &s.Classes[pc]
		if c.Count == 0 {
			continue
		}
		c.MeanConfidence = confSum[pc] / float64(c.Count)
		maxCount = max(maxCount, c.Count)
		maxDur = max(maxDur, c.TotalDuration)
		maxConf = max(maxConf, c.MeanConfidence)
	}

	for pc := range s.Classes {
		c := &s.Classes[pc]
		if c.Count == 0 {
			continue
		}
		countScore := float64(c.Count) / float64(maxCount)
		durScore := ratio(float64(c.TotalDuration), float64(maxDur))
		confScore := ratio(c.MeanConfidence, maxConf)

		c.NormalizedDuration = durScore
		c.Competence = common.Clamp01(countWeight*countScore + durationWeight*durScore + confidenceWeight*confScore)
	}

	return s
}

func ratio(v, maxV float64) float64 {
	if maxV <= 0 {
		return 0
	}
	return v / maxV
}
