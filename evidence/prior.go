package evidence

import (
	"math"
	"time"

	"github.com/RyanBlaney/sonido-tonal/theory"
)

// PriorParams configures the dominant-tonic prior
type PriorParams struct {
	Window      time.Duration `json:"window"`       // notes released longer ago are ignored
	HalfLife    time.Duration `json:"half_life"`    // recency decay
	DurationCap time.Duration `json:"duration_cap"` // per-note duration factor ceiling
	MinShare    float64       `json:"min_share"`    // below this the prior is rejected
}

// DefaultPriorParams returns a 15 s window with a 6 s half-life
func DefaultPriorParams() PriorParams {
	return PriorParams{
		Window:      15 * time.Second,
		HalfLife:    6 * time.Second,
		DurationCap: 2500 * time.Millisecond,
		MinShare:    0.22,
	}
}

// Prior is the pitch class that dominates recent evidence. Strength is its
// share of the total recent weight, or 0 when the prior was rejected.
type Prior struct {
	PitchClass theory.PitchClass `json:"pitch_class"`
	Strength   float64           `json:"strength"`
	Found      bool              `json:"found"`
}

// ComputePrior weights each recent note by recency decay, confidence,
// competence and capped duration, and returns the heaviest pitch class
func ComputePrior(events []NoteEvent, summary Summary, now time.Time, params PriorParams) Prior {
	var weights [theory.NumPitchClasses]float64
	total := 0.0

	for _, ev := range events {
		if !ev.PitchClass.Valid() {
			continue
		}
		age := now.Sub(ev.End())
		if age < 0 {
			age = 0
		}
		if age > params.Window {
			continue
		}

		decay := 1.0
		if params.HalfLife > 0 {
			decay = math.Pow(0.5, age.Seconds()/params.HalfLife.Seconds())
		}
		confFactor := 0.2 + 0.8*ev.Confidence
		compFactor := 0.2 + 0.8*summary.Classes[ev.PitchClass].Competence
		durFactor := math.Min(ev.Duration.Seconds(), params.DurationCap.Seconds())

		w := decay * confFactor * compFactor * durFactor
		weights[ev.PitchClass] += w
		total += w
	}

	if total <= 0 {
		return Prior{}
	}

	best := theory.C
	for pc := theory.CSharp; pc < theory.NumPitchClasses; pc++ {
		if weights[pc] > weights[best] {
			best = pc
		}
	}

	share := weights[best] / total
	if share < params.MinShare {
		return Prior{PitchClass: best}
	}
	return Prior{PitchClass: best, Strength: share, Found: true}
}
