package engine

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-tonal/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonal/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonal/evidence"
)

// Config holds every tunable of the analysis pipeline
type Config struct {
	SampleRate int `json:"sample_rate"`
	WindowSize int `json:"window_size"`

	// TickInterval is the analysis period. Zero disables the internal
	// ticker; ticks are then driven by calling Tick.
	TickInterval time.Duration `json:"tick_interval"`

	Pitch         tonal.PitchDetectionParams `json:"pitch"`
	Stabilizer    tonal.StabilizerParams     `json:"stabilizer"`
	Chroma        chroma.ExtractorParams     `json:"chroma"`
	ChromaHistory int                        `json:"chroma_history"`
	Ledger        evidence.LedgerParams      `json:"ledger"`
	RecentNotes   int                        `json:"recent_notes"`
	Key           tonal.KeyEstimationParams  `json:"key"`
	Prior         evidence.PriorParams       `json:"prior"`
	Scale         tonal.ScaleParams          `json:"scale"`

	// HistogramMinConfidence gates which key estimates count toward the
	// session key histogram
	HistogramMinConfidence float64 `json:"histogram_min_confidence"`

	// SubscriptionBuffer is the per-subscriber channel depth
	SubscriptionBuffer int `json:"subscription_buffer"`
}

// DefaultConfig returns the reference configuration at 44.1 kHz
func DefaultConfig() Config {
	const sampleRate = 44100
	stabilizer := tonal.DefaultStabilizerParams()

	return Config{
		SampleRate:             sampleRate,
		WindowSize:             8192,
		TickInterval:           50 * time.Millisecond,
		Pitch:                  tonal.DefaultPitchDetectionParams(sampleRate),
		Stabilizer:             stabilizer,
		Chroma:                 chroma.DefaultExtractorParams(),
		ChromaHistory:          30,
		Ledger:                 evidence.LedgerParams{Capacity: 100, MinDuration: stabilizer.MinNoteDuration},
		RecentNotes:            20,
		Key:                    tonal.DefaultKeyEstimationParams(),
		Prior:                  evidence.DefaultPriorParams(),
		Scale:                  tonal.DefaultScaleParams(),
		HistogramMinConfidence: 0.3,
		SubscriptionBuffer:     4,
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	case c.WindowSize < 2 || c.WindowSize%2 != 0:
		return fmt.Errorf("window size must be a positive even number, got %d", c.WindowSize)
	case c.TickInterval < 0:
		return fmt.Errorf("tick interval must not be negative, got %s", c.TickInterval)
	case c.Pitch.SampleRate != c.SampleRate:
		return fmt.Errorf("pitch sample rate %d does not match %d", c.Pitch.SampleRate, c.SampleRate)
	case c.Pitch.MinFreq <= 0 || c.Pitch.MaxFreq <= c.Pitch.MinFreq:
		return fmt.Errorf("invalid pitch range %.1f-%.1f Hz", c.Pitch.MinFreq, c.Pitch.MaxFreq)
	case c.Pitch.MaxHarmonics < 1:
		return fmt.Errorf("pitch harmonics must be at least 1, got %d", c.Pitch.MaxHarmonics)
	case c.Stabilizer.HistorySize < 1:
		return fmt.Errorf("stabilizer history must be at least 1, got %d", c.Stabilizer.HistorySize)
	case c.Chroma.MaxFreq <= c.Chroma.MinFreq:
		return fmt.Errorf("invalid chroma range %.1f-%.1f Hz", c.Chroma.MinFreq, c.Chroma.MaxFreq)
	case c.ChromaHistory < 1:
		return fmt.Errorf("chroma history must be at least 1, got %d", c.ChromaHistory)
	case c.Ledger.Capacity < 1:
		return fmt.Errorf("ledger capacity must be at least 1, got %d", c.Ledger.Capacity)
	case c.Key.CorrelationFloor >= 1:
		return fmt.Errorf("key correlation floor must be below 1, got %.2f", c.Key.CorrelationFloor)
	case c.Scale.SizePenaltyCardinality < 1:
		return fmt.Errorf("scale size penalty cardinality must be at least 1, got %d", c.Scale.SizePenaltyCardinality)
	}
	return nil
}
