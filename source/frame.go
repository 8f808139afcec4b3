// Package source provides frame sources for the analysis engine: a
// synthesizer, a WAV file player and live device capture.
package source

import (
	"sync"

	"github.com/RyanBlaney/sonido-tonal/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tonal/algorithms/windowing"
	"github.com/RyanBlaney/sonido-tonal/engine"
)

// Params configures how a source shapes its frames
type Params struct {
	SampleRate int     `mapstructure:"sample_rate" json:"sample_rate"`
	WindowSize int     `mapstructure:"window_size" json:"window_size"`
	MinDecibel float64 `mapstructure:"min_decibels" json:"min_decibels"`
	Smoothing  float64 `mapstructure:"smoothing" json:"smoothing"`
	Window     string  `mapstructure:"window" json:"window"`

	// DCCutoff high-passes captured and decoded audio; 0 disables it
	DCCutoff float64 `mapstructure:"dc_cutoff" json:"dc_cutoff"`
}

// DefaultParams matches the engine defaults
func DefaultParams() Params {
	a := spectral.DefaultAnalyzerParams()
	return Params{
		SampleRate: 44100,
		WindowSize: a.FFTSize,
		MinDecibel: a.MinDecibel,
		Smoothing:  a.Smoothing,
		Window:     string(a.Window),
		DCCutoff:   10,
	}
}

// frameBuilder turns a time-domain window into an engine.Frame. The
// returned slices are reused across calls.
type frameBuilder struct {
	mu         sync.Mutex
	params     Params
	analyzer   *spectral.Analyzer
	timeDomain []float64
	spectrum   []float64
}

func newFrameBuilder(params Params) *frameBuilder {
	a := spectral.NewAnalyzer(spectral.AnalyzerParams{
		FFTSize:    params.WindowSize,
		MinDecibel: params.MinDecibel,
		Smoothing:  params.Smoothing,
		Window:     windowing.Type(params.Window),
	})
	return &frameBuilder{
		params:     params,
		analyzer:   a,
		timeDomain: make([]float64, params.WindowSize),
		spectrum:   make([]float64, a.BinCount()),
	}
}

// build fills the time-domain buffer with fill and runs the analyser
func (b *frameBuilder) build(fill func(dst []float64)) engine.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	fill(b.timeDomain)
	b.analyzer.Process(b.timeDomain, b.spectrum)
	return engine.Frame{
		TimeDomain: b.timeDomain,
		SpectrumDB: b.spectrum,
		SampleRate: b.params.SampleRate,
	}
}

func (b *frameBuilder) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.timeDomain)
	b.analyzer.Reset()
}
