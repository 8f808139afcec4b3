package source

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-tonal/engine"
	"github.com/RyanBlaney/sonido-tonal/logging"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

// Partial is one sinusoidal component of a synthesized tone
type Partial struct {
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
}

// HarmonicTone returns partials at f0·k with the given amplitudes, k from 1
func HarmonicTone(f0 float64, amplitudes ...float64) []Partial {
	partials := make([]Partial, len(amplitudes))
	for k, amp := range amplitudes {
		partials[k] = Partial{Frequency: f0 * float64(k+1), Amplitude: amp}
	}
	return partials
}

// Synth is a FrameSource that renders a set of partials in real time. The
// phase follows the clock so successive frames are continuous.
type Synth struct {
	params  Params
	logger  logging.Logger
	now     func() time.Time
	builder *frameBuilder

	mu       sync.Mutex
	partials []Partial
	started  time.Time
	running  bool
}

// SynthOption configures a Synth
type SynthOption func(*Synth)

// WithSynthClock replaces time.Now
func WithSynthClock(now func() time.Time) SynthOption {
	return func(s *Synth) {
		s.now = now
	}
}

// WithSynthLogger sets the logger
func WithSynthLogger(logger logging.Logger) SynthOption {
	return func(s *Synth) {
		s.logger = logger
	}
}

// WithPartials sets the initial sound
func WithPartials(partials ...Partial) SynthOption {
	return func(s *Synth) {
		s.partials = partials
	}
}

// NewSynth creates a silent synthesizer
func NewSynth(params Params, opts ...SynthOption) *Synth {
	s := &Synth{
		params:  params,
		logger:  logging.GetGlobalLogger(),
		now:     time.Now,
		builder: newFrameBuilder(params),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithFields(logging.Fields{"component": "source", "source": s.Name()})
	return s
}

// SetPartials replaces the sound being rendered
func (s *Synth) SetPartials(partials ...Partial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partials = append([]Partial(nil), partials...)
}

// SetTone renders a harmonic tone
func (s *Synth) SetTone(f0 float64, amplitudes ...float64) {
	s.SetPartials(HarmonicTone(f0, amplitudes...)...)
}

// SetNote renders a pure tone at the tempered pitch of pc in octave
func (s *Synth) SetNote(pc theory.PitchClass, octave int, amplitude float64) {
	s.SetPartials(Partial{Frequency: theory.NoteFrequency(pc, octave), Amplitude: amplitude})
}

// Silence stops all partials
func (s *Synth) Silence() {
	s.SetPartials()
}

func (s *Synth) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.started = s.now()
	s.builder.reset()
	s.logger.Debug("synth started", logging.Fields{"partials": len(s.partials)})
	return nil
}

func (s *Synth) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Frame renders the window ending at the current clock position
func (s *Synth) Frame() engine.Frame {
	s.mu.Lock()
	partials := s.partials
	elapsed := s.now().Sub(s.started)
	running := s.running
	s.mu.Unlock()

	sr := float64(s.params.SampleRate)
	end := math.Floor(elapsed.Seconds() * sr)

	return s.builder.build(func(dst []float64) {
		clear(dst)
		if !running {
			return
		}
		first := end - float64(len(dst))
		for _, p := range partials {
			step := 2 * math.Pi * p.Frequency / sr
			for i := range dst {
				dst[i] += p.Amplitude * math.Sin(step*(first+float64(i)))
			}
		}
	})
}

func (s *Synth) Name() string {
	return "synth"
}
