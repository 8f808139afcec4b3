package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-tonal/engine"
	"github.com/RyanBlaney/sonido-tonal/logging"
	"github.com/RyanBlaney/sonido-tonal/transcode"
)

// File plays decoded audio in real time. The window returned by Frame ends
// at the playback position implied by the clock; past the end of the
// audio it is silent unless looping.
type File struct {
	params  Params
	logger  logging.Logger
	now     func() time.Time
	builder *frameBuilder
	audio   *transcode.AudioData
	loop    bool

	mu      sync.Mutex
	started time.Time
	running bool
}

// FileOption configures a File
type FileOption func(*File)

// WithFileClock replaces time.Now
func WithFileClock(now func() time.Time) FileOption {
	return func(f *File) {
		f.now = now
	}
}

// WithLoop restarts playback at the end of the audio
func WithLoop(loop bool) FileOption {
	return func(f *File) {
		f.loop = loop
	}
}

// WithFileLogger sets the logger
func WithFileLogger(logger logging.Logger) FileOption {
	return func(f *File) {
		f.logger = logger
	}
}

// OpenFile decodes a WAV file, resampled to params.SampleRate
func OpenFile(path string, params Params, opts ...FileOption) (*File, error) {
	dec := transcode.NewDecoder(&transcode.DecoderConfig{
		TargetSampleRate: params.SampleRate,
		DCCutoff:         params.DCCutoff,
	})
	audio, err := dec.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	return NewFile(audio, params, opts...), nil
}

// NewFile plays already decoded audio. audio.SampleRate must equal
// params.SampleRate.
func NewFile(audio *transcode.AudioData, params Params, opts ...FileOption) *File {
	f := &File{
		params:  params,
		logger:  logging.GetGlobalLogger(),
		now:     time.Now,
		builder: newFrameBuilder(params),
		audio:   audio,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.WithFields(logging.Fields{"component": "source", "source": f.Name()})
	return f
}

// Duration returns the length of the audio
func (f *File) Duration() time.Duration {
	return f.audio.Duration
}

// Done reports whether non-looping playback has passed the end of the audio
func (f *File) Done() bool {
	if f.loop {
		return false
	}
	return f.position() >= len(f.audio.PCM)
}

func (f *File) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return nil
	}
	if f.audio.SampleRate != f.params.SampleRate {
		return fmt.Errorf("source: %s is %d Hz, want %d Hz", f.Name(), f.audio.SampleRate, f.params.SampleRate)
	}
	f.running = true
	f.started = f.now()
	f.builder.reset()
	f.logger.Info("playback started", logging.Fields{
		"duration": f.audio.Duration.String(),
		"loop":     f.loop,
	})
	return nil
}

func (f *File) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return nil
}

// position returns the index of the sample at the current playback time
func (f *File) position() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return 0
	}
	return int(f.now().Sub(f.started).Seconds() * float64(f.params.SampleRate))
}

func (f *File) Frame() engine.Frame {
	end := f.position()
	pcm := f.audio.PCM

	return f.builder.build(func(dst []float64) {
		first := end - len(dst)
		for i := range dst {
			idx := first + i
			if f.loop && idx >= 0 && len(pcm) > 0 {
				idx %= len(pcm)
			}
			if idx < 0 || idx >= len(pcm) {
				dst[i] = 0
				continue
			}
			dst[i] = pcm[idx]
		}
	})
}

func (f *File) Name() string {
	if f.audio.Source != "" {
		return "wav:" + f.audio.Source
	}
	return "wav"
}
