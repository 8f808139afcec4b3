package source

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/engine"
	"github.com/RyanBlaney/sonido-tonal/theory"
	"github.com/RyanBlaney/sonido-tonal/transcode"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testParams() Params {
	p := DefaultParams()
	p.Smoothing = 0
	return p
}

func peakFrequency(f engine.Frame) float64 {
	k := common.ArgMax(f.SpectrumDB)
	return float64(k) * float64(f.SampleRate) / float64(2*len(f.SpectrumDB))
}

func TestSampleWindow(t *testing.T) {
	w := NewSampleWindow(4)
	w.Write([]float32{1, 2, 3})
	w.WriteFloat64([]float64{4, 5})

	dst := make([]float64, 4)
	w.CopyTo(dst)
	assert.Equal(t, []float64{2, 3, 4, 5}, dst)
	assert.Equal(t, int64(5), w.Written())

	w.Reset()
	w.CopyTo(dst)
	assert.Equal(t, []float64{0, 0, 0, 0}, dst)
	assert.Zero(t, w.Written())
}

func TestSynthRendersNote(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	s := NewSynth(testParams(), WithSynthClock(clock.Now))
	s.SetNote(theory.A, 4, 0.5)

	idle := s.Frame()
	assert.Zero(t, common.RMS(idle.TimeDomain), "silent until started")

	require.NoError(t, s.Start(context.Background()))
	clock.Advance(time.Second)
	f := s.Frame()

	assert.Equal(t, 44100, f.SampleRate)
	assert.Len(t, f.TimeDomain, 8192)
	assert.Len(t, f.SpectrumDB, 4096)
	assert.InDelta(t, 0.5/math.Sqrt2, common.RMS(f.TimeDomain), 0.01)
	assert.InDelta(t, 440, peakFrequency(f), 6)

	s.Silence()
	assert.Zero(t, common.RMS(s.Frame().TimeDomain))
	require.NoError(t, s.Stop())
}

func TestSynthIsContinuous(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	p := testParams()
	s := NewSynth(p, WithSynthClock(clock.Now), WithPartials(HarmonicTone(220, 0.5, 0.25)...))
	require.NoError(t, s.Start(context.Background()))

	clock.Advance(time.Second)
	first := append([]float64(nil), s.Frame().TimeDomain...)
	clock.Advance(125 * time.Millisecond)
	second := s.Frame().TimeDomain

	shift := int(0.125 * float64(p.SampleRate))
	for i := 0; i < len(first)-shift; i += 101 {
		assert.InDelta(t, first[i+shift], second[i], 1e-9)
	}
}

func TestHarmonicTone(t *testing.T) {
	assert.Equal(t, []Partial{{110, 1}, {220, 0.5}, {330, 0.25}}, HarmonicTone(110, 1, 0.5, 0.25))
}

func rampAudio(n, sampleRate int) *transcode.AudioData {
	pcm := make([]float64, n)
	for i := range pcm {
		pcm[i] = float64(i) / float64(n)
	}
	return &transcode.AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   1,
		Duration:   time.Duration(n) * time.Second / time.Duration(sampleRate),
	}
}

func TestFilePlaybackPosition(t *testing.T) {
	p := testParams()
	audio := rampAudio(2*p.SampleRate, p.SampleRate)
	clock := &testClock{now: time.Unix(0, 0)}
	f := NewFile(audio, p, WithFileClock(clock.Now))

	require.NoError(t, f.Start(context.Background()))
	clock.Advance(time.Second)
	frame := f.Frame()

	end := p.SampleRate
	assert.Equal(t, audio.PCM[end-p.WindowSize:end], frame.TimeDomain)
	assert.False(t, f.Done())

	clock.Advance(5 * time.Second)
	assert.Zero(t, common.RMS(f.Frame().TimeDomain))
	assert.True(t, f.Done())
}

func TestFileLoops(t *testing.T) {
	p := testParams()
	audio := rampAudio(p.SampleRate, p.SampleRate)
	clock := &testClock{now: time.Unix(0, 0)}
	f := NewFile(audio, p, WithFileClock(clock.Now), WithLoop(true))
	require.NoError(t, f.Start(context.Background()))

	clock.Advance(1500 * time.Millisecond)
	frame := f.Frame()

	end := p.SampleRate / 2
	assert.Equal(t, audio.PCM[end-p.WindowSize:end], frame.TimeDomain)
	assert.False(t, f.Done())
}

func TestFileRejectsSampleRateMismatch(t *testing.T) {
	f := NewFile(rampAudio(1000, 22050), testParams())
	assert.Error(t, f.Start(context.Background()))
}

func TestOpenFileDrivesEngine(t *testing.T) {
	p := testParams()
	pcm := make([]float64, 2*p.SampleRate)
	for i := range pcm {
		pcm[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(p.SampleRate))
	}
	var buf bytes.Buffer
	require.NoError(t, transcode.WriteWAV(&buf, pcm, p.SampleRate))
	path := filepath.Join(t.TempDir(), "a4.wav")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	clock := &testClock{now: time.Unix(0, 0)}
	f, err := OpenFile(path, p, WithFileClock(clock.Now))
	require.NoError(t, err)
	assert.Equal(t, "wav:"+path, f.Name())

	cfg := engine.DefaultConfig()
	cfg.TickInterval = 0
	e, err := engine.New(f, cfg)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	clock.Advance(time.Second)
	e.Tick()

	snap := e.Snapshot()
	require.NotNil(t, snap.CurrentNote)
	assert.Equal(t, "A4", snap.CurrentNote.Name)
}
