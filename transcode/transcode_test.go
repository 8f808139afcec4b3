package transcode

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, sampleRate, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestWAVRoundTrip(t *testing.T) {
	pcm := sine(440, 8000, 8000, 0.5)

	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, pcm, 8000))
	assert.Equal(t, 44+2*len(pcm), buf.Len())

	d := NewDecoder(&DecoderConfig{})
	data, err := d.DecodeReader(&buf)
	require.NoError(t, err)

	assert.Equal(t, 8000, data.SampleRate)
	assert.Equal(t, 1, data.Channels)
	assert.Equal(t, time.Second, data.Duration)
	require.Len(t, data.PCM, len(pcm))
	for i := 0; i < len(pcm); i += 97 {
		assert.InDelta(t, pcm[i], data.PCM[i], 1e-3)
	}
}

func TestDecodeFileResamplesAndLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(f, sine(440, 22050, 22050, 0.5), 22050))
	require.NoError(t, f.Close())

	d := NewDecoder(&DecoderConfig{TargetSampleRate: 44100, MaxDuration: 500 * time.Millisecond})
	data, err := d.DecodeFile(path)
	require.NoError(t, err)

	assert.Equal(t, 44100, data.SampleRate)
	assert.Equal(t, path, data.Source)
	assert.InDelta(t, 22050, len(data.PCM), 2)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := NewDecoder(nil).DecodeReader(bytes.NewReader([]byte("not a wav file at all")))
	assert.Error(t, err)

	_, err = NewDecoder(nil).DecodeFile(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float64{0.5, 0}, Downmix([]float64{1, 0, 0.5, -0.5}, 2))
	assert.Equal(t, []float64{1, 2}, Downmix([]float64{1, 2}, 1))
}

func TestResample(t *testing.T) {
	in := []float64{0, 1, 2, 3}
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3}, Resample(in, 1, 2))
	assert.Equal(t, []float64{0, 2}, Resample(in, 2, 1))
	assert.Equal(t, in, Resample(in, 44100, 44100))
}

func TestNormalizePeak(t *testing.T) {
	samples := []float64{0.1, -0.25, 0.2}
	NormalizePeak(samples, 0)
	assert.InDelta(t, -1, samples[1], 1e-12)
	assert.InDelta(t, 0.4, samples[0], 1e-12)

	silent := []float64{0, 0}
	NormalizePeak(silent, -1)
	assert.Equal(t, []float64{0, 0}, silent)
}

func TestWriteWAVClipsAndValidates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, []float64{2, -2}, 8000))
	data, err := NewDecoder(&DecoderConfig{}).DecodeReader(&buf)
	require.NoError(t, err)
	assert.InDelta(t, 1, data.PCM[0], 1e-3)
	assert.InDelta(t, -1, data.PCM[1], 1e-3)

	assert.Error(t, WriteWAV(&buf, nil, 0))
}

func TestDecodeRemovesDCOffset(t *testing.T) {
	pcm := sine(440, 8000, 8000, 0.25)
	for i := range pcm {
		pcm[i] += 0.5
	}
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, pcm, 8000))

	data, err := NewDecoder(&DecoderConfig{DCCutoff: 10}).DecodeReader(&buf)
	require.NoError(t, err)

	var mean float64
	tail := data.PCM[4000:]
	for _, v := range tail {
		mean += v
	}
	assert.InDelta(t, 0, mean/float64(len(tail)), 0.01)
}
