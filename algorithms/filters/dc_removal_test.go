package filters

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDCBlockerRemovesOffset(t *testing.T) {
	const sr = 44100
	dc := NewDCBlocker(sr, 10)
	assert.InDelta(t, 10, dc.Cutoff(sr), 1e-9)

	buf := make([]float64, sr)
	for i := range buf {
		buf[i] = 0.5 + 0.25*math.Sin(2*math.Pi*440*float64(i)/sr)
	}
	dc.ProcessInPlace(buf)

	var mean float64
	tail := buf[sr/2:]
	for _, v := range tail {
		mean += v
	}
	mean /= float64(len(tail))
	assert.InDelta(t, 0, mean, 1e-3)
}

func TestDCBlockerMagnitude(t *testing.T) {
	dc := NewDCBlocker(44100, 10)
	assert.InDelta(t, 0, dc.Magnitude(0, 44100), 1e-12)
	assert.InDelta(t, 1, dc.Magnitude(440, 44100), 0.01)
	assert.InDelta(t, 1/math.Sqrt2, dc.Magnitude(10, 44100), 0.02)
}

func TestDCBlockerDefaultsAndReset(t *testing.T) {
	assert.Equal(t, DefaultPole, NewDCBlocker(0, 10).Pole())
	assert.Equal(t, DefaultPole, NewDCBlocker(44100, 0).Pole())

	dc := NewDCBlocker(44100, 20)
	first := dc.Process(1)
	dc.Process(1)
	dc.Reset()
	assert.Equal(t, first, dc.Process(1))

	f32 := []float32{1, 1, 1}
	dc.Reset()
	dc.ProcessFloat32(f32)
	assert.InDelta(t, first, f32[0], 1e-6)
}
