package accel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCPUDifferenceFunction(t *testing.T) {
	x := []float64{1, 0, -1, 0, 1, 0, -1, 0}
	dst := make([]float64, 5)
	NewCPU().DifferenceFunction(x, dst)

	assert.Equal(t, 0.0, dst[0])
	assert.Equal(t, 0.0, dst[4]) // period 4
	assert.Greater(t, dst[2], dst[1])
}

func TestCPUHarmonicProduct(t *testing.T) {
	mag := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]float64, 3)
	NewCPU().HarmonicProduct(mag, 3, dst)

	assert.Equal(t, []float64{1, 2 * 3 * 4, 3 * 5 * 7}, dst)
}

func TestDefaultIsCPU(t *testing.T) {
	s := Default()
	assert.Equal(t, "cpu", s.Name())
	assert.False(t, s.Accelerated())
}
