// Package accel abstracts the inner loops of the pitch detectors so that a
// hardware backend can replace the CPU reference without changing detector
// contracts.
package accel

// Strategy computes the heavy per-frame kernels used by pitch detection.
// Implementations must produce results equal (within float tolerance) to CPU.
type Strategy interface {
	// Name identifies the backend, e.g. "cpu"
	Name() string

	// Accelerated reports whether the backend offloads work from the CPU
	Accelerated() bool

	// DifferenceFunction fills dst[lag] = Σ (x[i] - x[i+lag])² for i < len(x)-lag
	// and every lag < len(dst)
	DifferenceFunction(x []float64, dst []float64)

	// HarmonicProduct fills dst[i] = Π mag[i·h] for h = 1..harmonics, skipping
	// harmonic bins beyond len(mag)
	HarmonicProduct(mag []float64, harmonics int, dst []float64)
}

// CPU is the reference Strategy implementation
type CPU struct{}

// NewCPU returns the CPU reference strategy
func NewCPU() *CPU {
	return &CPU{}
}

func (c *CPU) Name() string {
	return "cpu"
}

func (c *CPU) Accelerated() bool {
	return false
}

func (c *CPU) DifferenceFunction(x []float64, dst []float64) {
	n := len(x)
	for lag := range dst {
		sum := 0.0
		for i := 0; i < n-lag; i++ {
			diff := x[i] - x[i+lag]
			sum += diff * diff
		}
		dst[lag] = sum
	}
}

func (c *CPU) HarmonicProduct(mag []float64, harmonics int, dst []float64) {
	for i := range dst {
		if i >= len(mag) {
			dst[i] = 0
			continue
		}
		product := mag[i]
		for h := 2; h <= harmonics; h++ {
			if bin := i * h; bin < len(mag) {
				product *= mag[bin]
			}
		}
		dst[i] = product
	}
}

// Default returns the strategy used when none is configured
func Default() Strategy {
	return NewCPU()
}
