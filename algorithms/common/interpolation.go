package common

import "math"

// ParabolicOffset fits a parabola through (−1, left), (0, center), (1, right)
// and returns the abscissa of its vertex, in [-0.5, 0.5] for a proper extremum.
// A flat neighbourhood returns 0.
func ParabolicOffset(left, center, right float64) float64 {
	denom := left - 2*center + right
	if math.Abs(denom) < 1e-12 {
		return 0.0
	}
	offset := 0.5 * (left - right) / denom
	if math.IsNaN(offset) || math.Abs(offset) > 1 {
		return 0.0
	}
	return offset
}

// ParabolicPeak refines index i of data with its neighbours. Edges and
// out-of-range indices are returned unrefined.
func ParabolicPeak(data []float64, i int) float64 {
	if i <= 0 || i >= len(data)-1 {
		return float64(i)
	}
	return float64(i) + ParabolicOffset(data[i-1], data[i], data[i+1])
}
