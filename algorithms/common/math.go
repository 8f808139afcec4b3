package common

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers shared by the tonal pipeline, backed by gonum

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// PopulationStdDev calculates the standard deviation with an N denominator
func PopulationStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Norm(data, 2) / math.Sqrt(float64(len(data)))
}

// UpperMedian returns sorted[len/2]. For even lengths this is the upper of the
// two middle elements rather than their average.
func UpperMedian(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	sorted := slices.Clone(data)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

// Clamp limits v to [lo, hi]; NaN maps to lo
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1]
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// ZScore returns (x - mean) / std using the population standard deviation.
// Constant input yields all zeros.
func ZScore(data []float64) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(data, nil)
	if std < 1e-12 {
		return out
	}
	for i, v := range data {
		out[i] = (v - mean) / std
	}
	return out
}

// Pearson computes the Pearson correlation of two equal-length slices.
// Degenerate input (length mismatch, fewer than two points, zero variance)
// returns 0 instead of NaN.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0.0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0.0
	}
	return r
}

// ArgMax returns the index of the largest value, or -1 for empty input.
// Ties resolve to the lowest index.
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// Sum returns the sum of data
func Sum(data []float64) float64 {
	return floats.Sum(data)
}
