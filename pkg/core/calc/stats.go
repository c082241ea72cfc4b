package calc

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the middle value (average of the two middle values for even counts).
// The input slice is not reordered.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// PopulationStdDev calculates σ with N in the denominator.
//
// FORMULA: σ = sqrt( Σ (x - μ)^2 / N )
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mu := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// FilterOpen keeps values strictly inside (low, high).
func FilterOpen(values []float64, low, high float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > low && v < high {
			out = append(out, v)
		}
	}
	return out
}

// Clamp bounds v to [low, high].
func Clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}
