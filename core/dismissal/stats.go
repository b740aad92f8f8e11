package dismissal

import (
	"math"
	"sort"
)

// ComputeStats returns the descriptive statistics of values; an empty sample yields zeroed Stats.
// StdDev is the population standard deviation.
func ComputeStats(values []float64) Stats {
	n := len(values)
	if n == 0 {
		return Stats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var median float64
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		median = sorted[n/2]
	}

	var sqDiff float64
	for _, v := range sorted {
		sqDiff += (v - mean) * (v - mean)
	}
	stdDev := math.Sqrt(sqDiff / float64(n))

	return Stats{
		Count:  n,
		Min:    math.Round(sorted[0]),
		Max:    math.Round(sorted[n-1]),
		Mean:   math.Round(mean),
		Median: math.Round(median),
		StdDev: math.Round(stdDev),
	}
}

func round(value float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(value*p) / p
}
