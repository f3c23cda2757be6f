// File path: internal/calc/stats.go
package calc

import (
	"fmt"
	"math"
	"sort"
)

// Statistics helpers operate on the operand list extracted from the query.
// They reject empty input with typed errors rather than returning NaN.

func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("mean requires at least one value")
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values)), nil
}

func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("median requires at least one value")
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}

// Mode returns the most frequent value. Ties resolve to the smallest value
// so the result is deterministic.
func Mode(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("mode requires at least one value")
	}
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := math.Inf(1), 0
	for v, count := range counts {
		if count > bestCount || (count == bestCount && v < best) {
			best, bestCount = v, count
		}
	}
	return best, nil
}

// Variance is the population variance.
func Variance(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("variance requires at least one value")
	}
	mean, err := Mean(values)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, v := range values {
		diff := v - mean
		total += diff * diff
	}
	return total / float64(len(values)), nil
}

func StdDev(values []float64) (float64, error) {
	variance, err := Variance(values)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(variance), nil
}

// Percentile uses linear interpolation between closest ranks; p is in
// [0,100].
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("percentile requires at least one value")
	}
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("percentile must be between 0 and 100, got %g", p)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0], nil
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower], nil
	}
	fraction := rank - float64(lower)
	return sorted[lower] + fraction*(sorted[upper]-sorted[lower]), nil
}
