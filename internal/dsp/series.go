package dsp

import (
	"fmt"
	"math"
	"sort"
)

// Median returns the median of the non-NaN values of x, averaging the two
// middle values for an even count. It returns NaN when no value is present.
func Median(x []float64) float64 {
	vals := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

// RollingMedian returns the trailing median over window samples. The first
// window-1 outputs, and any window that contains NaN, are NaN. A window of 1
// or less returns a copy of x.
func RollingMedian(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	if window <= 1 {
		copy(out, x)
		return out
	}
	buf := make([]float64, window)
	for i := range x {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		copy(buf, x[i-window+1:i+1])
		out[i] = medianStrict(buf)
	}
	return out
}

func medianStrict(w []float64) float64 {
	for _, v := range w {
		if math.IsNaN(v) {
			return math.NaN()
		}
	}
	return Median(w)
}

// FillGaps replaces NaN samples by linear interpolation between the nearest
// valid neighbours; leading and trailing gaps take the nearest valid value.
// It returns the filled copy and the number of samples replaced.
func FillGaps(x []float64) ([]float64, int, error) {
	out := make([]float64, len(x))
	copy(out, x)

	var valid []int
	for i, v := range x {
		if !math.IsNaN(v) {
			valid = append(valid, i)
		}
	}
	if len(valid) == 0 {
		return nil, 0, fmt.Errorf("%w: no valid samples", ErrTooShort)
	}

	filled := 0
	for i := 0; i < valid[0]; i++ {
		out[i] = x[valid[0]]
		filled++
	}
	last := valid[len(valid)-1]
	for i := last + 1; i < len(x); i++ {
		out[i] = x[last]
		filled++
	}
	for k := 1; k < len(valid); k++ {
		lo, hi := valid[k-1], valid[k]
		if hi-lo < 2 {
			continue
		}
		step := (x[hi] - x[lo]) / float64(hi-lo)
		for i := lo + 1; i < hi; i++ {
			out[i] = x[lo] + step*float64(i-lo)
			filled++
		}
	}
	return out, filled, nil
}
