package dsp

import "math"

// Gradient returns the per-sample derivative of f with unit spacing: central
// differences in the interior and one-sided differences at both ends, as
// numpy.gradient computes. Series shorter than two samples have no defined
// derivative and yield NaN.
func Gradient(f []float64) []float64 {
	n := len(f)
	out := make([]float64, n)
	if n < 2 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	out[0] = f[1] - f[0]
	out[n-1] = f[n-1] - f[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (f[i+1] - f[i-1]) / 2
	}
	return out
}

// Abs returns |x| element-wise.
func Abs(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Abs(v)
	}
	return out
}
