package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LFilter applies the IIR filter (b, a) to x using the transposed direct
// form II structure. zi is the initial state (length max(len(a), len(b))-1) or
// nil for a zero state. The final state is returned alongside the output.
func LFilter(b, a, x, zi []float64) (y, zf []float64) {
	b, a = normalise(b, a)
	n := len(a)
	z := make([]float64, n-1)
	copy(z, zi)

	y = make([]float64, len(x))
	for i, xi := range x {
		yi := b[0]*xi + first(z)
		for j := 0; j < n-2; j++ {
			z[j] = b[j+1]*xi + z[j+1] - a[j+1]*yi
		}
		if n > 1 {
			z[n-2] = b[n-1]*xi - a[n-1]*yi
		}
		y[i] = yi
	}
	return y, z
}

// LFilterZi returns the initial state for LFilter that corresponds to the
// steady state of the step response, so that a constant input produces a
// constant output from the first sample.
func LFilterZi(b, a []float64) ([]float64, error) {
	b, a = normalise(b, a)
	m := len(a) - 1
	if m == 0 {
		return nil, nil
	}

	// (I - companion(a)^T) zi = b[1:] - a[1:]*b[0]
	lhs := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		lhs.Set(i, i, 1)
	}
	for j := 0; j < m; j++ {
		lhs.Set(j, 0, lhs.At(j, 0)+a[j+1])
	}
	for i := 1; i < m; i++ {
		lhs.Set(i-1, i, lhs.At(i-1, i)-1)
	}
	rhs := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(lhs, rhs); err != nil {
		return nil, fmt.Errorf("solve filter initial state: %w", err)
	}
	return mat.Col(nil, 0, &zi), nil
}

// FiltFilt runs the filter forward and then backward over x, giving a
// zero-phase result of the same length. The signal is extended at both ends
// by odd reflection of 3*max(len(a), len(b)) samples and each pass starts
// from the steady-state initial conditions scaled by the first sample, as
// scipy.signal.filtfilt does by default.
func FiltFilt(b, a, x []float64) ([]float64, error) {
	ntaps := len(a)
	if len(b) > ntaps {
		ntaps = len(b)
	}
	padlen := 3 * ntaps
	if len(x) <= padlen {
		return nil, fmt.Errorf("%w: filtfilt needs more than %d samples, got %d", ErrTooShort, padlen, len(x))
	}

	ext := oddExtend(x, padlen)
	zi, err := LFilterZi(b, a)
	if err != nil {
		return nil, err
	}

	y, _ := LFilter(b, a, ext, scaled(zi, ext[0]))
	reverse(y)
	y, _ = LFilter(b, a, y, scaled(zi, y[0]))
	reverse(y)

	out := make([]float64, len(x))
	copy(out, y[padlen:padlen+len(x)])
	return out, nil
}

// oddExtend reflects x about its end points: 2*x[0]-x[padlen..1] on the left
// and 2*x[n-1]-x[n-2..n-1-padlen] on the right.
func oddExtend(x []float64, padlen int) []float64 {
	n := len(x)
	ext := make([]float64, n+2*padlen)
	for i := 0; i < padlen; i++ {
		ext[i] = 2*x[0] - x[padlen-i]
		ext[padlen+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[padlen:], x)
	return ext
}

// normalise pads b and a to a common length and divides both by a[0].
func normalise(b, a []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	nb := make([]float64, n)
	na := make([]float64, n)
	copy(nb, b)
	copy(na, a)
	if a0 := na[0]; a0 != 1 && a0 != 0 {
		for i := range nb {
			nb[i] /= a0
			na[i] /= a0
		}
	}
	return nb, na
}

func scaled(v []float64, k float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * k
	}
	return out
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

func first(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}
