// Package dsp implements the small set of signal-processing routines the gait
// engine needs: Butterworth low-pass design, zero-phase filtering, numerical
// gradient and peak detection.
//
// The routines follow the conventions of SciPy/NumPy (butter, filtfilt,
// gradient, find_peaks) closely enough that event frames computed here match
// those produced by the reference analysis scripts.
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrTooShort is returned when a series is too short for the requested
// operation (for example shorter than the filtfilt edge padding).
var ErrTooShort = errors.New("series too short")

// Butter designs an order-n digital Butterworth low-pass filter and returns
// its transfer function coefficients (b, a). wn is the cutoff as a fraction of
// the Nyquist frequency and must lie in (0, 1).
//
// The design goes analog prototype -> frequency pre-warp -> bilinear
// transform, the same path scipy.signal.butter takes with fs = 2.
func Butter(n int, wn float64) (b, a []float64, err error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("filter order must be >= 1, got %d", n)
	}
	if !(wn > 0 && wn < 1) {
		return nil, nil, fmt.Errorf("normalised cutoff must be in (0, 1), got %g", wn)
	}

	const fs = 2.0
	warped := 2 * fs * math.Tan(math.Pi*wn/fs)

	// Analog prototype poles on the unit circle, left half plane, scaled to
	// the warped cutoff. The prototype has no zeros and unit gain.
	poles := make([]complex128, n)
	for k := 0; k < n; k++ {
		m := float64(-n + 1 + 2*k)
		poles[k] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*n))) * complex(warped, 0)
	}
	gain := math.Pow(warped, float64(n))

	// Bilinear transform. All n analog zeros at infinity map to z = -1.
	fs2 := complex(2*fs, 0)
	zPoles := make([]complex128, n)
	zZeros := make([]complex128, n)
	den := complex(1, 0)
	for i, p := range poles {
		zPoles[i] = (fs2 + p) / (fs2 - p)
		zZeros[i] = -1
		den *= fs2 - p
	}
	gain *= real(1 / den)

	b = poly(zZeros)
	for i := range b {
		b[i] *= gain
	}
	a = poly(zPoles)
	return b, a, nil
}

// poly returns the real parts of the coefficients of the monic polynomial
// with the given roots, highest power first.
func poly(roots []complex128) []float64 {
	c := make([]complex128, 1, len(roots)+1)
	c[0] = 1
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		for i, v := range c {
			next[i] += v
			next[i+1] -= v * r
		}
		c = next
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}
