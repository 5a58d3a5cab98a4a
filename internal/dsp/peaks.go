package dsp

import (
	"math"
	"sort"
)

// PeakOptions filters the local maxima returned by FindPeaks. Zero values
// disable the corresponding filter.
type PeakOptions struct {
	// Distance is the minimum index separation between neighbouring peaks.
	// Smaller peaks are discarded first.
	Distance float64
	// Prominence is the minimum vertical drop from a peak to the higher of
	// its two surrounding bases.
	Prominence float64
}

// FindPeaks returns the indices of local maxima of x, in increasing order.
// Flat-topped maxima report the middle sample (rounded down). End points are
// never peaks. The distance filter runs before the prominence filter,
// matching scipy.signal.find_peaks.
func FindPeaks(x []float64, opts PeakOptions) []int {
	peaks := localMaxima(x)
	if opts.Distance > 1 && len(peaks) > 1 {
		peaks = selectByDistance(x, peaks, int(math.Ceil(opts.Distance)))
	}
	if opts.Prominence > 0 && len(peaks) > 0 {
		proms := Prominences(x, peaks)
		kept := peaks[:0]
		for i, p := range peaks {
			if proms[i] >= opts.Prominence {
				kept = append(kept, p)
			}
		}
		peaks = kept
	}
	return peaks
}

func localMaxima(x []float64) []int {
	var peaks []int
	n := len(x)
	i := 1
	for i < n-1 {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < n-1 && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				left, right := i, ahead-1
				peaks = append(peaks, (left+right)/2)
				i = ahead
			}
		}
		i++
	}
	return peaks
}

// selectByDistance keeps the highest peaks such that no two kept peaks are
// closer than distance samples.
func selectByDistance(x []float64, peaks []int, distance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] < x[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// Prominences returns the prominence of each peak: its height above the
// higher of the lowest points reached walking left and right until the signal
// rises above the peak or the series ends.
func Prominences(x []float64, peaks []int) []float64 {
	out := make([]float64, len(peaks))
	for n, p := range peaks {
		h := x[p]

		leftMin := h
		for i := p; i >= 0 && x[i] <= h; i-- {
			if x[i] < leftMin {
				leftMin = x[i]
			}
		}
		rightMin := h
		for i := p; i < len(x) && x[i] <= h; i++ {
			if x[i] < rightMin {
				rightMin = x[i]
			}
		}
		out[n] = h - math.Max(leftMin, rightMin)
	}
	return out
}
