package dsp

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

var nan = math.NaN()

func TestGradient(t *testing.T) {
	assert.Equal(t, []float64{1, 1.5, 2.5, 3.5, 4}, Gradient([]float64{1, 2, 4, 7, 11}))
	assert.Equal(t, []float64{3, 3}, Gradient([]float64{1, 4}))
	assert.True(t, math.IsNaN(Gradient([]float64{5})[0]))
	assert.Empty(t, Gradient(nil))
}

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		opts PeakOptions
		want []int
	}{
		{"plain maxima", []float64{0, 1, 0, 2, 0, 3, 0}, PeakOptions{}, []int{1, 3, 5}},
		{"distance keeps the highest", []float64{0, 1, 0, 2, 0, 3, 0}, PeakOptions{Distance: 3}, []int{1, 5}},
		{"prominence", []float64{0, 5, 4, 6, 0}, PeakOptions{Prominence: 2}, []int{3}},
		{"odd plateau", []float64{0, 2, 2, 2, 0}, PeakOptions{}, []int{2}},
		{"even plateau rounds down", []float64{0, 2, 2, 0}, PeakOptions{}, []int{1}},
		{"edges are not peaks", []float64{3, 1, 2}, PeakOptions{}, nil},
		{"plateau running to the end", []float64{0, 2, 2}, PeakOptions{}, nil},
		{"empty", nil, PeakOptions{Distance: 5, Prominence: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPeaks(tt.x, tt.opts)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("FindPeaks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProminences(t *testing.T) {
	x := []float64{0, 5, 4, 6, 0}
	assert.Equal(t, []float64{1, 6}, Prominences(x, []int{1, 3}))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 2.0, Median([]float64{nan, 3, 1, nan}))
	assert.True(t, math.IsNaN(Median(nil)))
	assert.True(t, math.IsNaN(Median([]float64{nan})))

	// Odd-length samples agree with gonum's empirical quantile.
	x := []float64{9, 2, 7, 4, 5}
	sorted := []float64{2, 4, 5, 7, 9}
	assert.Equal(t, stat.Quantile(0.5, stat.Empirical, sorted, nil), Median(x))
}

func TestRollingMedian(t *testing.T) {
	got := RollingMedian([]float64{1, 5, 2, 8, nan, 3}, 3)
	want := []float64{nan, nan, 2, 5, nan, nan}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("RollingMedian mismatch (-want +got):\n%s", diff)
	}

	in := []float64{1, 2}
	out := RollingMedian(in, 1)
	assert.Equal(t, in, out)
	out[0] = 9
	assert.Equal(t, 1.0, in[0], "window 1 returns a copy")
}

func TestFillGaps(t *testing.T) {
	got, filled, err := FillGaps([]float64{nan, 1, nan, nan, 4, nan})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 2, 3, 4, 4}, got)
	assert.Equal(t, 4, filled)

	got, filled, err = FillGaps([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)
	assert.Zero(t, filled)

	_, _, err = FillGaps([]float64{nan, nan})
	assert.True(t, errors.Is(err, ErrTooShort))
}
