package gait

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/pose"
)

// lcgNoise returns n deterministic samples uniform in [-amp/2, amp/2).
func lcgNoise(n int, seed uint64, amp float64) []float64 {
	out := make([]float64, n)
	s := seed
	for i := range out {
		s = s*6364136223846793005 + 1442695040888963407
		out[i] = (float64(s>>11)/(1<<53) - 0.5) * amp
	}
	return out
}

// sinusoid returns amp*sin(2*pi*t/period) plus lcg noise.
func sinusoid(n int, period, amp, noise float64) []float64 {
	nz := lcgNoise(n, 1, noise)
	out := make([]float64, n)
	for t := range out {
		out[t] = amp*math.Sin(2*math.Pi*float64(t)/period) + nz[t]
	}
	return out
}

// hockTrajectory integrates a hoof-like velocity profile: still for stance
// frames, then a trapezoidal forward swing peaking at v px/frame with ramp
// frames of acceleration at each end. The first phase samples are dropped.
func hockTrajectory(period, stance, ramp int, v float64, cycles, phase int) []float64 {
	swing := period - stance
	vel := make([]float64, 0, period*cycles)
	for c := 0; c < cycles; c++ {
		for i := 0; i < period; i++ {
			switch j := i - stance; {
			case i < stance:
				vel = append(vel, 0)
			case j < ramp:
				vel = append(vel, v*float64(j+1)/float64(ramp))
			case j >= swing-ramp:
				vel = append(vel, v*float64(swing-j)/float64(ramp))
			default:
				vel = append(vel, v)
			}
		}
	}
	x := make([]float64, 0, len(vel)-phase)
	sum := 0.0
	for _, q := range vel[phase:] {
		sum += q
		x = append(x, sum)
	}
	return x
}

type xy struct{ x, y []float64 }

// buildTable assembles a table starting at frame first from prefix->xy.
func buildTable(t *testing.T, first int, tracks map[string]xy) *pose.Table {
	t.Helper()
	prefixes := make([]string, 0, len(tracks))
	for p := range tracks {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	var cols []pose.Column
	n := -1
	for _, p := range prefixes {
		tr := tracks[p]
		n = len(tr.x)
		cols = append(cols,
			pose.Column{Name: p + "_x", Values: tr.x},
			pose.Column{Name: p + "_y", Values: tr.y},
		)
	}
	frames := make([]int, n)
	for i := range frames {
		frames[i] = first + i
	}
	tbl, err := pose.NewTable(frames, cols)
	require.NoError(t, err)
	return tbl
}

func bind(t *testing.T, tbl *pose.Table, m map[string]string) *pose.Binding {
	t.Helper()
	b, err := pose.NewBinding(pose.AssignmentsFromMap(m), tbl)
	require.NoError(t, err)
	return b
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
