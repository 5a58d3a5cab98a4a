package pose

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrMalformedInput is returned when a coordinate table cannot be safely
// processed row by row: mismatched column lengths, a landmark without both
// axes, or a frame index that is not strictly consecutive.
var ErrMalformedInput = errors.New("malformed coordinate table")

// Axis suffixes used in column names ("<prefix>_<axis>").
const (
	AxisX          = "x"
	AxisY          = "y"
	AxisLikelihood = "likelihood"
)

// Column is a named numeric column, e.g. "righthock_x".
type Column struct {
	Name   string
	Values []float64
}

// Track is the time series of one tracked point. Likelihood is nil when the
// export carried no confidence scores.
type Track struct {
	X          []float64
	Y          []float64
	Likelihood []float64
}

// Table is an immutable coordinate table: one row per frame, one Track per
// tracked column prefix. Missing cells are NaN.
type Table struct {
	frames   []int
	prefixes []string
	tracks   map[string]Track
}

// NewTable validates and assembles a coordinate table. Column names must be
// "<prefix>_x", "<prefix>_y" or "<prefix>_likelihood"; every prefix needs both
// axes, every column must have one value per frame, and frames must increase
// by exactly one.
func NewTable(frames []int, columns []Column) (*Table, error) {
	for i := 1; i < len(frames); i++ {
		if frames[i] != frames[i-1]+1 {
			return nil, fmt.Errorf("%w: frame %d follows frame %d", ErrMalformedInput, frames[i], frames[i-1])
		}
	}

	t := &Table{
		frames: append([]int(nil), frames...),
		tracks: make(map[string]Track),
	}
	for _, c := range columns {
		prefix, axis, ok := SplitColumnName(c.Name)
		if !ok {
			return nil, fmt.Errorf("%w: column %q is not <landmark>_<axis>", ErrMalformedInput, c.Name)
		}
		if len(c.Values) != len(frames) {
			return nil, fmt.Errorf("%w: column %q has %d values for %d frames", ErrMalformedInput, c.Name, len(c.Values), len(frames))
		}
		tr, seen := t.tracks[prefix]
		if !seen {
			t.prefixes = append(t.prefixes, prefix)
		}
		vals := append([]float64(nil), c.Values...)
		var dup bool
		switch axis {
		case AxisX:
			dup, tr.X = tr.X != nil, vals
		case AxisY:
			dup, tr.Y = tr.Y != nil, vals
		case AxisLikelihood:
			dup, tr.Likelihood = tr.Likelihood != nil, vals
		}
		if dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedInput, c.Name)
		}
		t.tracks[prefix] = tr
	}
	for _, p := range t.prefixes {
		tr := t.tracks[p]
		if tr.X == nil || tr.Y == nil {
			return nil, fmt.Errorf("%w: %q needs both _x and _y columns", ErrMalformedInput, p)
		}
	}
	return t, nil
}

// SplitColumnName splits "left_hind_hoof_x" into ("left_hind_hoof", "x").
func SplitColumnName(name string) (prefix, axis string, ok bool) {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	prefix, axis = name[:i], strings.ToLower(name[i+1:])
	switch axis {
	case AxisX, AxisY, AxisLikelihood:
		return prefix, axis, true
	}
	return "", "", false
}

// Len returns the number of frames.
func (t *Table) Len() int { return len(t.frames) }

// Frames returns a copy of the frame index.
func (t *Table) Frames() []int { return append([]int(nil), t.frames...) }

// Prefixes returns the tracked column prefixes in input order.
func (t *Table) Prefixes() []string { return append([]string(nil), t.prefixes...) }

// Has reports whether prefix is tracked.
func (t *Table) Has(prefix string) bool {
	_, ok := t.tracks[prefix]
	return ok
}

// Track returns the series for prefix. The slices are shared; callers must not
// modify them.
func (t *Table) Track(prefix string) (Track, bool) {
	tr, ok := t.tracks[prefix]
	return tr, ok
}

// MaskBelow returns a copy of t in which x and y are NaN wherever the
// likelihood is below threshold or missing. Tracks without a likelihood
// column are unchanged.
func (t *Table) MaskBelow(threshold float64) *Table {
	out := &Table{
		frames:   t.frames,
		prefixes: t.prefixes,
		tracks:   make(map[string]Track, len(t.tracks)),
	}
	for p, tr := range t.tracks {
		if tr.Likelihood == nil || threshold <= 0 {
			out.tracks[p] = tr
			continue
		}
		x := append([]float64(nil), tr.X...)
		y := append([]float64(nil), tr.Y...)
		for i, l := range tr.Likelihood {
			if math.IsNaN(l) || l < threshold {
				x[i] = math.NaN()
				y[i] = math.NaN()
			}
		}
		out.tracks[p] = Track{X: x, Y: y, Likelihood: tr.Likelihood}
	}
	return out
}

// Columns flattens the table back into named columns, prefix by prefix in x,
// y, likelihood order.
func (t *Table) Columns() []Column {
	var cols []Column
	for _, p := range t.prefixes {
		tr := t.tracks[p]
		cols = append(cols,
			Column{Name: p + "_" + AxisX, Values: tr.X},
			Column{Name: p + "_" + AxisY, Values: tr.Y},
		)
		if tr.Likelihood != nil {
			cols = append(cols, Column{Name: p + "_" + AxisLikelihood, Values: tr.Likelihood})
		}
	}
	return cols
}
