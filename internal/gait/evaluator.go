package gait

import (
	"fmt"
	"math"

	"github.com/banshee-data/gait.report/internal/dsp"
	"github.com/banshee-data/gait.report/internal/geometry"
	"github.com/banshee-data/gait.report/internal/pose"
)

// DefaultVerticalOffset is the y offset of the synthetic point that defines
// the vertical ray for KindVerticalAngle. Positive y points down the image.
const DefaultVerticalOffset = 1.0

// Evaluator applies geometry primitives to every row of a coordinate table,
// resolving landmarks through a binding.
type Evaluator struct {
	table          *pose.Table
	binding        *pose.Binding
	verticalOffset float64
}

// NewEvaluator returns an evaluator over table. A zero verticalOffset selects
// DefaultVerticalOffset.
func NewEvaluator(table *pose.Table, binding *pose.Binding, verticalOffset float64) *Evaluator {
	if verticalOffset == 0 {
		verticalOffset = DefaultVerticalOffset
	}
	return &Evaluator{table: table, binding: binding, verticalOffset: verticalOffset}
}

// Rows is the number of rows every output column has.
func (e *Evaluator) Rows() int { return e.table.Len() }

// Track resolves a landmark to its coordinate series. param is used only to
// label the error.
func (e *Evaluator) Track(param string, l pose.Landmark) (pose.Track, error) {
	prefix, ok := e.binding.Prefix(l)
	if !ok {
		return pose.Track{}, &BindingError{Parameter: param, Landmark: l}
	}
	tr, ok := e.table.Track(prefix)
	if !ok {
		return pose.Track{}, &BindingError{Parameter: param, Landmark: l}
	}
	return tr, nil
}

func (e *Evaluator) tracks(param string, ls []pose.Landmark) ([]pose.Track, error) {
	out := make([]pose.Track, len(ls))
	for i, l := range ls {
		tr, err := e.Track(param, l)
		if err != nil {
			return nil, err
		}
		out[i] = tr
	}
	return out, nil
}

// Evaluate computes a geometric entry (distance, angle, angle from vertical
// or speed) for every row. Stride kinds are not handled here.
func (e *Evaluator) Evaluate(entry Entry) ([]float64, DegeneracyNote, error) {
	note := DegeneracyNote{Parameter: entry.Name}
	if len(entry.Landmarks) != entry.Kind.Arity() {
		return nil, note, fmt.Errorf("%s: %s takes %d landmarks, got %d", entry.Name, entry.Kind, entry.Kind.Arity(), len(entry.Landmarks))
	}
	trs, err := e.tracks(entry.Name, entry.Landmarks)
	if err != nil {
		return nil, note, err
	}

	switch entry.Kind {
	case KindDistance:
		out, n := e.distances(trs[0], trs[1])
		n.Parameter = entry.Name
		return out, n, nil
	case KindAngle:
		out, n := e.angles(trs[0], trs[1], trs[2], false)
		n.Parameter = entry.Name
		return out, n, nil
	case KindVerticalAngle:
		out, n := e.angles(trs[0], trs[1], pose.Track{}, true)
		n.Parameter = entry.Name
		return out, n, nil
	case KindSpeed:
		out := Speed(trs[0].X, trs[0].Y)
		note.Missing = countNaN(out)
		return out, note, nil
	}
	return nil, note, fmt.Errorf("%s: kind %s is not a per-row geometric parameter", entry.Name, entry.Kind)
}

func (e *Evaluator) distances(a, b pose.Track) ([]float64, DegeneracyNote) {
	var note DegeneracyNote
	out := make([]float64, e.Rows())
	for i := range out {
		p1 := geometry.Pt(a.X[i], a.Y[i])
		p2 := geometry.Pt(b.X[i], b.Y[i])
		out[i] = geometry.Distance(p1, p2)
		switch {
		case p1.IsNaN() || p2.IsNaN():
			note.Missing++
		case p1 == p2:
			note.Degenerate++
		}
	}
	return out, note
}

func (e *Evaluator) angles(vertex, end, other pose.Track, vertical bool) ([]float64, DegeneracyNote) {
	var note DegeneracyNote
	out := make([]float64, e.Rows())
	for i := range out {
		v := geometry.Pt(vertex.X[i], vertex.Y[i])
		p1 := geometry.Pt(end.X[i], end.Y[i])
		var p2 geometry.Point
		if vertical {
			p2 = v.Add(geometry.Pt(0, e.verticalOffset))
		} else {
			p2 = geometry.Pt(other.X[i], other.Y[i])
		}
		out[i] = geometry.Angle(v, p1, p2)
		switch {
		case v.IsNaN() || p1.IsNaN() || p2.IsNaN():
			note.Missing++
		case geometry.IsDegenerate(v, p1, p2):
			note.Degenerate++
		}
	}
	return out, note
}

// Speed returns the per-row magnitude of the numeric gradient of (x, y), in
// pixels per frame.
func Speed(x, y []float64) []float64 {
	gx := dsp.Gradient(x)
	gy := dsp.Gradient(y)
	out := make([]float64, len(gx))
	for i := range out {
		out[i] = math.Hypot(gx[i], gy[i])
	}
	return out
}

func countNaN(x []float64) int {
	n := 0
	for _, v := range x {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
