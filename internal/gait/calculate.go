// Package gait derives gait parameters (segment lengths, joint and limb
// angles, speed, stride length and duty factor) from a coordinate table of
// tracked landmarks.
//
// Calculate is the single entry point: it validates a Request against the
// Catalog, evaluates each parameter independently, runs the stride engine
// when a stride parameter is asked for, and prepends optional summary
// statistics. It holds no state between calls and is safe to call
// concurrently on independent inputs.
package gait

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/dsp"
	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/pose"
)

var logf = monitoring.WithPrefix("[gait]")

// Request names the parameters to compute and the summary statistics to
// prepend.
type Request struct {
	Parameters []string
	Statistics []Statistic
}

// Options carries the tuning applied to one calculation.
type Options struct {
	Catalog             *Catalog
	Stride              StrideParams
	VerticalOffset      float64
	AngleMedianWindow   int     // trailing median over angle columns; <= 1 disables
	LikelihoodThreshold float64 // mask x/y below this likelihood; <= 0 disables
}

// DefaultOptions returns options built from the built-in defaults.
func DefaultOptions() Options {
	return OptionsFromConfig(config.EmptyGaitConfig())
}

// OptionsFromConfig builds Options from a loaded GaitConfig with the default
// catalog.
func OptionsFromConfig(cfg *config.GaitConfig) Options {
	return Options{
		Catalog:             DefaultCatalog(),
		Stride:              StrideParamsFromConfig(cfg),
		VerticalOffset:      cfg.GetVerticalOffset(),
		AngleMedianWindow:   cfg.GetAngleMedianWindow(),
		LikelihoodThreshold: cfg.GetLikelihoodThreshold(),
	}
}

// Column is one derived parameter aligned with the input frames.
type Column struct {
	Name   string
	Unit   string
	Values []float64
}

// DerivedTable is the per-frame output of a calculation. Summary rows, when
// present, are in Minimum, Maximum, Mean, Standard Deviation order.
type DerivedTable struct {
	Frames  []int
	Columns []Column
	Summary []SummaryRow
}

// Column returns the column called name.
func (t *DerivedTable) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in order.
func (t *DerivedTable) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// ParameterFailure records a parameter that could not be computed.
type ParameterFailure struct {
	Parameter string
	Err       error
}

// Result bundles everything one calculation produced.
type Result struct {
	Table *DerivedTable
	// Stride is nil unless a stride parameter was requested and its landmark
	// resolved. Its Strides are shifted to frame numbers; Events stay row
	// indices.
	Stride   *StrideResult
	Failures []ParameterFailure
	Notes    []DegeneracyNote
}

// Failed reports whether parameter failed.
func (r *Result) Failed(parameter string) bool {
	for _, f := range r.Failures {
		if f.Parameter == parameter {
			return true
		}
	}
	return false
}

// Calculate evaluates req over table. Request and input problems (unknown
// parameter or statistic, malformed table) are returned as errors before any
// computation. Per-parameter problems are collected in Result.Failures and
// never stop the other parameters.
func Calculate(table *pose.Table, binding *pose.Binding, req Request, opts Options) (*Result, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", pose.ErrMalformedInput)
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	entries, err := resolve(opts.Catalog, req)
	if err != nil {
		return nil, err
	}

	if opts.LikelihoodThreshold > 0 {
		table = table.MaskBelow(opts.LikelihoodThreshold)
	}
	frames := table.Frames()
	ev := NewEvaluator(table, binding, opts.VerticalOffset)

	res := &Result{Table: &DerivedTable{Frames: frames}}
	var strideDone bool
	var strideErr error

	for _, entry := range entries {
		var values []float64
		if entry.Kind.Stride() {
			if !strideDone {
				strideDone = true
				res.Stride, strideErr = runStride(ev, entry, opts.Stride, frames)
			}
			if strideErr != nil {
				res.fail(entry.Name, strideErr)
				continue
			}
			values = strideColumn(res.Stride.Strides, frames, entry.Kind)
		} else {
			v, note, err := ev.Evaluate(entry)
			if err != nil {
				res.fail(entry.Name, err)
				continue
			}
			if (entry.Kind == KindAngle || entry.Kind == KindVerticalAngle) && opts.AngleMedianWindow > 1 {
				v = dsp.RollingMedian(v, opts.AngleMedianWindow)
			}
			if !note.Empty() {
				res.Notes = append(res.Notes, note)
			}
			values = v
		}
		res.Table.Columns = append(res.Table.Columns, Column{
			Name:   entry.Name,
			Unit:   entry.Kind.Unit(),
			Values: values,
		})
	}

	if len(req.Statistics) > 0 {
		cols := make([][]float64, len(res.Table.Columns))
		for i, c := range res.Table.Columns {
			cols[i] = c.Values
		}
		res.Table.Summary = Summarize(cols, req.Statistics)
	}
	return res, nil
}

func (r *Result) fail(parameter string, err error) {
	logf("%s skipped: %v", parameter, err)
	r.Failures = append(r.Failures, ParameterFailure{Parameter: parameter, Err: err})
}

func resolve(c *Catalog, req Request) ([]Entry, error) {
	for _, s := range req.Statistics {
		if s < Minimum || s > StandardDeviation {
			return nil, fmt.Errorf("%w: %d", ErrUnknownStatistic, int(s))
		}
	}
	seen := make(map[string]bool, len(req.Parameters))
	var (
		entries []Entry
		errs    []error
	)
	for _, name := range req.Parameters {
		e, err := c.Lookup(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		entries = append(entries, e)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return entries, nil
}

func runStride(ev *Evaluator, entry Entry, params StrideParams, frames []int) (*StrideResult, error) {
	tr, err := ev.Track(entry.Name, entry.Landmarks[0])
	if err != nil {
		return nil, err
	}
	engine, err := NewStrideEngine(params)
	if err != nil {
		return nil, err
	}
	res := engine.Run(tr.X)
	if res.Reason != nil {
		monitoring.Logf("[StrideEngine] %d strides: %v", len(res.Strides), res.Reason)
	}
	if res.Unmatched > 0 && res.Reason == nil {
		monitoring.Logf("[StrideEngine] %d of %d strides have no toe-off", res.Unmatched, len(res.Strides))
	}
	if len(frames) > 0 {
		shift := frames[0]
		for i := range res.Strides {
			res.Strides[i].Start += shift
			res.Strides[i].End += shift
			if res.Strides[i].ToeOff >= 0 {
				res.Strides[i].ToeOff += shift
			}
		}
	}
	return &res, nil
}

// strideColumn places each stride's value on the row of its starting frame.
func strideColumn(strides []Stride, frames []int, kind Kind) []float64 {
	out := make([]float64, len(frames))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(frames) == 0 {
		return out
	}
	for _, s := range strides {
		row := s.Start - frames[0]
		if row < 0 || row >= len(out) {
			continue
		}
		switch kind {
		case KindStrideLength:
			out[row] = float64(s.Length)
		case KindDutyFactor:
			out[row] = s.DutyFactor
		}
	}
	return out
}
