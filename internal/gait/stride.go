package gait

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/dsp"
)

// StrideParams are the tuning constants of the stride engine. The defaults
// were tuned empirically on hock x trajectories and should not be changed
// without re-validating against labelled footage.
type StrideParams struct {
	FilterOrder       int     // Butterworth order (default: 8)
	CutoffFrequency   float64 // Cutoff relative to NyquistFrequency (default: 0.05)
	NyquistFrequency  float64 // default: 0.5, giving a normalised cutoff of 0.1
	PeakProminence    float64 // Minimum prominence of |gradient| peaks (default: 1)
	PeakDistance      float64 // Minimum frames between peaks (default: 25)
	ThresholdFraction float64 // Fraction of the median peak gradient (default: 0.25)
	ToeOffLookahead   int     // Frames a toe-off is pushed past its crossing (default: 10)
}

// DefaultStrideParams returns the built-in stride constants.
func DefaultStrideParams() StrideParams {
	return StrideParamsFromConfig(config.EmptyGaitConfig())
}

// StrideParamsFromConfig builds StrideParams from a loaded GaitConfig.
func StrideParamsFromConfig(cfg *config.GaitConfig) StrideParams {
	return StrideParams{
		FilterOrder:       cfg.GetFilterOrder(),
		CutoffFrequency:   cfg.GetCutoffFrequency(),
		NyquistFrequency:  cfg.GetNyquistFrequency(),
		PeakProminence:    cfg.GetPeakProminence(),
		PeakDistance:      cfg.GetPeakDistance(),
		ThresholdFraction: cfg.GetThresholdFraction(),
		ToeOffLookahead:   cfg.GetToeOffLookahead(),
	}
}

// Stride is one gait cycle between consecutive footstrikes. Start, End and
// ToeOff are row indices into the input series; ToeOff is -1 and DutyFactor
// NaN when no toe-off falls inside the stride.
type Stride struct {
	Start      int
	End        int
	Length     int
	ToeOff     int
	DutyFactor float64
}

// Events holds the detected gait events and the intermediate series they
// were derived from, all indexed by row.
type Events struct {
	Filtered    []float64
	Gradient    []float64
	Peaks       []int
	Threshold   float64
	Footstrikes []int
	ToeOffs     []int
	Filled      int // NaN samples interpolated before filtering
}

// StrideResult is the output of one engine run. Reason is nil on a clean run
// and otherwise wraps ErrInsufficientData; partial results remain valid.
type StrideResult struct {
	Strides   []Stride
	Events    Events
	Unmatched int // strides with no toe-off inside them
	Reason    error
}

// StrideEngine segments a limb landmark's x trajectory into strides.
type StrideEngine struct {
	params StrideParams
	b, a   []float64
}

// NewStrideEngine designs the low-pass filter for p.
func NewStrideEngine(p StrideParams) (*StrideEngine, error) {
	if p.NyquistFrequency <= 0 {
		return nil, fmt.Errorf("nyquist frequency must be positive, got %f", p.NyquistFrequency)
	}
	b, a, err := dsp.Butter(p.FilterOrder, p.CutoffFrequency/p.NyquistFrequency)
	if err != nil {
		return nil, fmt.Errorf("design stride filter: %w", err)
	}
	return &StrideEngine{params: p, b: b, a: a}, nil
}

// Params returns the engine's constants.
func (e *StrideEngine) Params() StrideParams { return e.params }

// Run segments x. It never panics on short, flat or missing input; those
// cases return an empty or partial result with Reason set.
func (e *StrideEngine) Run(x []float64) StrideResult {
	var res StrideResult

	filled, n, err := dsp.FillGaps(x)
	if err != nil {
		res.Reason = fmt.Errorf("%w: %v", ErrInsufficientData, err)
		return res
	}
	res.Events.Filled = n

	filtered, err := dsp.FiltFilt(e.b, e.a, filled)
	if err != nil {
		res.Reason = fmt.Errorf("%w: %v", ErrInsufficientData, err)
		return res
	}
	g := dsp.Gradient(filtered)
	res.Events.Filtered = filtered
	res.Events.Gradient = g

	peaks := dsp.FindPeaks(dsp.Abs(g), dsp.PeakOptions{
		Distance:   e.params.PeakDistance,
		Prominence: e.params.PeakProminence,
	})
	res.Events.Peaks = peaks
	if len(peaks) == 0 {
		res.Reason = fmt.Errorf("%w: no gradient peaks", ErrInsufficientData)
		return res
	}

	atPeaks := make([]float64, len(peaks))
	for i, p := range peaks {
		atPeaks[i] = g[p]
	}
	t := e.params.ThresholdFraction * dsp.Median(atPeaks)
	res.Events.Threshold = t

	seg := segment(g, t, e.params.ToeOffLookahead)
	res.Strides = seg.Strides
	res.Events.Footstrikes = seg.Events.Footstrikes
	res.Events.ToeOffs = seg.Events.ToeOffs
	res.Unmatched = seg.Unmatched
	res.Reason = seg.Reason
	return res
}

// segment classifies threshold crossings of g into events and pairs them into
// strides.
func segment(g []float64, t float64, lookahead int) StrideResult {
	var res StrideResult
	footstrikes, toeoffs := crossings(g, t, lookahead)
	if len(toeoffs) > 0 && len(footstrikes) > 0 && toeoffs[0] < footstrikes[0] {
		toeoffs = toeoffs[1:]
	}
	res.Events.Footstrikes = footstrikes
	res.Events.ToeOffs = toeoffs

	if len(footstrikes) < 2 {
		res.Reason = fmt.Errorf("%w: %d footstrikes, need at least 2", ErrInsufficientData, len(footstrikes))
		return res
	}

	res.Strides = make([]Stride, len(footstrikes)-1)
	for k := range res.Strides {
		s := Stride{
			Start:      footstrikes[k],
			End:        footstrikes[k+1],
			ToeOff:     -1,
			DutyFactor: math.NaN(),
		}
		s.Length = s.End - s.Start
		if to, ok := firstBetween(toeoffs, s.Start, s.End); ok {
			s.ToeOff = to
			s.DutyFactor = float64(to-s.Start) / float64(s.Length)
		} else {
			res.Unmatched++
		}
		res.Strides[k] = s
	}
	if len(toeoffs) == 0 {
		res.Reason = ErrNoToeOffs
	}
	return res
}

// crossings returns the falling (footstrike) and rising (toe-off) crossings
// of threshold t. A rising crossing at i is moved to i+lookahead when the
// gradient is still above t there; crossings that fail this check are
// dropped, unless none pass, in which case the raw crossings are returned.
func crossings(g []float64, t float64, lookahead int) (footstrikes, toeoffs []int) {
	var rising []int
	for i := 0; i+1 < len(g); i++ {
		switch {
		case g[i] >= t && g[i+1] < t:
			footstrikes = append(footstrikes, i)
		case g[i] < t && g[i+1] >= t:
			rising = append(rising, i)
		}
	}
	if lookahead <= 0 {
		return footstrikes, rising
	}
	for _, i := range rising {
		j := i + lookahead
		if j < len(g) && g[j] > t {
			toeoffs = append(toeoffs, j)
		}
	}
	if len(toeoffs) == 0 {
		toeoffs = rising
	}
	return footstrikes, toeoffs
}

// firstBetween returns the first sorted value strictly inside (lo, hi).
func firstBetween(sorted []int, lo, hi int) (int, bool) {
	for _, v := range sorted {
		if v >= hi {
			break
		}
		if v > lo {
			return v, true
		}
	}
	return 0, false
}

// IsInsufficient reports whether a stride result carries no strides because
// the series could not be segmented.
func (r StrideResult) IsInsufficient() bool {
	return errors.Is(r.Reason, ErrInsufficientData) && len(r.Strides) == 0
}
