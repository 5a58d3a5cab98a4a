package gait

import (
	"errors"
	"fmt"

	"github.com/banshee-data/gait.report/internal/pose"
)

var (
	// ErrBinding reports a parameter whose landmark is not bound to a table
	// column. It is recovered per parameter.
	ErrBinding = errors.New("landmark not bound")

	// ErrInsufficientData reports a stride series too short or too flat to
	// produce strides. It is informational.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoToeOffs reports strides whose duty factor is undefined because no
	// toe-off event was found anywhere in the series.
	ErrNoToeOffs = fmt.Errorf("%w: no toe-off events detected", ErrInsufficientData)

	// ErrUnknownParameter and ErrUnknownStatistic are request errors detected
	// before any computation starts.
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrUnknownStatistic = errors.New("unknown statistic")
)

// BindingError names the parameter and landmark that could not be resolved.
type BindingError struct {
	Parameter string
	Landmark  pose.Landmark
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Parameter, ErrBinding, e.Landmark)
}

func (e *BindingError) Unwrap() error { return ErrBinding }

// DegeneracyNote counts rows of a parameter column that came out NaN.
// Degenerate rows had valid inputs but a zero-length vector (or coincident
// points for a distance); Missing rows had a NaN input coordinate.
type DegeneracyNote struct {
	Parameter  string `json:"parameter"`
	Degenerate int    `json:"degenerate"`
	Missing    int    `json:"missing"`
}

// Empty reports whether the note carries no counts.
func (n DegeneracyNote) Empty() bool { return n.Degenerate == 0 && n.Missing == 0 }

func (n DegeneracyNote) String() string {
	return fmt.Sprintf("%s: %d degenerate rows, %d rows with missing input", n.Parameter, n.Degenerate, n.Missing)
}
