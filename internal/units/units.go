// Package units converts derived gait values from image units (pixels,
// frames) into physical units. The computation core never calls it; the
// exporters do when the caller supplies a frame rate or a pixel scale.
package units

import (
	"fmt"
	"strings"
)

// Speed unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// Image unit labels produced by the gait catalog.
const (
	Pixels         = "px"
	Degrees        = "deg"
	PixelsPerFrame = "px/frame"
	Frames         = "frames"
	Ratio          = "ratio"
)

// ValidUnits contains all valid speed unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid speed units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed from meters per second to the target units
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.23694
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// Scale describes the recording. FPS converts frames to seconds and
// PixelsPerMetre converts pixels to metres; zero leaves that dimension in
// image units. SpeedUnits applies once speeds are in metres per second.
type Scale struct {
	FPS            float64
	PixelsPerMetre float64
	SpeedUnits     string
}

// Validate rejects negative factors and unknown speed units.
func (s Scale) Validate() error {
	if s.FPS < 0 {
		return fmt.Errorf("fps must be non-negative, got %f", s.FPS)
	}
	if s.PixelsPerMetre < 0 {
		return fmt.Errorf("pixels per metre must be non-negative, got %f", s.PixelsPerMetre)
	}
	if s.SpeedUnits != "" && !IsValid(s.SpeedUnits) {
		return fmt.Errorf("invalid speed units %q, want one of %s", s.SpeedUnits, GetValidUnitsString())
	}
	return nil
}

// IsIdentity reports whether the scale leaves every value unchanged.
func (s Scale) IsIdentity() bool { return s.FPS == 0 && s.PixelsPerMetre == 0 }

// Convert returns a function mapping values in unit to the scaled unit, and
// the name of that unit. Units the scale does not touch map to themselves.
func (s Scale) Convert(unit string) (func(float64) float64, string) {
	identity := func(v float64) float64 { return v }
	switch unit {
	case Pixels:
		if s.PixelsPerMetre > 0 {
			return func(v float64) float64 { return v / s.PixelsPerMetre }, "m"
		}
	case Frames:
		if s.FPS > 0 {
			return func(v float64) float64 { return v / s.FPS }, "s"
		}
	case PixelsPerFrame:
		switch {
		case s.FPS > 0 && s.PixelsPerMetre > 0:
			target := s.SpeedUnits
			if target == "" {
				target = MPS
			}
			return func(v float64) float64 {
				return ConvertSpeed(v*s.FPS/s.PixelsPerMetre, target)
			}, target
		case s.FPS > 0:
			return func(v float64) float64 { return v * s.FPS }, "px/s"
		}
	}
	return identity, unit
}

// Apply converts values in place and returns the new unit name.
func (s Scale) Apply(values []float64, unit string) string {
	f, out := s.Convert(unit)
	if out == unit {
		return unit
	}
	for i, v := range values {
		values[i] = f(v)
	}
	return out
}
