// Package pose holds tracked landmark coordinates: the per-frame table produced
// by a pose-estimation export, the enumerated anatomical landmarks, and the
// binding that maps each landmark onto a tracked column prefix.
package pose

import (
	"fmt"
	"strings"
)

// Landmark identifies an anatomical point on the animal.
type Landmark int

const (
	Withers Landmark = iota + 1
	Croup
	MidBack
	Poll
	Nostril
	Elbow
	Stifle
	RightFrontHoof
	LeftFrontHoof
	RightFrontFetlock
	LeftFrontFetlock
	RightKnee
	LeftKnee
	RightHindHoof
	LeftHindHoof
	RightHindFetlock
	LeftHindFetlock
	RightHock
	LeftHock
)

var landmarkNames = map[Landmark]string{
	Withers:           "Withers",
	Croup:             "Croup",
	MidBack:           "Mid Back",
	Poll:              "Poll",
	Nostril:           "Nostril",
	Elbow:             "Elbow",
	Stifle:            "Stifle",
	RightFrontHoof:    "Right Front Hoof",
	LeftFrontHoof:     "Left Front Hoof",
	RightFrontFetlock: "Right Front Fetlock",
	LeftFrontFetlock:  "Left Front Fetlock",
	RightKnee:         "Right Knee",
	LeftKnee:          "Left Knee",
	RightHindHoof:     "Right Hind Hoof",
	LeftHindHoof:      "Left Hind Hoof",
	RightHindFetlock:  "Right Hind Fetlock",
	LeftHindFetlock:   "Left Hind Fetlock",
	RightHock:         "Right Hock",
	LeftHock:          "Left Hock",
}

// Landmarks lists every known landmark in declaration order.
func Landmarks() []Landmark {
	out := make([]Landmark, 0, len(landmarkNames))
	for l := Withers; l <= LeftHock; l++ {
		out = append(out, l)
	}
	return out
}

func (l Landmark) String() string {
	if name, ok := landmarkNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Landmark(%d)", int(l))
}

// Valid reports whether l is a known landmark.
func (l Landmark) Valid() bool {
	_, ok := landmarkNames[l]
	return ok
}

// ParseLandmark resolves a display name such as "Right Hind Hoof". Matching
// ignores case and surrounding whitespace.
func ParseLandmark(name string) (Landmark, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for l, n := range landmarkNames {
		if strings.ToLower(n) == want {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown landmark %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (l Landmark) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid landmark %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Landmark) UnmarshalText(b []byte) error {
	v, err := ParseLandmark(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
