package gait

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/gait.report/internal/pose"
)

// Kind selects the operation a catalog entry performs.
type Kind int

const (
	KindDistance Kind = iota + 1
	KindAngle
	// KindVerticalAngle measures the angle between a limb and the image
	// vertical through its proximal landmark.
	KindVerticalAngle
	KindSpeed
	KindStrideLength
	KindDutyFactor
)

var kindNames = map[Kind]string{
	KindDistance:      "distance",
	KindAngle:         "angle",
	KindVerticalAngle: "angle from vertical",
	KindSpeed:         "speed",
	KindStrideLength:  "stride length",
	KindDutyFactor:    "duty factor",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Arity is the number of landmarks an entry of this kind takes.
func (k Kind) Arity() int {
	switch k {
	case KindDistance, KindVerticalAngle:
		return 2
	case KindAngle:
		return 3
	case KindSpeed, KindStrideLength, KindDutyFactor:
		return 1
	}
	return 0
}

// Stride reports whether the kind is produced by the stride engine.
func (k Kind) Stride() bool { return k == KindStrideLength || k == KindDutyFactor }

// Unit is the unit of the values the kind produces.
func (k Kind) Unit() string {
	switch k {
	case KindDistance:
		return "px"
	case KindAngle, KindVerticalAngle:
		return "deg"
	case KindSpeed:
		return "px/frame"
	case KindStrideLength:
		return "frames"
	case KindDutyFactor:
		return "ratio"
	}
	return ""
}

// Entry is one derived parameter. For angle kinds the first landmark is the
// vertex.
type Entry struct {
	Name      string
	Kind      Kind
	Landmarks []pose.Landmark
}

// Catalog is an ordered, validated set of entries keyed by name.
type Catalog struct {
	entries []Entry
	byName  map[string]int
}

// NewCatalog validates entries and builds a catalog. Names are matched
// case-insensitively and must be unique.
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	copy(c.entries, entries)
	for i, e := range c.entries {
		key := catalogKey(e.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate entry %q", e.Name)
		}
		c.byName[key] = i
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var defaultEntries = []Entry{
	{"Right Cannon", KindDistance, []pose.Landmark{pose.RightHock, pose.RightHindFetlock}},
	{"Left Cannon", KindDistance, []pose.Landmark{pose.LeftHock, pose.LeftHindFetlock}},
	{"Head Length", KindDistance, []pose.Landmark{pose.Poll, pose.Nostril}},
	{"Neck Length", KindDistance, []pose.Landmark{pose.Poll, pose.Withers}},
	{"Fore Limb Length", KindDistance, []pose.Landmark{pose.Withers, pose.RightFrontHoof}},
	{"Hind Limb Length", KindDistance, []pose.Landmark{pose.Croup, pose.RightHindHoof}},
	{"Fore Leg Length", KindDistance, []pose.Landmark{pose.Elbow, pose.RightFrontFetlock}},
	{"Hind Leg Length", KindDistance, []pose.Landmark{pose.Stifle, pose.RightHindFetlock}},
	{"Fore Fetlock Angle", KindAngle, []pose.Landmark{pose.RightFrontFetlock, pose.RightFrontHoof, pose.RightKnee}},
	{"Hind Fetlock Angle", KindAngle, []pose.Landmark{pose.RightHindFetlock, pose.RightHindHoof, pose.RightHock}},
	{"Back Angle", KindAngle, []pose.Landmark{pose.MidBack, pose.Croup, pose.Withers}},
	{"Fore Limb Angle", KindVerticalAngle, []pose.Landmark{pose.Withers, pose.RightFrontHoof}},
	{"Hind Limb Angle", KindVerticalAngle, []pose.Landmark{pose.Croup, pose.RightHindHoof}},
	{"Speed", KindSpeed, []pose.Landmark{pose.Withers}},
	{"Stride Length", KindStrideLength, []pose.Landmark{pose.RightHock}},
	{"Duty Factor", KindDutyFactor, []pose.Landmark{pose.RightHock}},
}

// DefaultCatalog returns the built-in parameter catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultEntries)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks every entry's landmark count against its kind.
func (c *Catalog) Validate() error {
	var errs []error
	for _, e := range c.entries {
		if strings.TrimSpace(e.Name) == "" {
			errs = append(errs, errors.New("catalog: entry with empty name"))
			continue
		}
		want := e.Kind.Arity()
		if want == 0 {
			errs = append(errs, fmt.Errorf("catalog: %q has unknown kind %d", e.Name, int(e.Kind)))
			continue
		}
		if len(e.Landmarks) != want {
			errs = append(errs, fmt.Errorf("catalog: %q (%s) takes %d landmarks, has %d", e.Name, e.Kind, want, len(e.Landmarks)))
		}
		for _, l := range e.Landmarks {
			if !l.Valid() {
				errs = append(errs, fmt.Errorf("catalog: %q references invalid landmark %d", e.Name, int(l)))
			}
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the entry for name.
func (c *Catalog) Lookup(name string) (Entry, error) {
	i, ok := c.byName[catalogKey(name)]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return c.entries[i], nil
}

// Names returns the entry names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}

// Entries returns a copy of the catalog entries.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func catalogKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
