package gait

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/pose"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.NoError(t, c.Validate())

	assert.Equal(t, []string{
		"Right Cannon", "Left Cannon", "Head Length", "Neck Length",
		"Fore Limb Length", "Hind Limb Length", "Fore Leg Length", "Hind Leg Length",
		"Fore Fetlock Angle", "Hind Fetlock Angle", "Back Angle",
		"Fore Limb Angle", "Hind Limb Angle",
		"Speed", "Stride Length", "Duty Factor",
	}, c.Names())

	for _, e := range c.Entries() {
		assert.Len(t, e.Landmarks, e.Kind.Arity(), e.Name)
	}
}

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()

	e, err := c.Lookup("  back angle ")
	require.NoError(t, err)
	assert.Equal(t, "Back Angle", e.Name)
	assert.Equal(t, KindAngle, e.Kind)
	assert.Equal(t, []pose.Landmark{pose.MidBack, pose.Croup, pose.Withers}, e.Landmarks)

	e, err = c.Lookup("Hind Limb Angle")
	require.NoError(t, err)
	assert.Equal(t, KindVerticalAngle, e.Kind)
	assert.Equal(t, pose.Croup, e.Landmarks[0], "vertex first")

	_, err = c.Lookup("Tail Swish")
	assert.True(t, errors.Is(err, ErrUnknownParameter))
}

func TestNewCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr string
	}{
		{
			name:    "angle with two landmarks",
			entries: []Entry{{"Bad", KindAngle, []pose.Landmark{pose.Withers, pose.Croup}}},
			wantErr: "takes 3 landmarks",
		},
		{
			name:    "unknown kind",
			entries: []Entry{{"Bad", Kind(99), []pose.Landmark{pose.Withers}}},
			wantErr: "unknown kind",
		},
		{
			name:    "invalid landmark",
			entries: []Entry{{"Bad", KindSpeed, []pose.Landmark{pose.Landmark(0)}}},
			wantErr: "invalid landmark",
		},
		{
			name: "duplicate name",
			entries: []Entry{
				{"Speed", KindSpeed, []pose.Landmark{pose.Withers}},
				{"speed", KindSpeed, []pose.Landmark{pose.Croup}},
			},
			wantErr: "duplicate",
		},
		{
			name:    "empty name",
			entries: []Entry{{" ", KindSpeed, []pose.Landmark{pose.Withers}}},
			wantErr: "empty name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.entries)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "angle from vertical", KindVerticalAngle.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.True(t, KindDutyFactor.Stride())
	assert.False(t, KindSpeed.Stride())
	assert.Equal(t, "deg", KindVerticalAngle.Unit())
	assert.Equal(t, "px/frame", KindSpeed.Unit())
}
