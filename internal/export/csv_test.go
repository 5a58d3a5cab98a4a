package export

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/pose"
	"github.com/banshee-data/gait.report/internal/units"
)

func derivedFixture() *gait.DerivedTable {
	nan := math.NaN()
	return &gait.DerivedTable{
		Frames: []int{10, 11, 12},
		Columns: []gait.Column{
			{Name: "Head Length", Unit: units.Pixels, Values: []float64{5, nan, 7}},
			{Name: "Stride Length", Unit: units.Frames, Values: []float64{60, nan, nan}},
		},
		Summary: []gait.SummaryRow{
			{Statistic: gait.Minimum, Values: []float64{5, 60}},
			{Statistic: gait.StandardDeviation, Values: []float64{math.Sqrt2, nan}},
		},
	}
}

func readAll(t *testing.T, data []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteDerived(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDerived(&buf, derivedFixture(), units.Scale{}))

	want := [][]string{
		{"frame", "Head Length (px)", "Stride Length (frames)"},
		{"Minimum", "5", "60"},
		{"Standard Deviation", "1.4142135623730951", ""},
		{"10", "5", "60"},
		{"11", "", ""},
		{"12", "7", ""},
	}
	if diff := cmp.Diff(want, readAll(t, buf.Bytes())); diff != "" {
		t.Errorf("derived CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDerived_NoSummary(t *testing.T) {
	tbl := derivedFixture()
	tbl.Summary = nil
	var buf bytes.Buffer
	require.NoError(t, WriteDerived(&buf, tbl, units.Scale{}))

	records := readAll(t, buf.Bytes())
	require.Len(t, records, 4)
	assert.Equal(t, "10", records[1][0])
}

func TestWriteDerived_Scaled(t *testing.T) {
	tbl := derivedFixture()
	var buf bytes.Buffer
	require.NoError(t, WriteDerived(&buf, tbl, units.Scale{FPS: 60, PixelsPerMetre: 10}))

	records := readAll(t, buf.Bytes())
	assert.Equal(t, []string{"frame", "Head Length (m)", "Stride Length (s)"}, records[0])
	assert.Equal(t, []string{"Minimum", "0.5", "1"}, records[1])
	assert.Equal(t, []string{"10", "0.5", "1"}, records[3])

	// The table itself is left in image units.
	assert.Equal(t, 5.0, tbl.Columns[0].Values[0])
	assert.Equal(t, units.Pixels, tbl.Columns[0].Unit)
}

func TestWriteStrides(t *testing.T) {
	strides := []gait.Stride{
		{Start: 100, End: 160, Length: 60, ToeOff: 136, DutyFactor: 0.6},
		{Start: 160, End: 220, Length: 60, ToeOff: -1, DutyFactor: math.NaN()},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStrides(&buf, strides, units.Scale{}))
	want := [][]string{
		{"stride", "start_frame", "end_frame", "toe_off_frame", "length_frames", "duty_factor"},
		{"1", "100", "160", "136", "60", "0.6"},
		{"2", "160", "220", "", "60", ""},
	}
	if diff := cmp.Diff(want, readAll(t, buf.Bytes())); diff != "" {
		t.Errorf("strides CSV mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	require.NoError(t, WriteStrides(&buf, strides, units.Scale{FPS: 30}))
	records := readAll(t, buf.Bytes())
	assert.Equal(t, "length_s", records[0][4])
	assert.Equal(t, "2", records[1][4])
}

func TestWriteCoordinates_RoundTrip(t *testing.T) {
	nan := math.NaN()
	tbl, err := pose.NewTable([]int{0, 1, 2}, []pose.Column{
		{Name: "withers_x", Values: []float64{1, 2, 3}},
		{Name: "withers_y", Values: []float64{4, nan, 6}},
		{Name: "withers_likelihood", Values: []float64{0.9, 0.1, 0.95}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCoordinates(&buf, tbl))
	assert.True(t, strings.HasPrefix(buf.String(), "frame,withers_x,withers_y,withers_likelihood\n"))

	back, err := pose.ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Frames(), back.Frames())
	tr, ok := back.Track("withers")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, tr.X)
	assert.True(t, math.IsNaN(tr.Y[1]))
	assert.Equal(t, 0.95, tr.Likelihood[2])
}

func TestWriter_Files(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	w := NewWriter(mem, "out", units.Scale{})

	p1, err := w.Derived("trot", derivedFixture())
	require.NoError(t, err)
	p2, err := w.Strides("trot", []gait.Stride{{Start: 0, End: 10, Length: 10, ToeOff: 6, DutyFactor: 0.6}})
	require.NoError(t, err)

	assert.Equal(t, []string{p1, p2}, mem.Files("out"))
	assert.True(t, mem.Exists("out"))

	data, err := mem.ReadFile(p2)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1,0,10,6,10,0.6")
}

func TestNewWriter_DefaultsToOS(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(nil, dir, units.Scale{})
	tbl, err := pose.NewTable([]int{1}, []pose.Column{
		{Name: "poll_x", Values: []float64{1}},
		{Name: "poll_y", Values: []float64{2}},
	})
	require.NoError(t, err)

	path, err := w.Coordinates("walk", tbl)
	require.NoError(t, err)
	assert.True(t, fsutil.OSFileSystem{}.Exists(path))
}
