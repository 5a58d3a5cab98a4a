// Package export writes calculation results as CSV: the derived parameter
// table (with its summary block), the stride records and the masked
// coordinate table.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/pose"
	"github.com/banshee-data/gait.report/internal/units"
)

// FrameHeader labels the first column of every table written here.
const FrameHeader = "frame"

// FormatValue renders a cell. NaN becomes an empty cell so the file reads
// back as missing.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteDerived writes t to w. Summary rows come first, labelled with the
// statistic name in the frame column, followed by one row per frame. Column
// headers are "<name> (<unit>)" after scale has been applied.
func WriteDerived(w io.Writer, t *gait.DerivedTable, scale units.Scale) error {
	cw := csv.NewWriter(w)

	cols := ScaleColumns(t.Columns, scale)
	header := []string{FrameHeader}
	factors := make([]func(float64) float64, len(cols))
	for i, c := range cols {
		header = append(header, fmt.Sprintf("%s (%s)", c.Name, c.Unit))
		factors[i], _ = scale.Convert(t.Columns[i].Unit)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range t.Summary {
		row := []string{s.Statistic.String()}
		for i, v := range s.Values {
			row = append(row, FormatValue(factors[i](v)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	for r, f := range t.Frames {
		row := []string{strconv.Itoa(f)}
		for _, c := range cols {
			row = append(row, FormatValue(c.Values[r]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ScaleColumns returns converted copies of cols. The inputs are not modified.
func ScaleColumns(cols []gait.Column, scale units.Scale) []gait.Column {
	out := make([]gait.Column, len(cols))
	for i, c := range cols {
		v := append([]float64(nil), c.Values...)
		out[i] = gait.Column{Name: c.Name, Unit: scale.Apply(v, c.Unit), Values: v}
	}
	return out
}

// WriteStrides writes one row per stride. Frames are as stored on the
// stride; a stride without a toe-off leaves toe_off and duty_factor empty.
func WriteStrides(w io.Writer, strides []gait.Stride, scale units.Scale) error {
	cw := csv.NewWriter(w)
	toLength, lengthUnit := scale.Convert(units.Frames)
	header := []string{"stride", "start_frame", "end_frame", "toe_off_frame",
		"length_" + lengthUnit, "duty_factor"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, s := range strides {
		toeOff := ""
		if s.ToeOff >= 0 {
			toeOff = strconv.Itoa(s.ToeOff)
		}
		row := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(s.Start),
			strconv.Itoa(s.End),
			toeOff,
			FormatValue(toLength(float64(s.Length))),
			FormatValue(s.DutyFactor),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCoordinates writes the table in the normalised layout pose.ReadCSV
// accepts: "frame,<prefix>_x,<prefix>_y[,<prefix>_likelihood],...".
func WriteCoordinates(w io.Writer, t *pose.Table) error {
	cw := csv.NewWriter(w)
	cols := t.Columns()
	header := make([]string, 0, len(cols)+1)
	header = append(header, FrameHeader)
	for _, c := range cols {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for r, f := range t.Frames() {
		row := make([]string, 0, len(cols)+1)
		row = append(row, strconv.Itoa(f))
		for _, c := range cols {
			row = append(row, FormatValue(c.Values[r]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Writer places export files for one input under Dir on a FileSystem.
type Writer struct {
	FS    fsutil.FileSystem
	Dir   string
	Scale units.Scale
}

// NewWriter returns a Writer rooted at dir. A nil fs uses the real
// filesystem.
func NewWriter(fs fsutil.FileSystem, dir string, scale units.Scale) *Writer {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Writer{FS: fs, Dir: dir, Scale: scale}
}

// Path returns the output path for base with suffix, e.g. "run_gait.csv".
func (w *Writer) Path(base, suffix string) string {
	return filepath.Join(w.Dir, base+suffix)
}

// Derived writes <base>_gait.csv and returns its path.
func (w *Writer) Derived(base string, t *gait.DerivedTable) (string, error) {
	return w.create(w.Path(base, "_gait.csv"), func(out io.Writer) error {
		return WriteDerived(out, t, w.Scale)
	})
}

// Strides writes <base>_strides.csv and returns its path.
func (w *Writer) Strides(base string, strides []gait.Stride) (string, error) {
	return w.create(w.Path(base, "_strides.csv"), func(out io.Writer) error {
		return WriteStrides(out, strides, w.Scale)
	})
}

// Coordinates writes <base>_filtered.csv and returns its path.
func (w *Writer) Coordinates(base string, t *pose.Table) (string, error) {
	return w.create(w.Path(base, "_filtered.csv"), func(out io.Writer) error {
		return WriteCoordinates(out, t)
	})
}

func (w *Writer) create(path string, write func(io.Writer) error) (string, error) {
	if err := w.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	f, err := w.FS.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
