package pose

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	bodypartsRow = "bodyparts"
	coordsRow    = "coords"
)

// ReadCSV loads a coordinate table from either a DeepLabCut export (a scorer
// row followed by "bodyparts" and "coords" label rows) or an already
// normalised CSV whose header is "frame,<prefix>_x,<prefix>_y,...".
//
// For DeepLabCut files the two label rows are merged into "<bodypart>_<coord>"
// column names and the label rows are dropped. The first column is the frame
// index in both layouts. Cells that do not parse as numbers become NaN.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	names, dataStart, err := headerNames(records)
	if err != nil {
		return nil, err
	}

	rows := records[dataStart:]
	frames := make([]int, 0, len(rows))
	values := make([][]float64, len(names))
	for i := range values {
		values[i] = make([]float64, 0, len(rows))
	}
	for n, rec := range rows {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) != len(names)+1 {
			return nil, fmt.Errorf("%w: row %d has %d fields, want %d", ErrMalformedInput, dataStart+n+1, len(rec), len(names)+1)
		}
		frame, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: frame index %q", ErrMalformedInput, dataStart+n+1, rec[0])
		}
		frames = append(frames, frame)
		for i := range names {
			values[i] = append(values[i], parseCell(rec[i+1]))
		}
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Values: values[i]}
	}
	return NewTable(frames, cols)
}

// headerNames returns the merged column names (excluding the index column)
// and the index of the first data row.
func headerNames(records [][]string) ([]string, int, error) {
	bp, co := -1, -1
	for i := 0; i < len(records) && i < 4; i++ {
		switch strings.ToLower(strings.TrimSpace(first(records[i]))) {
		case bodypartsRow:
			bp = i
		case coordsRow:
			co = i
		}
	}

	if bp < 0 && co < 0 {
		header := records[0]
		if len(header) < 2 {
			return nil, 0, fmt.Errorf("%w: header has no coordinate columns", ErrMalformedInput)
		}
		return trimAll(header[1:]), 1, nil
	}
	if bp < 0 || co < 0 || co <= bp {
		return nil, 0, fmt.Errorf("%w: expected %q row followed by %q row", ErrMalformedInput, bodypartsRow, coordsRow)
	}

	parts, coords := records[bp], records[co]
	if len(parts) != len(coords) {
		return nil, 0, fmt.Errorf("%w: label rows differ in length (%d vs %d)", ErrMalformedInput, len(parts), len(coords))
	}
	names := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		names = append(names, strings.TrimSpace(parts[i])+"_"+strings.TrimSpace(coords[i]))
	}
	return names, co + 1, nil
}

func parseCell(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func first(rec []string) string {
	if len(rec) == 0 {
		return ""
	}
	return rec[0]
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
