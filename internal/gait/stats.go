package gait

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistic is a column-wise summary. The declaration order is the order
// summary rows are emitted in.
type Statistic int

const (
	Minimum Statistic = iota
	Maximum
	Mean
	StandardDeviation
)

// AllStatistics lists every statistic in output order.
var AllStatistics = []Statistic{Minimum, Maximum, Mean, StandardDeviation}

var statisticNames = [...]string{"Minimum", "Maximum", "Mean", "Standard Deviation"}

var statisticAliases = map[string]Statistic{
	"min":                Minimum,
	"minimum":            Minimum,
	"max":                Maximum,
	"maximum":            Maximum,
	"mean":               Mean,
	"avg":                Mean,
	"std":                StandardDeviation,
	"sd":                 StandardDeviation,
	"stddev":             StandardDeviation,
	"standard deviation": StandardDeviation,
}

func (s Statistic) String() string {
	if s >= 0 && int(s) < len(statisticNames) {
		return statisticNames[s]
	}
	return fmt.Sprintf("Statistic(%d)", int(s))
}

// ParseStatistic accepts a display name or a short alias such as "std".
func ParseStatistic(name string) (Statistic, error) {
	if s, ok := statisticAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatistic, name)
}

// ParseStatistics parses a list of names; an empty list yields nil.
func ParseStatistics(names []string) ([]Statistic, error) {
	var out []Statistic
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		s, err := ParseStatistic(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SummaryRow is one statistic evaluated over every column.
type SummaryRow struct {
	Statistic Statistic
	Values    []float64 // one per column, in column order
}

// Summarize computes the requested statistics over each column, ignoring NaN
// samples. Rows are returned in the fixed Minimum, Maximum, Mean, Standard
// Deviation order whatever order they were requested in; duplicates are
// ignored. Standard deviation is the sample (n-1) estimate, so a column with
// fewer than two values reports NaN.
func Summarize(columns [][]float64, want []Statistic) []SummaryRow {
	requested := make(map[Statistic]bool, len(want))
	for _, s := range want {
		requested[s] = true
	}

	var rows []SummaryRow
	for _, s := range AllStatistics {
		if !requested[s] {
			continue
		}
		row := SummaryRow{Statistic: s, Values: make([]float64, len(columns))}
		for i, col := range columns {
			row.Values[i] = summarize(s, dropNaN(col))
		}
		rows = append(rows, row)
	}
	return rows
}

func summarize(s Statistic, vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	switch s {
	case Minimum:
		return floats.Min(vals)
	case Maximum:
		return floats.Max(vals)
	case Mean:
		return stat.Mean(vals, nil)
	case StandardDeviation:
		if len(vals) < 2 {
			return math.NaN()
		}
		return stat.StdDev(vals, nil)
	}
	return math.NaN()
}

func dropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
