package gait

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Series is a float column that encodes NaN and infinities as JSON null and
// decodes null back to NaN.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.WriteString("null")
			continue
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Series, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	*s = out
	return nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (s Statistic) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Statistic) UnmarshalText(b []byte) error {
	v, err := ParseStatistic(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type columnJSON struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Values Series `json:"values"`
}

func (c Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(columnJSON{Name: c.Name, Unit: c.Unit, Values: Series(c.Values)})
}

func (c *Column) UnmarshalJSON(b []byte) error {
	var v columnJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Column{Name: v.Name, Unit: v.Unit, Values: []float64(v.Values)}
	return nil
}

type summaryRowJSON struct {
	Statistic Statistic `json:"statistic"`
	Values    Series    `json:"values"`
}

func (r SummaryRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryRowJSON{Statistic: r.Statistic, Values: Series(r.Values)})
}

func (r *SummaryRow) UnmarshalJSON(b []byte) error {
	var v summaryRowJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = SummaryRow{Statistic: v.Statistic, Values: []float64(v.Values)}
	return nil
}

// strideJSON omits toe_off and duty_factor for strides without a toe-off.
type strideJSON struct {
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Length     int      `json:"length"`
	ToeOff     *int     `json:"toe_off"`
	DutyFactor *float64 `json:"duty_factor"`
}

func (s Stride) MarshalJSON() ([]byte, error) {
	v := strideJSON{Start: s.Start, End: s.End, Length: s.Length, DutyFactor: nullable(s.DutyFactor)}
	if s.ToeOff >= 0 {
		to := s.ToeOff
		v.ToeOff = &to
	}
	return json.Marshal(v)
}

func (s *Stride) UnmarshalJSON(b []byte) error {
	var v strideJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Stride{Start: v.Start, End: v.End, Length: v.Length, ToeOff: -1, DutyFactor: math.NaN()}
	if v.ToeOff != nil {
		s.ToeOff = *v.ToeOff
	}
	if v.DutyFactor != nil {
		s.DutyFactor = *v.DutyFactor
	}
	return nil
}

// derivedTableJSON is the wire shape of a DerivedTable.
type derivedTableJSON struct {
	Frames  []int        `json:"frames"`
	Columns []Column     `json:"columns"`
	Summary []SummaryRow `json:"summary,omitempty"`
}

func (t DerivedTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(derivedTableJSON(t))
}

func (t *DerivedTable) UnmarshalJSON(b []byte) error {
	var v derivedTableJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = DerivedTable(v)
	return nil
}
