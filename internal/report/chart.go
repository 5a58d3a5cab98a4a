package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/gait.report/internal/gait"
)

// ChartOptions controls the HTML output.
type ChartOptions struct {
	Title      string
	AssetsHost string // echarts script location; empty uses the library default
	Height     string
}

func (o ChartOptions) init(title string) opts.Initialization {
	h := o.Height
	if h == "" {
		h = "420px"
	}
	if o.Title != "" {
		title = o.Title
	}
	return opts.Initialization{PageTitle: title, Width: "100%", Height: h, AssetsHost: o.AssetsHost}
}

// missing is how echarts marks a gap in a series.
const missing = "-"

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = opts.LineData{Value: missing}
			continue
		}
		out[i] = opts.LineData{Value: v}
	}
	return out
}

func frameLabels(frames []int) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = strconv.Itoa(f)
	}
	return out
}

// ParameterChart builds a line chart of one derived column.
func ParameterChart(frames []int, col gait.Column, o ChartOptions) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(col.Name)),
		charts.WithTitleOpts(opts.Title{Title: col.Name, Subtitle: col.Unit}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: col.Unit}),
	)
	line.SetXAxis(frameLabels(frames)).
		AddSeries(col.Name, lineData(col.Values),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	return line
}

// StrideChart builds the gradient chart with the threshold and the detected
// events drawn as scatter series.
func StrideChart(res *gait.StrideResult, firstFrame int, o ChartOptions) *charts.Line {
	g := res.Events.Gradient
	frames := make([]int, len(g))
	for i := range frames {
		frames[i] = firstFrame + i
	}
	threshold := make([]float64, len(g))
	for i := range threshold {
		threshold[i] = res.Events.Threshold
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("Stride detection")),
		charts.WithTitleOpts(opts.Title{
			Title:    "Stride detection",
			Subtitle: fmt.Sprintf("%d strides, threshold %.3g", len(res.Strides), res.Events.Threshold),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
	)
	line.SetXAxis(frameLabels(frames)).
		AddSeries("gradient", lineData(g),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
		AddSeries("threshold", lineData(threshold),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))

	for _, ev := range []struct {
		name string
		rows []int
	}{
		{"peaks", res.Events.Peaks},
		{"footstrikes", res.Events.Footstrikes},
		{"toe-offs", res.Events.ToeOffs},
	} {
		sc := charts.NewScatter()
		sc.SetXAxis(frameLabels(frames))
		sc.AddSeries(ev.name, markerData(g, ev.rows))
		line.Overlap(sc)
	}
	return line
}

// markerData places a point at each row and a gap everywhere else, so the
// scatter shares the line's category axis.
func markerData(g []float64, rows []int) []opts.ScatterData {
	out := make([]opts.ScatterData, len(g))
	for i := range out {
		out[i] = opts.ScatterData{Value: missing}
	}
	for _, r := range rows {
		if r >= 0 && r < len(g) {
			out[r] = opts.ScatterData{Value: g[r], SymbolSize: 8}
		}
	}
	return out
}

// RenderCharts writes an HTML page with one chart per derived column,
// preceded by the stride chart when res carries diagnostics.
func RenderCharts(w io.Writer, t *gait.DerivedTable, res *gait.StrideResult, o ChartOptions) error {
	page := components.NewPage()
	if o.Title != "" {
		page.PageTitle = o.Title
	}
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	if res != nil && len(res.Events.Gradient) > 0 {
		first := 0
		if len(t.Frames) > 0 {
			first = t.Frames[0]
		}
		page.AddCharts(StrideChart(res, first, o))
	}
	for _, c := range t.Columns {
		page.AddCharts(ParameterChart(t.Frames, c, o))
	}
	return page.Render(w)
}
