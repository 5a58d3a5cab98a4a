// Package report renders calculation results for people: PNG figures with
// gonum/plot and interactive HTML charts with go-echarts.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
)

// Figure size shared by every PNG.
const (
	FigureWidth  = 14 * vg.Inch
	FigureHeight = 6 * vg.Inch
)

var (
	gradientColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	peakColor       = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	thresholdColor  = color.RGBA{R: 127, G: 127, B: 127, A: 255}
	footstrikeColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	toeOffColor     = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// StridePlot draws the stride engine's diagnostics: the gradient of the
// filtered trajectory, its detected peaks, the threshold and the footstrike
// and toe-off events. x values are row indices offset by firstFrame.
func StridePlot(res *gait.StrideResult, firstFrame int, title string) (*plot.Plot, error) {
	if res == nil || len(res.Events.Gradient) == 0 {
		return nil, fmt.Errorf("no stride diagnostics to plot")
	}
	ev := res.Events
	g := ev.Gradient
	off := float64(firstFrame)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Gradient (px/frame)"

	pts := make(plotter.XYs, len(g))
	for i, v := range g {
		pts[i] = plotter.XY{X: off + float64(i), Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = gradientColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("gradient", line)

	thr := plotter.NewFunction(func(float64) float64 { return ev.Threshold })
	thr.Color = thresholdColor
	thr.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(thr)
	p.Legend.Add(fmt.Sprintf("threshold %.3g", ev.Threshold), thr)

	markers := []struct {
		label string
		rows  []int
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"peaks", ev.Peaks, peakColor, draw.CircleGlyph{}},
		{"footstrikes", ev.Footstrikes, footstrikeColor, draw.TriangleGlyph{}},
		{"toe-offs", ev.ToeOffs, toeOffColor, draw.BoxGlyph{}},
	}
	for _, m := range markers {
		if len(m.rows) == 0 {
			continue
		}
		xy := make(plotter.XYs, 0, len(m.rows))
		for _, r := range m.rows {
			if r >= 0 && r < len(g) {
				xy = append(xy, plotter.XY{X: off + float64(r), Y: g[r]})
			}
		}
		s, err := plotter.NewScatter(xy)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = m.color
		s.GlyphStyle.Shape = m.shape
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(m.label, s)
	}

	p.X.Min = off
	p.X.Max = off + float64(len(g)-1)
	placeLegend(p)
	return p, nil
}

// ParameterPlot draws one derived column against frame number. Missing
// values break the line rather than being interpolated.
func ParameterPlot(frames []int, col gait.Column) (*plot.Plot, error) {
	if len(frames) != len(col.Values) {
		return nil, fmt.Errorf("%s: %d values for %d frames", col.Name, len(col.Values), len(frames))
	}
	p := plot.New()
	p.Title.Text = col.Name
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = fmt.Sprintf("%s (%s)", col.Name, col.Unit)

	segs := segments(frames, col.Values)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%s: no finite values to plot", col.Name)
	}
	for i, seg := range segs {
		var th plot.Thumbnailer
		if len(seg) == 1 {
			s, err := plotter.NewScatter(seg)
			if err != nil {
				return nil, err
			}
			s.GlyphStyle.Color = gradientColor
			s.GlyphStyle.Radius = vg.Points(2)
			p.Add(s)
			th = s
		} else {
			l, err := plotter.NewLine(seg)
			if err != nil {
				return nil, err
			}
			l.Color = gradientColor
			l.Width = vg.Points(1)
			p.Add(l)
			th = l
		}
		if i == 0 {
			p.Legend.Add(col.Name, th)
		}
	}
	placeLegend(p)
	return p, nil
}

// segments splits (frames, values) into runs of finite values.
func segments(frames []int, values []float64) []plotter.XYs {
	var (
		out []plotter.XYs
		cur plotter.XYs
	)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(frames[i]), Y: v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func placeLegend(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

// WritePNG encodes p as a PNG of the standard figure size.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(FigureWidth, FigureHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Plotter writes figures for one input under Dir.
type Plotter struct {
	FS  fsutil.FileSystem
	Dir string
}

// NewPlotter returns a Plotter rooted at dir. A nil fs uses the real
// filesystem.
func NewPlotter(fs fsutil.FileSystem, dir string) *Plotter {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Plotter{FS: fs, Dir: dir}
}

// Strides saves <base>_strides.png and returns its path.
func (pl *Plotter) Strides(base string, res *gait.StrideResult, firstFrame int) (string, error) {
	p, err := StridePlot(res, firstFrame, base+" stride detection")
	if err != nil {
		return "", err
	}
	return pl.save(filepath.Join(pl.Dir, base+"_strides.png"), p)
}

// Parameters saves one <base>_<parameter>.png per column with at least one
// finite value and returns the paths written.
func (pl *Plotter) Parameters(base string, t *gait.DerivedTable) ([]string, error) {
	var paths []string
	for _, c := range t.Columns {
		if len(segments(t.Frames, c.Values)) == 0 {
			continue
		}
		p, err := ParameterPlot(t.Frames, c)
		if err != nil {
			return paths, err
		}
		path, err := pl.save(filepath.Join(pl.Dir, base+"_"+Slug(c.Name)+".png"), p)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (pl *Plotter) save(path string, p *plot.Plot) (string, error) {
	if err := pl.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := pl.FS.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePNG(f, p); err != nil {
		f.Close()
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, f.Close()
}

// Slug turns a parameter name into a file name fragment: "Back Angle"
// becomes "back_angle".
func Slug(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
