package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/export"
	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/pose"
	"github.com/banshee-data/gait.report/internal/report"
	"github.com/banshee-data/gait.report/internal/security"
	"github.com/banshee-data/gait.report/internal/timeutil"
	"github.com/banshee-data/gait.report/internal/units"
)

// analyzer runs the pipeline over input files. Each file is independent;
// Run processes them concurrently.
type analyzer struct {
	fs       fsutil.FileSystem
	clock    timeutil.Clock
	store    *db.DB
	opts     gait.Options
	req      gait.Request
	bindings []byte
	outDir   string
	scale    units.Scale
	plots    bool
	html     bool
	filtered bool
}

// fileResult is what one input produced.
type fileResult struct {
	Input  string
	Result *gait.Result
	RunID  string
	Files  []string
	Err    error
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func handleAnalyze(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	input := fs.String("input", "", "Comma-separated coordinate CSV files (required)")
	bindingsPath := fs.String("bindings", "", "JSON file mapping landmark names to column prefixes (required)")
	params := fs.String("params", "", "Comma-separated parameters to compute (default: whole catalog)")
	stats := fs.String("stats", "", "Comma-separated statistics: min,max,mean,std")
	configPath := fs.String("config", "", "Tuning JSON file (default: built-in values)")
	outDir := fs.String("out", ".", "Output directory")
	plots := fs.Bool("plots", false, "Write PNG plots")
	html := fs.Bool("html", false, "Write an HTML chart page per input")
	filtered := fs.Bool("filtered", false, "Write the likelihood-masked coordinate table")
	dbPath := fs.String("db", "", "Store runs in this SQLite database")
	fps := fs.Float64("fps", 0, "Frame rate; converts frames to seconds in exports")
	ppm := fs.Float64("ppm", 0, "Pixels per metre; converts pixels to metres in exports")
	speedUnits := fs.String("speed-units", "", "Speed units once fps and ppm are set: "+units.GetValidUnitsString())
	if err := fs.Parse(args); err != nil {
		return err
	}

	inputs := splitList(*input)
	if len(inputs) == 0 || *bindingsPath == "" {
		fs.Usage()
		return errors.New("-input and -bindings are required")
	}

	a := &analyzer{
		fs:       fsutil.OSFileSystem{},
		clock:    timeutil.RealClock{},
		outDir:   *outDir,
		scale:    units.Scale{FPS: *fps, PixelsPerMetre: *ppm, SpeedUnits: *speedUnits},
		plots:    *plots,
		html:     *html,
		filtered: *filtered,
	}
	if err := a.scale.Validate(); err != nil {
		return err
	}

	cfg := config.EmptyGaitConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadGaitConfig(*configPath); err != nil {
			return err
		}
	}
	a.opts = gait.OptionsFromConfig(cfg)

	statistics, err := gait.ParseStatistics(splitList(*stats))
	if err != nil {
		return err
	}
	a.req = gait.Request{Parameters: splitList(*params), Statistics: statistics}
	if len(a.req.Parameters) == 0 {
		a.req.Parameters = a.opts.Catalog.Names()
	}

	if a.bindings, err = a.fs.ReadFile(*bindingsPath); err != nil {
		return fmt.Errorf("read bindings: %w", err)
	}

	if *dbPath != "" {
		if a.store, err = db.NewDB(*dbPath); err != nil {
			return fmt.Errorf("open run database: %w", err)
		}
		defer a.store.Close()
	}

	results := a.Run(inputs)
	printResults(stdout, results)

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Input, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Run analyzes every input concurrently and returns results in input order.
func (a *analyzer) Run(inputs []string) []fileResult {
	stems := outputStems(inputs)
	results := make([]fileResult, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in string) {
			defer wg.Done()
			results[i] = a.analyzeFile(in, stems[i])
		}(i, in)
	}
	wg.Wait()
	return results
}

// outputStems names the outputs of each input so no two inputs share a
// stem. Colliding stems get their parent directory prepended, and a 1-based
// input position appended if they still collide.
func outputStems(inputs []string) []string {
	stems := make([]string, len(inputs))
	count := make(map[string]int, len(inputs))
	for i, in := range inputs {
		stems[i] = security.OutputStem(in)
		count[stems[i]]++
	}
	for i, in := range inputs {
		if count[stems[i]] < 2 {
			continue
		}
		if dir := filepath.Base(filepath.Dir(in)); dir != "." && dir != string(filepath.Separator) {
			stems[i] = security.SanitizeFilename(dir) + "_" + stems[i]
		}
	}
	seen := make(map[string]bool, len(inputs))
	for i := range stems {
		base := stems[i]
		for n := i + 1; seen[stems[i]]; n++ {
			stems[i] = fmt.Sprintf("%s_%d", base, n)
		}
		seen[stems[i]] = true
	}
	return stems
}

func (a *analyzer) analyzeFile(input, base string) fileResult {
	start := a.clock.Now()
	out := fileResult{Input: input}

	data, err := a.fs.ReadFile(input)
	if err != nil {
		out.Err = err
		return out
	}
	table, err := pose.ReadCSV(bytes.NewReader(data))
	if err != nil {
		out.Err = err
		return out
	}
	binding, err := pose.ParseBindingJSON(a.bindings, table)
	if err != nil {
		out.Err = err
		return out
	}
	res, err := gait.Calculate(table, binding, a.req, a.opts)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res

	if err := a.write(base, table, res, &out); err != nil {
		out.Err = err
		return out
	}

	if a.store != nil {
		run, err := a.store.SaveRun(db.RunInput{
			Source:   filepath.Base(input),
			Request:  a.req,
			Bindings: binding.Map(),
			Result:   res,
		})
		if err != nil {
			out.Err = err
			return out
		}
		out.RunID = run.ID
	}

	log.Printf("[analyze] %s: %d frames, %d columns, %d failures in %v",
		input, len(res.Table.Frames), len(res.Table.Columns), len(res.Failures), a.clock.Since(start))
	return out
}

func (a *analyzer) write(base string, table *pose.Table, res *gait.Result, out *fileResult) error {
	w := export.NewWriter(a.fs, a.outDir, a.scale)
	if p := w.Path(base, "_gait.csv"); a.fs.Exists(p) {
		log.Printf("[analyze] replacing existing outputs at %s", p)
	}

	path, err := w.Derived(base, res.Table)
	if err != nil {
		return err
	}
	out.Files = append(out.Files, path)

	if res.Stride != nil {
		if path, err = w.Strides(base, res.Stride.Strides); err != nil {
			return err
		}
		out.Files = append(out.Files, path)
	}

	if a.filtered {
		masked := table
		if a.opts.LikelihoodThreshold > 0 {
			masked = table.MaskBelow(a.opts.LikelihoodThreshold)
		}
		if path, err = w.Coordinates(base, masked); err != nil {
			return err
		}
		out.Files = append(out.Files, path)
	}

	first := 0
	if len(res.Table.Frames) > 0 {
		first = res.Table.Frames[0]
	}

	if a.plots {
		pl := report.NewPlotter(a.fs, a.outDir)
		if res.Stride != nil && len(res.Stride.Events.Gradient) > 0 {
			if path, err = pl.Strides(base, res.Stride, first); err != nil {
				return err
			}
			out.Files = append(out.Files, path)
		}
		paths, err := pl.Parameters(base, res.Table)
		if err != nil {
			return err
		}
		out.Files = append(out.Files, paths...)
	}

	if a.html {
		var page bytes.Buffer
		if err := report.RenderCharts(&page, res.Table, res.Stride, report.ChartOptions{Title: base}); err != nil {
			return err
		}
		path := w.Path(base, "_charts.html")
		if err := a.fs.WriteFile(path, page.Bytes(), 0o644); err != nil {
			return err
		}
		out.Files = append(out.Files, path)
	}
	return nil
}

func printResults(w io.Writer, results []fileResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s: FAILED: %v\n", r.Input, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s:\n", r.Input)
		if r.RunID != "" {
			fmt.Fprintf(w, "  run: %s\n", r.RunID)
		}
		if st := r.Result.Stride; st != nil {
			fmt.Fprintf(w, "  strides: %d", len(st.Strides))
			if st.Reason != nil {
				fmt.Fprintf(w, " (%v)", st.Reason)
			}
			fmt.Fprintln(w)
		}
		for _, f := range r.Result.Failures {
			fmt.Fprintf(w, "  skipped %s: %v\n", f.Parameter, f.Err)
		}
		for _, n := range r.Result.Notes {
			fmt.Fprintf(w, "  note: %s\n", n)
		}
		for _, f := range r.Files {
			fmt.Fprintf(w, "  wrote %s\n", f)
		}
	}
}
