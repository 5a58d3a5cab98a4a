package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/api"
	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/timeutil"
	"github.com/banshee-data/gait.report/internal/units"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

const bindingsJSON = `{"Withers": "withers", "Poll": "poll", "Nostril": "nostril", "Right Hock": "hock"}`

func coordinatesCSV(n int) string {
	var b strings.Builder
	b.WriteString("frame,withers_x,withers_y,poll_x,poll_y,nostril_x,nostril_y,hock_x,hock_y\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%d,1,0,0,3,4,%g,50\n", i+100, 2*i, 10*math.Sin(float64(i)/5))
	}
	return b.String()
}

func writeInputs(t *testing.T, dir string) (csvPath, bindingsPath string) {
	t.Helper()
	csvPath = filepath.Join(dir, "walk.csv")
	bindingsPath = filepath.Join(dir, "horse.json")
	require.NoError(t, os.WriteFile(csvPath, []byte(coordinatesCSV(40)), 0o644))
	require.NoError(t, os.WriteFile(bindingsPath, []byte(bindingsJSON), 0o644))
	return csvPath, bindingsPath
}

func TestRunVersionAndHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 0, run("version", nil, &out, &errOut))
	assert.NotEmpty(t, out.String())

	out.Reset()
	assert.Equal(t, 0, run("help", nil, &out, &errOut))
	assert.Contains(t, out.String(), "Usage: gait <command>")
}

func TestRunUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 1, run("bogus", nil, &out, &errOut))
	assert.Contains(t, errOut.String(), "Unknown command: bogus")
	assert.Empty(t, out.String())
}

func TestCatalogCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	require.Equal(t, 0, run("catalog", nil, &out, &errOut), errOut.String())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(gait.DefaultCatalog().Names())+1)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, out.String(), "Head Length")
	assert.Contains(t, out.String(), "Poll, Nostril")
}

func TestCatalogFromServer(t *testing.T) {
	srv := api.NewServer(nil, gait.DefaultOptions())
	mux, err := srv.ServeMux()
	require.NoError(t, err)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	var out, errOut bytes.Buffer
	require.Equal(t, 0, run("catalog", []string{"-server", ts.URL}, &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "Duty Factor")
}

func TestAnalyzeRequiresInputs(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 1, run("analyze", nil, &out, &errOut))
	assert.Contains(t, errOut.String(), "-input and -bindings are required")
}

func TestAnalyzeRejectsUnknownStatistic(t *testing.T) {
	dir := t.TempDir()
	csvPath, bindingsPath := writeInputs(t, dir)

	var out, errOut bytes.Buffer
	code := run("analyze", []string{"-input", csvPath, "-bindings", bindingsPath, "-stats", "median"}, &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "median")
}

func TestAnalyzeWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	csvPath, bindingsPath := writeInputs(t, dir)
	outDir := filepath.Join(dir, "results")
	dbPath := filepath.Join(dir, "runs.db")

	var out, errOut bytes.Buffer
	code := run("analyze", []string{
		"-input", csvPath,
		"-bindings", bindingsPath,
		"-params", "Head Length,Speed,Duty Factor,Back Angle",
		"-stats", "min,max",
		"-out", outDir,
		"-html", "-filtered", "-plots",
		"-db", dbPath,
	}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())

	report := out.String()
	assert.Contains(t, report, "walk.csv:")
	assert.Contains(t, report, "run: ")
	assert.Contains(t, report, "skipped Back Angle")

	for _, name := range []string{"walk_gait.csv", "walk_strides.csv", "walk_filtered.csv", "walk_charts.html", "walk_head_length.png"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	derived, err := os.ReadFile(filepath.Join(outDir, "walk_gait.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(derived)), "\n")
	assert.Equal(t, "frame,Head Length (px),Speed (px/frame),Duty Factor (ratio)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Minimum,5,2"))
	assert.True(t, strings.HasPrefix(lines[3], "100,5,2"))

	store, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "walk.csv", runs[0].Source)
	assert.Equal(t, 40, runs[0].FrameCount)
	assert.Equal(t, 100, runs[0].FirstFrame)
}

func TestAnalyzerRunsFilesIndependently(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	require.NoError(t, mem.WriteFile("in/a.csv", []byte(coordinatesCSV(30)), 0o644))
	require.NoError(t, mem.WriteFile("in/b.csv", []byte("not,a\ncoordinate,file\n"), 0o644))

	a := &analyzer{
		fs:       mem,
		clock:    timeutil.NewMockClock(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)),
		opts:     gait.DefaultOptions(),
		req:      gait.Request{Parameters: []string{"Head Length"}},
		bindings: []byte(bindingsJSON),
		outDir:   "out",
		scale:    units.Scale{FPS: 30},
	}

	results := a.Run([]string{"in/a.csv", "in/missing.csv", "in/b.csv"})
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, []string{filepath.Join("out", "a_gait.csv")}, results[0].Files)
	assert.Error(t, results[1].Err)
	assert.Error(t, results[2].Err)
	assert.Equal(t, []string{filepath.Join("out", "a_gait.csv")}, mem.Files("out"))

	var buf bytes.Buffer
	printResults(&buf, results)
	assert.Contains(t, buf.String(), "in/missing.csv: FAILED")
	assert.Contains(t, buf.String(), "wrote out/a_gait.csv")
}

func TestOutputStems(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		want   []string
	}{
		{"distinct", []string{"a/walk.csv", "b/trot.csv"}, []string{"walk", "trot"}},
		{"same stem in two dirs", []string{"day1/trial.csv", "day2/trial.csv"}, []string{"day1_trial", "day2_trial"}},
		{"same stem different extension", []string{"trial.csv", "trial.txt"}, []string{"trial", "trial_2"}},
		{"same file twice", []string{"day1/trial.csv", "day1/trial.csv"}, []string{"day1_trial", "day1_trial_2"}},
		{"only colliding stems change", []string{"x/walk.csv", "y/walk.csv", "z/trot.csv"}, []string{"x_walk", "y_walk", "trot"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputStems(tt.inputs))
		})
	}
}

func TestAnalyzerKeepsCollidingStemsApart(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	require.NoError(t, mem.WriteFile("day1/trial.csv", []byte(coordinatesCSV(30)), 0o644))
	require.NoError(t, mem.WriteFile("day2/trial.csv", []byte(coordinatesCSV(60)), 0o644))

	a := &analyzer{
		fs:       mem,
		clock:    timeutil.RealClock{},
		opts:     gait.DefaultOptions(),
		req:      gait.Request{Parameters: []string{"Head Length"}},
		bindings: []byte(bindingsJSON),
		outDir:   "out",
		html:     true,
	}

	results := a.Run([]string{"day1/trial.csv", "day2/trial.csv"})
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)

	first := filepath.Join("out", "day1_trial_gait.csv")
	second := filepath.Join("out", "day2_trial_gait.csv")
	assert.Equal(t, []string{first, filepath.Join("out", "day1_trial_charts.html")}, results[0].Files)
	assert.Equal(t, []string{second, filepath.Join("out", "day2_trial_charts.html")}, results[1].Files)
	assert.Len(t, mem.Files("out"), 4)

	for path, frames := range map[string]int{first: 30, second: 60} {
		data, err := mem.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Len(t, lines, frames+1, path)
	}
}

func TestSubmitAgainstServer(t *testing.T) {
	srv := api.NewServer(nil, gait.DefaultOptions())
	mux, err := srv.ServeMux()
	require.NoError(t, err)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mem := fsutil.NewMemoryFileSystem()
	require.NoError(t, mem.WriteFile("walk.csv", []byte(coordinatesCSV(30)), 0o644))
	require.NoError(t, mem.WriteFile("horse.json", []byte(bindingsJSON), 0o644))

	var out bytes.Buffer
	err = submit(mem, api.NewClient(ts.URL, nil), "walk.csv", "horse.json", "Head Length,Back Angle", "mean", &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "skipped Back Angle")
	assert.Contains(t, out.String(), "frame,Head Length (px)")
	assert.Contains(t, out.String(), "Mean,5")
	assert.NotContains(t, out.String(), "run: ")
}

func TestSubmitBadBindings(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	require.NoError(t, mem.WriteFile("walk.csv", []byte(coordinatesCSV(5)), 0o644))
	require.NoError(t, mem.WriteFile("horse.json", []byte("["), 0o644))

	err := submit(mem, api.NewClient("http://127.0.0.1:0", nil), "walk.csv", "horse.json", "", "", io.Discard)
	assert.ErrorContains(t, err, "parse bindings")
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	var out, errOut bytes.Buffer
	require.Equal(t, 0, run("migrate", []string{"-db", dbPath, "up"}, &out, &errOut), errOut.String())

	out.Reset()
	require.Equal(t, 0, run("migrate", []string{"-db", dbPath, "status"}, &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "=== Migration Status ===")
}
