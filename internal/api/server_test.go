package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/httputil"
	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/version"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// horseCSV writes n frames: withers moving 2 px/frame along x, poll fixed at
// the origin and nostril at (3, 4).
func horseCSV(n int) string {
	var b strings.Builder
	b.WriteString("frame,withers_x,withers_y,poll_x,poll_y,nostril_x,nostril_y,hock_x,hock_y\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%d,1,0,0,3,4,%g,50\n", i, 2*i, 10*math.Sin(float64(i)/5))
	}
	return b.String()
}

func sampleRequest() AnalysisRequest {
	return AnalysisRequest{
		Source: "walk.csv",
		CSV:    horseCSV(20),
		Bindings: map[string]string{
			"Withers":    "withers",
			"Poll":       "poll",
			"Nostril":    "nostril",
			"Right Hock": "hock",
		},
		Parameters: []string{"Head Length", "Speed", "Duty Factor", "Back Angle"},
		Statistics: []string{"mean", "min"},
	}
}

func newTestServer(t *testing.T, withDB bool) (*Server, http.Handler) {
	t.Helper()
	var database *db.DB
	if withDB {
		var err error
		database, err = db.NewDB(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
	}
	s := NewServer(database, gait.DefaultOptions())
	mux, err := s.ServeMux()
	require.NoError(t, err)
	return s, LoggingMiddleware(mux)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestShowVersion(t *testing.T) {
	_, h := newTestServer(t, false)
	w := do(t, h, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got version.Info
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, version.Get(), got)
}

func TestListCatalog(t *testing.T) {
	_, h := newTestServer(t, false)
	w := do(t, h, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []CatalogEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, len(gait.DefaultCatalog().Names()))
	assert.Equal(t, CatalogEntry{
		Name:      "Head Length",
		Kind:      "distance",
		Unit:      "px",
		Landmarks: []string{"Poll", "Nostril"},
	}, got[2])
}

func TestCreateAnalysis_NoStore(t *testing.T) {
	_, h := newTestServer(t, false)
	w := do(t, h, http.MethodPost, "/api/analyses", sampleRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got AnalysisResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Nil(t, got.Run)
	require.NotNil(t, got.Table)
	assert.Equal(t, []string{"Head Length", "Speed", "Duty Factor"}, got.Table.Names())

	head, ok := got.Table.Column("Head Length")
	require.True(t, ok)
	for _, v := range head.Values {
		assert.InDelta(t, 5.0, v, 1e-12)
	}
	speed, _ := got.Table.Column("Speed")
	assert.InDelta(t, 2.0, speed.Values[10], 1e-12)

	require.Len(t, got.Failures, 1)
	assert.Equal(t, "Back Angle", got.Failures[0].Parameter)
	assert.NotEmpty(t, got.StrideReason, "20 frames are too short to filter")

	require.Len(t, got.Table.Summary, 2)
	assert.Equal(t, gait.Minimum, got.Table.Summary[0].Statistic)
	assert.Equal(t, gait.Mean, got.Table.Summary[1].Statistic)
}

func TestCreateAnalysis_DefaultsToCatalog(t *testing.T) {
	_, h := newTestServer(t, false)
	req := sampleRequest()
	req.Parameters = nil
	w := do(t, h, http.MethodPost, "/api/analyses", req)
	require.Equal(t, http.StatusOK, w.Code)

	var got AnalysisResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, len(gait.DefaultCatalog().Names()), len(got.Table.Columns)+len(got.Failures))
}

func TestCreateAnalysis_BadRequests(t *testing.T) {
	_, h := newTestServer(t, false)

	mutate := func(f func(*AnalysisRequest)) AnalysisRequest {
		r := sampleRequest()
		f(&r)
		return r
	}
	cases := []struct {
		name string
		body any
	}{
		{"empty csv", mutate(func(r *AnalysisRequest) { r.CSV = "" })},
		{"gapped frames", mutate(func(r *AnalysisRequest) {
			r.CSV = "frame,poll_x,poll_y\n0,1,1\n2,1,1\n"
			r.Bindings = map[string]string{"Poll": "poll"}
		})},
		{"unknown landmark", mutate(func(r *AnalysisRequest) { r.Bindings["Tail"] = "withers" })},
		{"missing prefix", mutate(func(r *AnalysisRequest) { r.Bindings["Croup"] = "croup" })},
		{"unknown parameter", mutate(func(r *AnalysisRequest) { r.Parameters = append(r.Parameters, "Tail Swish") })},
		{"unknown statistic", mutate(func(r *AnalysisRequest) { r.Statistics = []string{"median"} })},
		{"unknown field", map[string]any{"csv": "frame\n", "colour": "bay"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/analyses", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	_, h := newTestServer(t, true)

	w := do(t, h, http.MethodPost, "/api/analyses", sampleRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created AnalysisResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.NotNil(t, created.Run)
	id := created.Run.ID
	assert.Equal(t, "/api/analyses/"+id, w.Header().Get("Location"))

	w = do(t, h, http.MethodGet, "/api/analyses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs []db.Run
	require.NoError(t, json.NewDecoder(w.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "walk.csv", runs[0].Source)

	w = do(t, h, http.MethodGet, "/api/analyses/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored AnalysisResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stored))
	assert.Equal(t, created.Table.Names(), stored.Table.Names())
	assert.Equal(t, created.Table.Frames, stored.Table.Frames)
	assert.Equal(t, created.StrideReason, stored.StrideReason)
	assert.Len(t, stored.Failures, 1)

	w = do(t, h, http.MethodGet, "/api/analyses/"+id+"/strides", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/analyses/"+id+"/chart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Head Length")

	w = do(t, h, http.MethodDelete, "/api/analyses/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	for _, path := range []string{"/api/analyses/" + id, "/api/analyses/" + id + "/strides", "/api/analyses/" + id + "/chart"} {
		w = do(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w = do(t, h, http.MethodDelete, "/api/analyses/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAnalyses_Limit(t *testing.T) {
	_, h := newTestServer(t, true)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/analyses", sampleRequest()).Code)
	}

	w := do(t, h, http.MethodGet, "/api/analyses?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs []db.Run
	require.NoError(t, json.NewDecoder(w.Body).Decode(&runs))
	assert.Len(t, runs, 2)

	w = do(t, h, http.MethodGet, "/api/analyses?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunEndpoints_NoStore(t *testing.T) {
	_, h := newTestServer(t, false)
	for _, path := range []string{"/api/analyses", "/api/analyses/x", "/api/analyses/x/strides", "/api/analyses/x/chart"} {
		w := do(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestMethodRouting(t *testing.T) {
	_, h := newTestServer(t, false)
	w := do(t, h, http.MethodPut, "/api/catalog", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStatusCodeColor(t *testing.T) {
	assert.Contains(t, statusCodeColor(200), "200")
	assert.Contains(t, statusCodeColor(302), colorYellow)
	assert.Contains(t, statusCodeColor(404), colorBoldRed)
	assert.Equal(t, "100", statusCodeColor(100))
}

func TestClient(t *testing.T) {
	_, h := newTestServer(t, true)
	ts := httptest.NewServer(h)
	defer ts.Close()

	c := NewClient(ts.URL+"/", httputil.NewStandardClient(ts.Client()))

	entries, err := c.Catalog()
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	resp, err := c.Analyze(sampleRequest())
	require.NoError(t, err)
	require.NotNil(t, resp.Run)

	stored, err := c.Analysis(resp.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Run.ID, stored.Run.ID)

	_, err = c.Analysis("missing")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestClient_Errors(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusBadRequest, `{"error":"csv is required"}`)
	mock.AddResponse(http.StatusOK, `not json`)
	mock.AddErrorResponse(errors.New("connection refused"))

	c := NewClient("http://gait.local", mock)

	_, err := c.Analyze(AnalysisRequest{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "csv is required", se.Message)

	_, err = c.Catalog()
	assert.ErrorContains(t, err, "decode response")

	_, err = c.Catalog()
	assert.ErrorContains(t, err, "connection refused")

	assert.Equal(t, 3, mock.RequestCount())
	assert.Equal(t, "http://gait.local/api/analyses", mock.GetRequest(0).URL.String())
}

func TestCreateAnalysisSanitizesSource(t *testing.T) {
	_, h := newTestServer(t, true)
	req := sampleRequest()
	req.Source = "../uploads/mare 3 (trot).csv"

	w := do(t, h, http.MethodPost, "/api/analyses", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AnalysisResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Run)
	assert.Equal(t, "mare_3_trot_.csv", resp.Run.Source)
}
