// Package api serves the gait pipeline and the run store over HTTP.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/httputil"
	"github.com/banshee-data/gait.report/internal/report"
	"github.com/banshee-data/gait.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// DefaultMaxBodyBytes caps an analysis upload.
const DefaultMaxBodyBytes = 32 << 20

type Server struct {
	db      *db.DB
	opts    gait.Options
	charts  report.ChartOptions
	maxBody int64
}

// NewServer returns a server computing with opts. database may be nil, in
// which case analyses are computed but not stored and the run endpoints
// answer 503.
func NewServer(database *db.DB, opts gait.Options) *Server {
	if opts.Catalog == nil {
		opts.Catalog = gait.DefaultCatalog()
	}
	return &Server{db: database, opts: opts, maxBody: DefaultMaxBodyBytes}
}

// SetChartOptions sets the options used by the chart endpoint.
func (s *Server) SetChartOptions(o report.ChartOptions) { s.charts = o }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the routes. The tailsql console is mounted under /debug/
// when a database is attached.
func (s *Server) ServeMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/version", s.showVersion)
	mux.HandleFunc("GET /api/catalog", s.listCatalog)
	mux.HandleFunc("POST /api/analyses", s.createAnalysis)
	mux.HandleFunc("GET /api/analyses", s.listAnalyses)
	mux.HandleFunc("GET /api/analyses/{id}", s.showAnalysis)
	mux.HandleFunc("DELETE /api/analyses/{id}", s.deleteAnalysis)
	mux.HandleFunc("GET /api/analyses/{id}/strides", s.showStrides)
	mux.HandleFunc("GET /api/analyses/{id}/chart", s.showChart)
	if s.db != nil {
		if err := s.db.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Get())
}

// CatalogEntry is the wire form of one catalog entry.
type CatalogEntry struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Unit      string   `json:"unit"`
	Landmarks []string `json:"landmarks"`
}

// CatalogEntries lists c in wire form.
func CatalogEntries(c *gait.Catalog) []CatalogEntry {
	entries := c.Entries()
	out := make([]CatalogEntry, len(entries))
	for i, e := range entries {
		ls := make([]string, len(e.Landmarks))
		for j, l := range e.Landmarks {
			ls[j] = l.String()
		}
		out[i] = CatalogEntry{Name: e.Name, Kind: e.Kind.String(), Unit: e.Kind.Unit(), Landmarks: ls}
	}
	return out
}

func (s *Server) listCatalog(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, CatalogEntries(s.opts.Catalog))
}
