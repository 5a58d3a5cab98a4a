package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/httputil"
	"github.com/banshee-data/gait.report/internal/pose"
	"github.com/banshee-data/gait.report/internal/report"
	"github.com/banshee-data/gait.report/internal/security"
)

// AnalysisRequest is the body of POST /api/analyses. CSV holds the
// coordinate file text; an empty Parameters list requests the whole catalog.
type AnalysisRequest struct {
	Source     string            `json:"source"`
	CSV        string            `json:"csv"`
	Bindings   map[string]string `json:"bindings"`
	Parameters []string          `json:"parameters"`
	Statistics []string          `json:"statistics"`
}

// AnalysisResponse reports one calculation, stored or not.
type AnalysisResponse struct {
	Run          *db.Run               `json:"run,omitempty"`
	Table        *gait.DerivedTable    `json:"table"`
	Strides      []gait.Stride         `json:"strides,omitempty"`
	StrideReason string                `json:"stride_reason,omitempty"`
	Failures     []db.Failure          `json:"failures"`
	Notes        []gait.DegeneracyNote `json:"notes"`
}

// NewAnalysisResponse converts a calculation result to its wire form.
func NewAnalysisResponse(res *gait.Result) AnalysisResponse {
	out := AnalysisResponse{
		Table:    res.Table,
		Failures: []db.Failure{},
		Notes:    []gait.DegeneracyNote{},
	}
	if res.Stride != nil {
		out.Strides = res.Stride.Strides
		if res.Stride.Reason != nil {
			out.StrideReason = res.Stride.Reason.Error()
		}
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, db.Failure{Parameter: f.Parameter, Error: f.Err.Error()})
	}
	out.Notes = append(out.Notes, res.Notes...)
	return out
}

// isRequestError reports whether err was caused by the caller's input.
func isRequestError(err error) bool {
	for _, target := range []error{
		pose.ErrMalformedInput,
		pose.ErrInvalidBinding,
		gait.ErrUnknownParameter,
		gait.ErrUnknownStatistic,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) analyze(req AnalysisRequest) (*gait.Result, gait.Request, error) {
	var greq gait.Request
	table, err := pose.ReadCSV(strings.NewReader(req.CSV))
	if err != nil {
		return nil, greq, err
	}
	binding, err := pose.NewBinding(pose.AssignmentsFromMap(req.Bindings), table)
	if err != nil {
		return nil, greq, err
	}
	stats, err := gait.ParseStatistics(req.Statistics)
	if err != nil {
		return nil, greq, err
	}
	greq = gait.Request{Parameters: req.Parameters, Statistics: stats}
	if len(greq.Parameters) == 0 {
		greq.Parameters = s.opts.Catalog.Names()
	}
	res, err := gait.Calculate(table, binding, greq, s.opts)
	return res, greq, err
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	var req AnalysisRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.CSV) == "" {
		httputil.BadRequest(w, "csv is required")
		return
	}

	res, greq, err := s.analyze(req)
	if err != nil {
		if isRequestError(err) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}

	resp := NewAnalysisResponse(res)
	if s.db == nil {
		httputil.WriteJSONOK(w, resp)
		return
	}
	run, err := s.db.SaveRun(db.RunInput{
		Source:   security.SourceName(req.Source),
		Request:  greq,
		Bindings: req.Bindings,
		Result:   res,
	})
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to store run: %v", err))
		return
	}
	resp.Run = run
	w.Header().Set("Location", "/api/analyses/"+run.ID)
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// requireDB answers 503 when no run store is attached.
func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		httputil.ServiceUnavailable(w, "no run store configured")
		return false
	}
	return true
}

// writeStoreError maps run store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.db.ListRuns(limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) loadAnalysis(id string) (AnalysisResponse, error) {
	var resp AnalysisResponse
	run, err := s.db.GetRun(id)
	if err != nil {
		return resp, err
	}
	table, err := s.db.RunTable(id)
	if err != nil {
		return resp, err
	}
	strides, err := s.db.RunStrides(id)
	if err != nil {
		return resp, err
	}
	failures, err := s.db.RunFailures(id)
	if err != nil {
		return resp, err
	}
	notes, err := s.db.RunNotes(id)
	if err != nil {
		return resp, err
	}
	return AnalysisResponse{
		Run:          run,
		Table:        table,
		Strides:      strides,
		StrideReason: run.StrideReason,
		Failures:     failures,
		Notes:        notes,
	}, nil
}

func (s *Server) showAnalysis(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	resp, err := s.loadAnalysis(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	if err := s.db.DeleteRun(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) showStrides(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	strides, err := s.db.RunStrides(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteJSONOK(w, strides)
}

func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id := r.PathValue("id")
	run, err := s.db.GetRun(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	table, err := s.db.RunTable(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	opts := s.charts
	if opts.Title == "" {
		opts.Title = run.Source
	}
	var buf bytes.Buffer
	if err := report.RenderCharts(&buf, table, nil, opts); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
