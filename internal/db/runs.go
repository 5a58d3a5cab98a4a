package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gait.report/internal/gait"
)

// Run is the stored header of one analysis.
type Run struct {
	ID           string            `json:"run_id"`
	Source       string            `json:"source"`
	Parameters   []string          `json:"parameters"`
	Statistics   []string          `json:"statistics"`
	Bindings     map[string]string `json:"bindings"`
	FrameCount   int               `json:"frame_count"`
	FirstFrame   int               `json:"first_frame"`
	StrideReason string            `json:"stride_reason,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Failure is a stored per-parameter failure.
type Failure struct {
	Parameter string `json:"parameter"`
	Error     string `json:"error"`
}

// RunInput is everything SaveRun records for one calculation.
type RunInput struct {
	Source   string
	Request  gait.Request
	Bindings map[string]string
	Result   *gait.Result
}

// SaveRun stores a calculation result under a new run id.
func (db *DB) SaveRun(in RunInput) (*Run, error) {
	if in.Result == nil || in.Result.Table == nil {
		return nil, errors.New("save run: no result")
	}
	tbl := in.Result.Table
	run := &Run{
		ID:         uuid.NewString(),
		Source:     in.Source,
		Parameters: append([]string{}, in.Request.Parameters...),
		Statistics: make([]string, 0, len(in.Request.Statistics)),
		Bindings:   in.Bindings,
		FrameCount: len(tbl.Frames),
		CreatedAt:  db.clock.Now().UTC().Truncate(time.Second),
	}
	if run.Bindings == nil {
		run.Bindings = map[string]string{}
	}
	for _, s := range in.Request.Statistics {
		run.Statistics = append(run.Statistics, s.String())
	}
	if len(tbl.Frames) > 0 {
		run.FirstFrame = tbl.Frames[0]
	}
	if st := in.Result.Stride; st != nil && st.Reason != nil {
		run.StrideReason = st.Reason.Error()
	}

	params, err := json.Marshal(run.Parameters)
	if err != nil {
		return nil, err
	}
	stats, err := json.Marshal(run.Statistics)
	if err != nil {
		return nil, err
	}
	bindings, err := json.Marshal(run.Bindings)
	if err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			run_id, source, parameters, statistics, bindings,
			frame_count, first_frame, stride_reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, string(params), string(stats), string(bindings),
		run.FrameCount, run.FirstFrame, run.StrideReason, run.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	for i, c := range tbl.Columns {
		vals, err := json.Marshal(gait.Series(c.Values))
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(`INSERT INTO run_columns (run_id, position, name, unit, vals) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, c.Name, c.Unit, string(vals)); err != nil {
			return nil, fmt.Errorf("failed to insert column %q: %w", c.Name, err)
		}
	}

	for _, s := range tbl.Summary {
		vals, err := json.Marshal(gait.Series(s.Values))
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(`INSERT INTO run_summary (run_id, statistic, vals) VALUES (?, ?, ?)`,
			run.ID, s.Statistic.String(), string(vals)); err != nil {
			return nil, fmt.Errorf("failed to insert summary: %w", err)
		}
	}

	if in.Result.Stride != nil {
		for i, s := range in.Result.Stride.Strides {
			var toeOff sql.NullInt64
			if s.ToeOff >= 0 {
				toeOff = sql.NullInt64{Int64: int64(s.ToeOff), Valid: true}
			}
			var duty sql.NullFloat64
			if !math.IsNaN(s.DutyFactor) {
				duty = sql.NullFloat64{Float64: s.DutyFactor, Valid: true}
			}
			if _, err := tx.Exec(`
				INSERT INTO run_strides (
					run_id, stride_index, start_frame, end_frame, length, toe_off_frame, duty_factor
				) VALUES (?, ?, ?, ?, ?, ?, ?)
			`, run.ID, i, s.Start, s.End, s.Length, toeOff, duty); err != nil {
				return nil, fmt.Errorf("failed to insert stride %d: %w", i, err)
			}
		}
	}

	for _, f := range in.Result.Failures {
		if _, err := tx.Exec(`INSERT INTO run_failures (run_id, parameter, error) VALUES (?, ?, ?)`,
			run.ID, f.Parameter, f.Err.Error()); err != nil {
			return nil, fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	for _, n := range in.Result.Notes {
		if _, err := tx.Exec(`INSERT INTO run_notes (run_id, parameter, degenerate, missing) VALUES (?, ?, ?, ?)`,
			run.ID, n.Parameter, n.Degenerate, n.Missing); err != nil {
			return nil, fmt.Errorf("failed to insert note: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

const runColumns = `
	run_id, source, parameters, statistics, bindings,
	frame_count, first_frame, stride_reason, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var (
		r                       Run
		params, stats, bindings string
		createdAt               int64
	)
	if err := s.Scan(&r.ID, &r.Source, &params, &stats, &bindings,
		&r.FrameCount, &r.FirstFrame, &r.StrideReason, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &r.Parameters); err != nil {
		return nil, fmt.Errorf("run %s parameters: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(stats), &r.Statistics); err != nil {
		return nil, fmt.Errorf("run %s statistics: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(bindings), &r.Bindings); err != nil {
		return nil, fmt.Errorf("run %s bindings: %w", r.ID, err)
	}
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &r, nil
}

// GetRun returns the header of run id.
func (db *DB) GetRun(id string) (*Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (db *DB) DeleteRun(id string) error {
	res, err := db.Exec(`DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// RunTable rebuilds the derived table of run id.
func (db *DB) RunTable(id string) (*gait.DerivedTable, error) {
	run, err := db.GetRun(id)
	if err != nil {
		return nil, err
	}
	t := &gait.DerivedTable{Frames: make([]int, run.FrameCount)}
	for i := range t.Frames {
		t.Frames[i] = run.FirstFrame + i
	}

	rows, err := db.Query(`SELECT name, unit, vals FROM run_columns WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c    gait.Column
			vals string
			s    gait.Series
		)
		if err := rows.Scan(&c.Name, &c.Unit, &vals); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vals), &s); err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		c.Values = s
		t.Columns = append(t.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	summary, err := db.runSummary(id)
	if err != nil {
		return nil, err
	}
	t.Summary = summary
	return t, nil
}

func (db *DB) runSummary(id string) ([]gait.SummaryRow, error) {
	rows, err := db.Query(`SELECT statistic, vals FROM run_summary WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	byStat := map[gait.Statistic][]float64{}
	for rows.Next() {
		var name, vals string
		if err := rows.Scan(&name, &vals); err != nil {
			return nil, err
		}
		st, err := gait.ParseStatistic(name)
		if err != nil {
			return nil, err
		}
		var s gait.Series
		if err := json.Unmarshal([]byte(vals), &s); err != nil {
			return nil, fmt.Errorf("summary %s: %w", name, err)
		}
		byStat[st] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []gait.SummaryRow
	for _, st := range gait.AllStatistics {
		if v, ok := byStat[st]; ok {
			out = append(out, gait.SummaryRow{Statistic: st, Values: v})
		}
	}
	return out, nil
}

// RunStrides returns the stored strides of run id in order.
func (db *DB) RunStrides(id string) ([]gait.Stride, error) {
	if _, err := db.GetRun(id); err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT start_frame, end_frame, length, toe_off_frame, duty_factor
		FROM run_strides
		WHERE run_id = ?
		ORDER BY stride_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query strides: %w", err)
	}
	defer rows.Close()

	strides := []gait.Stride{}
	for rows.Next() {
		var (
			s      gait.Stride
			toeOff sql.NullInt64
			duty   sql.NullFloat64
		)
		if err := rows.Scan(&s.Start, &s.End, &s.Length, &toeOff, &duty); err != nil {
			return nil, err
		}
		s.ToeOff = -1
		if toeOff.Valid {
			s.ToeOff = int(toeOff.Int64)
		}
		s.DutyFactor = math.NaN()
		if duty.Valid {
			s.DutyFactor = duty.Float64
		}
		strides = append(strides, s)
	}
	return strides, rows.Err()
}

// RunFailures returns the parameters of run id that could not be computed.
func (db *DB) RunFailures(id string) ([]Failure, error) {
	rows, err := db.Query(`SELECT parameter, error FROM run_failures WHERE run_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	out := []Failure{}
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Parameter, &f.Error); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// RunNotes returns the degeneracy notes of run id.
func (db *DB) RunNotes(id string) ([]gait.DegeneracyNote, error) {
	rows, err := db.Query(`SELECT parameter, degenerate, missing FROM run_notes WHERE run_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	out := []gait.DegeneracyNote{}
	for rows.Next() {
		var n gait.DegeneracyNote
		if err := rows.Scan(&n.Parameter, &n.Degenerate, &n.Missing); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
