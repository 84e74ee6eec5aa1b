package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunComplete  = "complete"
	RunPartial   = "partial"
	RunCancelled = "cancelled"
)

// Trial statuses.
const (
	TrialOK          = "ok"
	TrialPlaceholder = "placeholder"
	TrialFailed      = "failed"
)

// ErrRunNotFound is returned when a run id is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one row of report_runs.
type RunRecord struct {
	RunID      string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Handedness string     `json:"handedness"`
	TrialCount int        `json:"trial_count"`
	Status     string     `json:"status"`
}

// TrialRecord is one row of report_trials.
type TrialRecord struct {
	RunID      string `json:"run_id"`
	Seq        int    `json:"seq"`
	TrialName  string `json:"trial_name"`
	RowCount   int    `json:"row_count"`
	FrameCount int    `json:"frame_count"`
	PlotPath   string `json:"plot_path"`
	VideoPath  string `json:"video_path"`
	Status     string `json:"status"`
	Warning    string `json:"warning"`
}

// BeginRun inserts a run in the running state.
func (db *DB) BeginRun(ctx context.Context, run RunRecord) error {
	if run.Status == "" {
		run.Status = RunRunning
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO report_runs (run_id, started_at, handedness, trial_count, status)
		 VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC(), run.Handedness, run.TrialCount, run.Status,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// RecordTrial stores one trial outcome.
func (db *DB) RecordTrial(ctx context.Context, rec TrialRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO report_trials (
			run_id, seq, trial_name, row_count, frame_count,
			plot_path, video_path, status, warning
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Seq, rec.TrialName, rec.RowCount, rec.FrameCount,
		nullString(rec.PlotPath), nullString(rec.VideoPath), rec.Status, nullString(rec.Warning),
	)
	if err != nil {
		return fmt.Errorf("insert trial %q for run %s: %w", rec.TrialName, rec.RunID, err)
	}
	return nil
}

// FinishRun stamps the finish time and final status of a run.
func (db *DB) FinishRun(ctx context.Context, runID string, finishedAt time.Time, status string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE report_runs SET finished_at = ?, status = ? WHERE run_id = ?`,
		finishedAt.UTC(), status, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun fetches one run.
func (db *DB) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var (
		run      RunRecord
		finished sql.NullTime
	)
	err := db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, handedness, trial_count, status
		 FROM report_runs WHERE run_id = ?`, runID,
	).Scan(&run.RunID, &run.StartedAt, &finished, &run.Handedness, &run.TrialCount, &run.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// ListTrials returns a run's trial outcomes in processing order.
func (db *DB) ListTrials(ctx context.Context, runID string) ([]TrialRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, seq, trial_name, row_count, frame_count,
		        COALESCE(plot_path, ''), COALESCE(video_path, ''), status, COALESCE(warning, '')
		 FROM report_trials WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trials for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []TrialRecord
	for rows.Next() {
		var r TrialRecord
		if err := rows.Scan(&r.RunID, &r.Seq, &r.TrialName, &r.RowCount, &r.FrameCount,
			&r.PlotPath, &r.VideoPath, &r.Status, &r.Warning); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
