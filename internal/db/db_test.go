package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/reachgrasp.report/internal/monitoring"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(orig) })

	db, err := NewDB(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPragmasApplied verifies that essential PRAGMAs are set on the ledger
func TestPragmasApplied(t *testing.T) {
	db := setupTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("Expected busy_timeout=5000, got %d", busyTimeout)
	}

	var foreignKeys int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("Failed to query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("Expected foreign_keys=1, got %d", foreignKeys)
	}
}

func TestMigrationsApplied(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	assert.NoError(t, db.MigrateUp())
}

func TestReopenExistingLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(orig) })

	first, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, first.BeginRun(context.Background(), RunRecord{RunID: "r1", StartedAt: time.Now(), Handedness: "left"}))
	require.NoError(t, first.Close())

	second, err := NewDB(path)
	require.NoError(t, err)
	defer second.Close()
	run, err := second.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "left", run.Handedness)
}

func TestRunLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.BeginRun(ctx, RunRecord{RunID: "run-1", StartedAt: started, Handedness: "right", TrialCount: 2}))

	run, err := db.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunRunning, run.Status)
	assert.Nil(t, run.FinishedAt)
	assert.True(t, started.Equal(run.StartedAt))

	require.NoError(t, db.RecordTrial(ctx, TrialRecord{
		RunID: "run-1", Seq: 0, TrialName: "Reach and Grasp 1",
		RowCount: 120, FrameCount: 49, PlotPath: "out/a.png", VideoPath: "out/a.mp4", Status: TrialOK,
	}))
	require.NoError(t, db.RecordTrial(ctx, TrialRecord{
		RunID: "run-1", Seq: 1, TrialName: "Reach and Grasp 2",
		PlotPath: "out/b.png", Status: TrialPlaceholder, Warning: "no tracking data for this trial",
	}))

	finished := started.Add(time.Minute)
	require.NoError(t, db.FinishRun(ctx, "run-1", finished, RunComplete))

	run, err = db.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunComplete, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, finished.Equal(*run.FinishedAt))

	trials, err := db.ListTrials(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, trials, 2)
	assert.Equal(t, "Reach and Grasp 1", trials[0].TrialName)
	assert.Equal(t, 49, trials[0].FrameCount)
	assert.Equal(t, "", trials[1].VideoPath)
	assert.Equal(t, TrialPlaceholder, trials[1].Status)
}

func TestLedgerConstraints(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.BeginRun(ctx, RunRecord{RunID: "bad", StartedAt: time.Now(), Handedness: "both"})
	assert.Error(t, err, "handedness is constrained")

	err = db.RecordTrial(ctx, TrialRecord{RunID: "missing", TrialName: "x", Status: TrialOK})
	assert.Error(t, err, "trial must reference a run")

	require.NoError(t, db.BeginRun(ctx, RunRecord{RunID: "r", StartedAt: time.Now(), Handedness: "left"}))
	err = db.RecordTrial(ctx, TrialRecord{RunID: "r", TrialName: "x", Status: "weird"})
	assert.Error(t, err, "status is constrained")

	err = db.FinishRun(ctx, "nope", time.Now(), RunComplete)
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = db.GetRun(ctx, "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}
