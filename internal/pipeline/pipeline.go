// Package pipeline is the single entry point that turns one recording
// session into per-trial report artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/reachgrasp.report/internal/config"
	"github.com/banshee-data/reachgrasp.report/internal/db"
	"github.com/banshee-data/reachgrasp.report/internal/fsutil"
	"github.com/banshee-data/reachgrasp.report/internal/monitoring"
	"github.com/banshee-data/reachgrasp.report/internal/motion"
	"github.com/banshee-data/reachgrasp.report/internal/motion/clock"
	"github.com/banshee-data/reachgrasp.report/internal/motion/features"
	"github.com/banshee-data/reachgrasp.report/internal/motion/segment"
	"github.com/banshee-data/reachgrasp.report/internal/report"
	"github.com/banshee-data/reachgrasp.report/internal/timeutil"
)

// Inputs are the three session tables plus the participant's handedness.
type Inputs struct {
	Samples     []motion.Sample
	Schema      *motion.Schema
	Calibration *motion.Calibration
	// Trials are processed as given; filtering happens upstream.
	Trials     []motion.Trial
	Handedness string
}

// Ledger records runs and trial outcomes. *db.DB satisfies it.
type Ledger interface {
	BeginRun(ctx context.Context, run db.RunRecord) error
	RecordTrial(ctx context.Context, rec db.TrialRecord) error
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, status string) error
}

// Options carries the output location and collaborators. Only OutputDir
// is required.
type Options struct {
	OutputDir string
	Config    *config.ReportConfig // defaults when nil
	Encoder   report.Encoder       // ffmpeg per Config when nil
	FS        fsutil.FileSystem    // OS filesystem when nil
	Ledger    Ledger               // optional
	Clock     timeutil.Clock       // real clock when nil
}

// TrialOutcome summarises what was written for one trial.
type TrialOutcome struct {
	Trial          motion.Trial
	Status         string // db.TrialOK, db.TrialPlaceholder or db.TrialFailed
	Rows           int    // derived frames inside the window
	Frames         int    // video frames written
	PlotPath       string
	VideoPath      string
	KinematicsPath string
	ChartPath      string
	Warnings       []string
	Err            error // joined *motion.RenderError values when Status is failed
}

// Result is returned by Produce.
type Result struct {
	RunID    string
	Smoothed bool // false when the hand series was shorter than the smoothing window
	Trials   []TrialOutcome
}

// Failed reports how many trials had at least one artifact fail.
func (r *Result) Failed() int {
	n := 0
	for _, t := range r.Trials {
		if t.Status == db.TrialFailed {
			n++
		}
	}
	return n
}

// run holds the validated, per-session state shared by every trial.
type run struct {
	id       string
	hand     motion.HandType
	cfg      *config.ReportConfig
	render   report.Options
	schema   *motion.Schema
	fs       fsutil.FileSystem
	encoder  report.Encoder
	ledger   Ledger
	clock    timeutil.Clock
	names    *artifactNamer
	samples  []motion.Sample // aligned, single hand, sorted
	frames   motion.Frames   // derived over the whole hand series
	smoothed bool
}

// Produce aligns the sample stream to host time, derives the kinematic
// features for the configured hand and writes each trial's artifacts into
// opts.OutputDir. A *motion.CalibrationError, or an invalid handedness,
// configuration or output directory, aborts the run before anything is
// written. Every per-trial failure is recorded in the result and logged
// as a warning; remaining trials still run. Cancelling ctx stops the run
// between trials or frame batches and returns ctx.Err() with the partial
// result.
func Produce(ctx context.Context, in Inputs, opts Options) (*Result, error) {
	r, err := prepare(in, opts)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, in.Trials)
}

func prepare(in Inputs, opts Options) (*run, error) {
	hand, err := motion.ParseHandType(in.Handedness)
	if err != nil {
		return nil, err
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if in.Schema == nil {
		return nil, errors.New("sample schema is required")
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultReportConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	fopts, err := cfg.FeatureOptions(in.Schema)
	if err != nil {
		return nil, err
	}
	ropts, err := cfg.RenderOptions(in.Schema)
	if err != nil {
		return nil, err
	}
	deriver, err := features.NewDeriver(fopts)
	if err != nil {
		return nil, err
	}

	aligner, err := clock.NewAligner(in.Calibration, cfg.GetDeviceTimeScale())
	if err != nil {
		return nil, err
	}

	r := &run{
		id:      uuid.NewString(),
		hand:    hand,
		cfg:     cfg,
		render:  ropts,
		schema:  in.Schema,
		fs:      opts.FS,
		encoder: opts.Encoder,
		ledger:  opts.Ledger,
		clock:   opts.Clock,
		names:   newArtifactNamer(opts.OutputDir),
	}
	if r.fs == nil {
		r.fs = fsutil.OSFileSystem{}
	}
	if r.encoder == nil {
		r.encoder = &report.FFmpegEncoder{Path: cfg.GetFFmpegPath(), Codec: cfg.GetVideoCodec()}
	}
	if r.clock == nil {
		r.clock = timeutil.RealClock{}
	}

	// Align a copy: the caller's samples are left untouched.
	aligned := make([]motion.Sample, len(in.Samples))
	copy(aligned, in.Samples)
	aligner.Align(aligned)
	r.samples = motion.FilterHand(aligned, hand)
	motion.SortSamples(r.samples)

	series := segment.PassThrough(segment.Split(r.samples))
	r.frames, r.smoothed = deriver.Derive(series)
	monitoring.Logf("pipeline: %d %s-hand samples of %d aligned (offset %.6f s)", len(r.samples), hand, len(aligned), aligner.Offset)
	return r, nil
}

func (r *run) execute(ctx context.Context, trials []motion.Trial) (*Result, error) {
	if err := r.fs.MkdirAll(r.names.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	started := r.clock.Now()
	res := &Result{RunID: r.id, Smoothed: r.smoothed}
	r.begin(ctx, started, len(trials))

	var runErr error
	for i, trial := range trials {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		out, err := r.trial(ctx, trial)
		res.Trials = append(res.Trials, out)
		r.record(ctx, i, out)
		if err != nil {
			runErr = err
			break
		}
	}

	status := db.RunComplete
	switch {
	case runErr != nil:
		status = db.RunCancelled
	case res.Failed() > 0:
		status = db.RunPartial
	}
	r.finish(status)
	monitoring.Logf("pipeline: run %s %s: %d trials, %d failed in %s",
		r.id, status, len(res.Trials), res.Failed(), r.clock.Since(started).Round(time.Millisecond))
	return res, runErr
}

// Ledger writes never fail a run.

func (r *run) begin(ctx context.Context, started time.Time, trials int) {
	if r.ledger == nil {
		return
	}
	rec := db.RunRecord{RunID: r.id, StartedAt: started, Handedness: string(r.hand), TrialCount: trials}
	if err := r.ledger.BeginRun(context.WithoutCancel(ctx), rec); err != nil {
		monitoring.Warnf("pipeline: ledger: %v", err)
	}
}

func (r *run) record(ctx context.Context, seq int, out TrialOutcome) {
	if r.ledger == nil {
		return
	}
	rec := db.TrialRecord{
		RunID:      r.id,
		Seq:        seq,
		TrialName:  out.Trial.Name,
		RowCount:   out.Rows,
		FrameCount: out.Frames,
		PlotPath:   out.PlotPath,
		VideoPath:  out.VideoPath,
		Status:     out.Status,
		Warning:    joinWarnings(out.Warnings),
	}
	if err := r.ledger.RecordTrial(context.WithoutCancel(ctx), rec); err != nil {
		monitoring.Warnf("pipeline: ledger: %v", err)
	}
}

func (r *run) finish(status string) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.FinishRun(context.Background(), r.id, r.clock.Now(), status); err != nil {
		monitoring.Warnf("pipeline: ledger: %v", err)
	}
}
