package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/reachgrasp.report/internal/db"
	"github.com/banshee-data/reachgrasp.report/internal/fsutil"
	"github.com/banshee-data/reachgrasp.report/internal/monitoring"
	"github.com/banshee-data/reachgrasp.report/internal/motion"
	"github.com/banshee-data/reachgrasp.report/internal/motion/segment"
	"github.com/banshee-data/reachgrasp.report/internal/motion/trials"
	"github.com/banshee-data/reachgrasp.report/internal/report"
	"github.com/banshee-data/reachgrasp.report/internal/security"
)

// Artifact kinds, as reported in a *motion.RenderError.
const (
	ArtifactPlot       = "plot"
	ArtifactVideo      = "video"
	ArtifactKinematics = "kinematics"
	ArtifactChart      = "chart"
)

// trial windows the derived stream and writes every artifact for one
// trial. Render failures are captured in the outcome; only context
// cancellation is returned.
func (r *run) trial(ctx context.Context, trial motion.Trial) (TrialOutcome, error) {
	out := TrialOutcome{Trial: trial, Status: db.TrialOK}
	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		out.Warnings = append(out.Warnings, msg)
		monitoring.Warnf("trial %q: %s", trial.Name, msg)
	}
	var failures []error
	fail := func(artifact string, err error) {
		rerr := &motion.RenderError{Trial: trial.Name, Artifact: artifact, Err: err}
		failures = append(failures, rerr)
		warn("%v", rerr)
	}
	defer func() {
		if len(failures) > 0 {
			out.Status = db.TrialFailed
			out.Err = errors.Join(failures...)
		}
	}()

	for _, issue := range trials.Check(trial) {
		warn("%s", issue)
	}

	base := r.names.base(trial.Name)
	window := trials.Window(r.frames, trial)
	out.Rows = len(window)

	plotPath, err := r.names.path(base, ".png")
	if err != nil {
		fail(ArtifactPlot, err)
		return out, nil
	}

	if len(window) == 0 {
		warn("%v", motion.ErrEmptyTrialWindow)
		if err := writeFile(r.fs, plotPath, func(w io.Writer) error {
			return report.RenderPlaceholder(w, trial, r.render)
		}); err != nil {
			fail(ArtifactPlot, err)
			return out, nil
		}
		out.PlotPath = plotPath
		out.Status = db.TrialPlaceholder
		return out, nil
	}

	if err := writeFile(r.fs, plotPath, func(w io.Writer) error {
		return report.RenderPlot(w, trial, window, r.render)
	}); err != nil {
		fail(ArtifactPlot, err)
	} else {
		out.PlotPath = plotPath
	}

	if r.cfg.GetWriteKinematicsCSV() {
		if p, err := r.names.path(base, "_kinematics.csv"); err != nil {
			fail(ArtifactKinematics, err)
		} else if err := writeFile(r.fs, p, func(w io.Writer) error {
			return report.NewKinematicsWriter(w, r.schema).Write(window)
		}); err != nil {
			fail(ArtifactKinematics, err)
		} else {
			out.KinematicsPath = p
		}
	}

	if r.cfg.GetWriteHTMLChart() {
		if p, err := r.names.path(base, ".html"); err != nil {
			fail(ArtifactChart, err)
		} else if err := writeFile(r.fs, p, func(w io.Writer) error {
			return report.RenderChart(w, trial, window)
		}); err != nil {
			fail(ArtifactChart, err)
		} else {
			out.ChartPath = p
		}
	}

	videoPath, err := r.names.path(base, ".mp4")
	if err != nil {
		fail(ArtifactVideo, err)
		return out, nil
	}
	frames, err := r.video(ctx, trial, videoPath, warn)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		fail(ArtifactVideo, err)
		return out, nil
	}
	out.VideoPath = videoPath
	out.Frames = frames
	return out, nil
}

// video interpolates the trial's samples onto the fixed frame grid and
// encodes one frame per grid point.
func (r *run) video(ctx context.Context, trial motion.Trial, path string, warn func(string, ...interface{})) (int, error) {
	grid := trials.FrameGrid(trial.Start, trial.Stop, r.render.Framerate)
	segments := segment.Split(trials.WindowSamples(r.samples, trial))
	for _, seg := range segments {
		if seg.Degraded() {
			warn("track %s: %d samples, %v", seg.TrackID, seg.Len(), motion.ErrInsufficientSegmentData)
		}
	}
	buckets := segment.Bucket(segment.Interpolate(segments, grid), grid)

	spec := report.VideoSpec{
		Path:      path,
		Width:     r.render.Width,
		Height:    r.render.Height,
		Framerate: r.render.Framerate,
	}
	if err := report.RenderVideo(ctx, r.encoder, spec, trial.Start, grid, buckets, r.render); err != nil {
		return 0, err
	}
	return len(grid), nil
}

// writeFile renders into memory first so that a failed render leaves no
// partial artifact behind.
func writeFile(fs fsutil.FileSystem, path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func joinWarnings(ws []string) string {
	return strings.Join(ws, "; ")
}

// artifactNamer turns trial names into unique, contained file names.
type artifactNamer struct {
	dir    string
	issued map[string]bool
	next   map[string]int
}

func newArtifactNamer(dir string) *artifactNamer {
	return &artifactNamer{dir: filepath.Clean(dir), issued: make(map[string]bool), next: make(map[string]int)}
}

// base returns the sanitised stem for a trial. A stem already issued in
// this run gets the next free numeric suffix, so no two trials share
// artifacts even when one name sanitises to another's suffixed form.
func (n *artifactNamer) base(name string) string {
	stem := security.SanitizeFilename(name)
	candidate := stem
	for n.issued[candidate] {
		c := n.next[stem]
		if c < 2 {
			c = 2
		}
		n.next[stem] = c + 1
		candidate = fmt.Sprintf("%s_%d", stem, c)
	}
	n.issued[candidate] = true
	return candidate
}

func (n *artifactNamer) path(base, suffix string) (string, error) {
	return security.ArtifactPath(n.dir, base, suffix)
}
