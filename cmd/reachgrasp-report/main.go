// Command reachgrasp-report turns one Leap Motion recording session into
// per-trial kinematics plots and review videos.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/reachgrasp.report/internal/config"
	"github.com/banshee-data/reachgrasp.report/internal/db"
	"github.com/banshee-data/reachgrasp.report/internal/fsutil"
	"github.com/banshee-data/reachgrasp.report/internal/monitoring"
	"github.com/banshee-data/reachgrasp.report/internal/motion"
	"github.com/banshee-data/reachgrasp.report/internal/motion/ingest"
	"github.com/banshee-data/reachgrasp.report/internal/pipeline"
	"github.com/banshee-data/reachgrasp.report/internal/report"
	"github.com/banshee-data/reachgrasp.report/internal/version"
)

// artifactSuffixes are the files -clean removes before a run.
var artifactSuffixes = []string{".png", ".mp4", "_kinematics.csv", ".html"}

type cliOptions struct {
	samples     string
	calibration string
	trials      string
	handedness  string
	out         string
	config      string
	dbPath      string
	trialFilter string
	clean       bool
	quiet       bool
	version     bool
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	o := &cliOptions{}
	fs := flag.NewFlagSet("reachgrasp-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.samples, "samples", "", "Leap Motion sample CSV (required)")
	fs.StringVar(&o.calibration, "calibration", "", "clock calibration CSV (required)")
	fs.StringVar(&o.trials, "trials", "", "trial events CSV (required)")
	fs.StringVar(&o.handedness, "handedness", "", "participant handedness: left or right (required)")
	fs.StringVar(&o.out, "out", "", "output directory for report artifacts (required)")
	fs.StringVar(&o.config, "config", "", "optional JSON report configuration")
	fs.StringVar(&o.dbPath, "db", "", "optional SQLite run ledger")
	fs.StringVar(&o.trialFilter, "trial-filter", ingest.DefaultTrialFilter, "only successful trials whose name contains this text")
	fs.BoolVar(&o.clean, "clean", false, "remove existing report artifacts from -out first")
	fs.BoolVar(&o.quiet, "quiet", false, "suppress informational logging")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.version {
		return o, nil
	}

	missing := []struct{ name, value string }{
		{"samples", o.samples},
		{"calibration", o.calibration},
		{"trials", o.trials},
		{"handedness", o.handedness},
		{"out", o.out},
	}
	for _, m := range missing {
		if m.value == "" {
			return nil, fmt.Errorf("-%s is required", m.name)
		}
	}
	if _, err := motion.ParseHandType(o.handedness); err != nil {
		return nil, err
	}
	return o, nil
}

// readInputs loads the three session tables.
func readInputs(fsys fsutil.FileSystem, o *cliOptions) (pipeline.Inputs, error) {
	in := pipeline.Inputs{Handedness: o.handedness}

	err := withFile(fsys, o.samples, func(r io.Reader) error {
		var err error
		in.Samples, in.Schema, err = ingest.ReadSamples(r)
		return err
	})
	if err != nil {
		return in, fmt.Errorf("samples: %w", err)
	}

	err = withFile(fsys, o.calibration, func(r io.Reader) error {
		var err error
		in.Calibration, err = ingest.ReadCalibration(r)
		return err
	})
	if err != nil {
		return in, fmt.Errorf("calibration: %w", err)
	}

	var all []motion.Trial
	err = withFile(fsys, o.trials, func(r io.Reader) error {
		var err error
		all, err = ingest.ReadTrials(r)
		return err
	})
	if err != nil {
		return in, fmt.Errorf("trials: %w", err)
	}
	in.Trials = ingest.FilterTrials(all, o.trialFilter)
	monitoring.Logf("loaded %d samples, %d of %d trials match %q", len(in.Samples), len(in.Trials), len(all), o.trialFilter)
	return in, nil
}

func withFile(fsys fsutil.FileSystem, path string, fn func(io.Reader) error) error {
	f, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

// run executes one report run. enc overrides the configured ffmpeg encoder
// when non-nil.
func run(ctx context.Context, o *cliOptions, fsys fsutil.FileSystem, enc report.Encoder) (*pipeline.Result, error) {
	cfg := config.DefaultReportConfig()
	if o.config != "" {
		var err error
		if cfg, err = config.LoadReportConfig(o.config); err != nil {
			return nil, err
		}
	}

	in, err := readInputs(fsys, o)
	if err != nil {
		return nil, err
	}

	if o.clean {
		n, err := fsutil.RemoveMatching(fsys, o.out, artifactSuffixes...)
		if err != nil {
			return nil, fmt.Errorf("clean %s: %w", o.out, err)
		}
		monitoring.Logf("removed %d existing artifacts from %s", n, o.out)
	}

	opts := pipeline.Options{OutputDir: o.out, Config: cfg, Encoder: enc, FS: fsys}
	if o.dbPath != "" {
		ledger, err := db.NewDB(o.dbPath)
		if err != nil {
			return nil, fmt.Errorf("open run ledger: %w", err)
		}
		defer ledger.Close()
		opts.Ledger = ledger
	}

	return pipeline.Produce(ctx, in, opts)
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("invalid arguments: %v", err)
	}
	if o.version {
		fmt.Println(version.String())
		return
	}
	if o.quiet {
		monitoring.SetLogger(nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, o, fsutil.OSFileSystem{}, nil)
	if err != nil {
		var calErr *motion.CalibrationError
		if errors.As(err, &calErr) {
			log.Fatalf("cannot align clocks: %v", err)
		}
		log.Fatalf("report failed: %v", err)
	}

	for _, t := range res.Trials {
		log.Printf("%-8s %s %s", t.Status, t.Trial.Name, t.PlotPath)
	}
	if n := res.Failed(); n > 0 {
		log.Printf("%d of %d trials had failed artifacts (run %s)", n, len(res.Trials), res.RunID)
		os.Exit(1)
	}
	log.Printf("✓ Wrote %d trial reports to %s (run %s)", len(res.Trials), o.out, res.RunID)
}
