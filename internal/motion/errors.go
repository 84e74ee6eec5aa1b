package motion

import (
	"errors"
	"fmt"
)

// Recoverable conditions. None of these abort a run; they are logged as
// warnings and attached to the affected trial's outcome.
var (
	ErrInsufficientSegmentData     = errors.New("segment too short for cubic interpolation")
	ErrInsufficientSmoothingWindow = errors.New("series shorter than smoothing window")
	ErrEmptyTrialWindow            = errors.New("no tracking data for this trial")
)

// CalibrationError reports a missing or malformed reference pair. It is
// the only fatal error kind: without it no timestamp can be trusted.
type CalibrationError struct {
	Reason string
	Err    error
}

func (e *CalibrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calibration: %s: %v", e.Reason, e.Err)
	}
	return "calibration: " + e.Reason
}

func (e *CalibrationError) Unwrap() error { return e.Err }

// RenderError reports a plotting or encoding failure for one trial
// artifact. The pipeline records it and moves on to the next trial.
type RenderError struct {
	Trial    string
	Artifact string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s for trial %q: %v", e.Artifact, e.Trial, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
