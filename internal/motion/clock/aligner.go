// Package clock converts motion-capture device timestamps into host
// wall-clock time using a single calibration pair recorded at session start.
// No drift correction is attempted: the offset is computed once per
// recording.
package clock

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// MicrosecondScale converts Leap Motion device microseconds to seconds.
const MicrosecondScale = 1e-6

// Aligner applies host = device*Scale + Offset.
type Aligner struct {
	Scale  float64
	Offset float64
}

// NewAligner computes the additive offset from the calibration pair.
// A missing or malformed pair yields a *motion.CalibrationError.
func NewAligner(cal *motion.Calibration, scale float64) (*Aligner, error) {
	if cal == nil || !cal.Present {
		return nil, &motion.CalibrationError{Reason: "missing reference pair"}
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, &motion.CalibrationError{Reason: fmt.Sprintf("invalid device time scale %v", scale)}
	}
	if math.IsNaN(cal.HostTimestamp) || math.IsInf(cal.HostTimestamp, 0) || cal.HostTimestamp <= 0 {
		return nil, &motion.CalibrationError{Reason: fmt.Sprintf("invalid host timestamp %v", cal.HostTimestamp)}
	}
	if cal.DeviceTimestamp < 0 {
		return nil, &motion.CalibrationError{Reason: fmt.Sprintf("negative device timestamp %d", cal.DeviceTimestamp)}
	}
	return &Aligner{
		Scale:  scale,
		Offset: cal.HostTimestamp - float64(cal.DeviceTimestamp)*scale,
	}, nil
}

// HostTime converts one device timestamp.
func (a *Aligner) HostTime(device int64) float64 {
	return float64(device)*a.Scale + a.Offset
}

// Align sets Timestamp on every sample in place.
func (a *Aligner) Align(samples []motion.Sample) {
	for i := range samples {
		samples[i].Timestamp = a.HostTime(samples[i].DeviceTimestamp)
	}
}

// hostLayouts are the ISO-8601 renderings seen in calibration records.
// Zoneless layouts are interpreted as UTC.
var hostLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseHostTimestamp parses an ISO-8601 host timestamp into epoch seconds.
func ParseHostTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &motion.CalibrationError{Reason: "empty host timestamp"}
	}
	for _, layout := range hostLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return float64(t.Unix()) + float64(t.Nanosecond())/1e9, nil
		}
	}
	return 0, &motion.CalibrationError{Reason: fmt.Sprintf("unparseable host timestamp %q", s)}
}
