package motion

import (
	"fmt"
	"math"
	"strings"
)

// HandType identifies which limb a sample belongs to.
type HandType string

const (
	HandLeft  HandType = "left"
	HandRight HandType = "right"
)

// ParseHandType normalises a handedness setting. Only "left" and "right"
// (any case, surrounding space ignored) are accepted.
func ParseHandType(s string) (HandType, error) {
	switch HandType(strings.ToLower(strings.TrimSpace(s))) {
	case HandLeft:
		return HandLeft, nil
	case HandRight:
		return HandRight, nil
	}
	return "", fmt.Errorf("invalid handedness %q: want left or right", s)
}

// Vec3 is a point in device world space (millimetres).
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sample is one motion-capture observation as read from the device log.
// Timestamp is zero until the sample has been aligned to the host clock.
type Sample struct {
	DeviceTimestamp int64
	Timestamp       float64 // host epoch seconds
	TrackID         string
	HandType        HandType
	Values          []float64 // indexed by Schema
}

// Row is one entry of an AlignedSeries. Original rows carry observed
// values; the rest were interpolated from the owning segment.
type Row struct {
	Timestamp float64
	TrackID   string
	HandType  HandType
	Values    []float64
	Original  bool
}

// Frame is a Row augmented with the derived kinematic features.
type Frame struct {
	Row
	Distance     float64
	Velocity     float64
	Acceleration float64
}

// Trial is one experimental attempt as logged by the event side of the
// experiment. Start <= Tone <= Stop is expected but not enforced.
type Trial struct {
	Name      string
	Start     float64
	Stop      float64
	Tone      float64
	IsSuccess bool
}

// Duration returns Stop - Start in seconds.
func (t Trial) Duration() float64 {
	return t.Stop - t.Start
}

// Calibration is the single reference pair recorded when the session began.
type Calibration struct {
	DeviceTimestamp int64
	HostTimestamp   float64 // host epoch seconds
	Present         bool
}
