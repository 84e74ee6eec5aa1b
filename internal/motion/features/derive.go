// Package features derives kinematic features from an aligned, single-hand
// series: distance of the tracked position from the device origin, its
// first and second finite-difference derivatives, and a smoothed distance.
package features

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/reachgrasp.report/internal/monitoring"
	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// Options configures a Deriver.
type Options struct {
	// WindowLength is the smoothing window: odd, >= PolyOrder+1.
	WindowLength int
	// PolyOrder is the smoothing polynomial order, >= 0.
	PolyOrder int
	// Position selects the three channels whose norm is the distance.
	Position motion.PointRef
}

// Deriver computes DerivedFrames from an AlignedSeries.
type Deriver struct {
	position motion.PointRef
	smoother *SavitzkyGolay
}

// NewDeriver validates the smoothing configuration.
func NewDeriver(opts Options) (*Deriver, error) {
	sg, err := NewSavitzkyGolay(opts.WindowLength, opts.PolyOrder)
	if err != nil {
		return nil, fmt.Errorf("smoothing options: %w", err)
	}
	return &Deriver{position: opts.Position, smoother: sg}, nil
}

// Derive computes distance, velocity and acceleration for each row of a
// chronologically sorted series. Velocity and acceleration are backward
// differences of the raw distance; the first row's are zero, as is any
// difference across a zero time step. Distance is then replaced by its
// smoothed value. smoothed is false when the series was shorter than the
// window and the raw distance was kept.
func (d *Deriver) Derive(series motion.Series) (frames motion.Frames, smoothed bool) {
	n := len(series)
	frames = make(motion.Frames, n)
	distance := make([]float64, n)
	point := make([]float64, 3)
	for i, r := range series {
		p := d.position.At(r.Values)
		point[0], point[1], point[2] = p.X, p.Y, p.Z
		distance[i] = floats.Norm(point, 2)
		frames[i] = motion.Frame{Row: r, Distance: distance[i]}
	}

	for i := 1; i < n; i++ {
		dt := series[i].Timestamp - series[i-1].Timestamp
		frames[i].Velocity = ratio(distance[i]-distance[i-1], dt)
		frames[i].Acceleration = ratio(frames[i].Velocity-frames[i-1].Velocity, dt)
	}

	if n == 0 {
		return frames, false
	}
	smooth, err := d.smoother.Smooth(distance)
	if err != nil {
		if errors.Is(err, motion.ErrInsufficientSmoothingWindow) {
			monitoring.Warnf("features: smoothing skipped: %v", err)
		}
		return frames, false
	}
	for i := range frames {
		frames[i].Distance = smooth[i]
	}
	return frames, true
}

// ratio divides, treating a zero denominator as a zero result.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
