// Package report renders the per-trial artifacts: a three-panel kinematics
// plot, a fixed-framerate video of the tracked hand, and optional tabular
// and interactive companions.
package report

import (
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// Options controls rendering. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Framerate int

	// Fixed world cube, mm, identical on all three axes.
	WorldMin float64
	WorldMax float64

	// Camera angles in degrees.
	ElevationDeg float64
	AzimuthDeg   float64

	// Video frame size in pixels.
	Width  int
	Height int

	// Workers bounds concurrent frame rendering.
	Workers int

	PlotWidth  vg.Length
	PlotHeight vg.Length

	// Palm is the reference point every other joint is connected to.
	Palm   motion.PointRef
	Joints []motion.Joint
}

// DefaultOptions returns the standard report geometry for a palm at
// channel positions 0, 1 and 2.
func DefaultOptions() Options {
	return Options{
		Framerate:    24,
		WorldMin:     -300,
		WorldMax:     150,
		ElevationDeg: 125,
		AzimuthDeg:   -140,
		Width:        500,
		Height:       400,
		Workers:      4,
		PlotWidth:    15 * vg.Inch,
		PlotHeight:   20 * vg.Inch,
		Palm:         motion.PointRef{X: 0, Y: 1, Z: 2},
	}
}
