// Package trials slices a derived frame stream into per-trial windows and
// builds the fixed-rate timeline used for review videos.
package trials

import (
	"math"
	"sort"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// gridEpsilon absorbs floating-point error when deciding whether the last
// frame of a grid still lies on the trial's stop timestamp.
const gridEpsilon = 1e-9

// Window returns the contiguous run of frames with
// trial.Start <= Timestamp <= trial.Stop. frames must be sorted by
// timestamp. The result aliases frames; it is empty, never nil, when
// nothing falls in range.
func Window(frames motion.Frames, trial motion.Trial) motion.Frames {
	lo := sort.Search(len(frames), func(i int) bool { return frames[i].Timestamp >= trial.Start })
	hi := sort.Search(len(frames), func(i int) bool { return frames[i].Timestamp > trial.Stop })
	if hi <= lo {
		return motion.Frames{}
	}
	return frames[lo:hi]
}

// WindowSamples is Window for aligned raw samples sorted by timestamp.
func WindowSamples(samples []motion.Sample, trial motion.Trial) []motion.Sample {
	lo := sort.Search(len(samples), func(i int) bool { return samples[i].Timestamp >= trial.Start })
	hi := sort.Search(len(samples), func(i int) bool { return samples[i].Timestamp > trial.Stop })
	if hi <= lo {
		return nil
	}
	return samples[lo:hi]
}

// FrameGrid returns the video frame timestamps start + k/fps for every
// k >= 0 whose offset does not exceed stop - start. Both ends are
// inclusive, so a 2 s trial at 24 fps has 49 frames. An inverted range
// yields a single frame at start.
func FrameGrid(start, stop float64, fps int) []float64 {
	if fps <= 0 {
		return nil
	}
	span := stop - start
	if span < 0 || math.IsNaN(span) {
		return []float64{start}
	}
	count := int(math.Floor(span*float64(fps)+gridEpsilon)) + 1
	grid := make([]float64, count)
	for k := range grid {
		grid[k] = start + float64(k)/float64(fps)
	}
	return grid
}

// Check reports data-quality problems with a trial's timestamps. They are
// never fatal.
func Check(trial motion.Trial) []string {
	var issues []string
	if trial.Stop < trial.Start {
		issues = append(issues, "stop precedes start")
	}
	if trial.Tone < trial.Start || trial.Tone > trial.Stop {
		issues = append(issues, "tone outside [start, stop]")
	}
	return issues
}
