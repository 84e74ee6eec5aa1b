package segment

import (
	"sort"

	"github.com/banshee-data/reachgrasp.report/internal/monitoring"
	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

type trackKey struct {
	hand  motion.HandType
	track string
}

// Split partitions aligned samples into one segment per (hand, track id).
// Samples within a segment are sorted by timestamp; a repeated timestamp
// keeps the first sample seen. Segments are returned ordered by their
// first timestamp.
func Split(samples []motion.Sample) []*Segment {
	groups := make(map[trackKey][]motion.Row)
	var order []trackKey
	for _, s := range samples {
		k := trackKey{hand: s.HandType, track: s.TrackID}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], s.AsRow())
	}

	segments := make([]*Segment, 0, len(order))
	for _, k := range order {
		rows := groups[k]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })
		rows = dedupe(rows)
		segments = append(segments, newSegment(k.track, k.hand, rows))
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Min() < segments[j].Min() })
	return segments
}

func dedupe(rows []motion.Row) []motion.Row {
	out := rows[:1]
	for _, r := range rows[1:] {
		if r.Timestamp == out[len(out)-1].Timestamp {
			monitoring.Logf("segment %s/%s: dropping duplicate sample at %.6f", r.HandType, r.TrackID, r.Timestamp)
			continue
		}
		out = append(out, r)
	}
	return out
}

// Interpolate resamples every segment on the full target grid and merges
// the results by timestamp. Rows from different segments that share a
// timestamp are all retained.
func Interpolate(segments []*Segment, targets []float64) motion.Series {
	parts := make([]motion.Series, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Resample(targets))
	}
	return Merge(parts...)
}

// PassThrough merges the original rows of every segment without adding
// any interpolated rows. It is the analysis-side view of the stream.
func PassThrough(segments []*Segment) motion.Series {
	parts := make([]motion.Series, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Originals())
	}
	return Merge(parts...)
}

// Bucket groups rows by exact target timestamp. targets must be sorted
// ascending and series ordered by timestamp; the result has one (possibly
// empty) slice per target.
func Bucket(series motion.Series, targets []float64) [][]motion.Row {
	out := make([][]motion.Row, len(targets))
	j := 0
	for i, t := range targets {
		for j < len(series) && series[j].Timestamp < t {
			j++
		}
		for k := j; k < len(series) && series[k].Timestamp == t; k++ {
			out[i] = append(out[i], series[k])
		}
	}
	return out
}
