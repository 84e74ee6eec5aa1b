// Package segment splits an aligned sample stream into contiguous tracking
// segments and resamples each segment onto arbitrary target timelines.
//
// A limb that leaves and re-enters the sensor's field of view receives a
// new track id, so each segment is interpolated on its own. Queries outside
// a segment's observed span have no value: interpolation never
// extrapolates and never bridges a tracking gap.
package segment

import (
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/banshee-data/reachgrasp.report/internal/monitoring"
	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// MinCubicSamples is the smallest segment that is fitted with a cubic
// spline. Shorter segments degrade to piecewise-linear interpolation.
const MinCubicSamples = 4

// Segment is a maximal run of samples sharing one track id, sorted by
// strictly increasing timestamp.
type Segment struct {
	TrackID  string
	HandType motion.HandType

	rows   []motion.Row
	origin float64 // fits are evaluated on t - origin
	fits   []interp.Predictor
	linear bool
}

func newSegment(trackID string, hand motion.HandType, rows []motion.Row) *Segment {
	s := &Segment{
		TrackID:  trackID,
		HandType: hand,
		rows:     rows,
		origin:   rows[0].Timestamp,
	}
	s.fit()
	return s
}

// fit builds one predictor per channel. Single-sample segments get no
// predictors; At only answers for their exact timestamp.
func (s *Segment) fit() {
	n := len(s.rows)
	if n < 2 {
		s.linear = true
		return
	}
	channels := len(s.rows[0].Values)
	xs := make([]float64, n)
	for i, r := range s.rows {
		xs[i] = r.Timestamp - s.origin
	}

	// Callers report degraded segments via Degraded.
	s.linear = n < MinCubicSamples

	s.fits = make([]interp.Predictor, channels)
	for c := 0; c < channels; c++ {
		ys := make([]float64, n)
		for i, r := range s.rows {
			ys[i] = r.Values[c]
		}
		if !s.linear {
			var nak interp.NotAKnotCubic
			err := nak.Fit(xs, ys)
			if err == nil {
				s.fits[c] = &nak
				continue
			}
			monitoring.Logf("segment %s/%s channel %d: cubic fit failed (%v), using linear interpolation", s.HandType, s.TrackID, c, err)
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			monitoring.Logf("segment %s/%s channel %d: linear fit failed: %v", s.HandType, s.TrackID, c, err)
			continue
		}
		s.fits[c] = &pl
	}
}

// Len returns the number of original samples.
func (s *Segment) Len() int { return len(s.rows) }

// Min returns the earliest observed timestamp.
func (s *Segment) Min() float64 { return s.rows[0].Timestamp }

// Max returns the latest observed timestamp.
func (s *Segment) Max() float64 { return s.rows[len(s.rows)-1].Timestamp }

// Covers reports whether t lies within [Min, Max].
func (s *Segment) Covers(t float64) bool {
	return t >= s.Min() && t <= s.Max()
}

// Degraded reports whether the segment was too short for cubic
// interpolation.
func (s *Segment) Degraded() bool { return s.linear }

// Originals returns copies of the observed rows in order.
func (s *Segment) Originals() motion.Series {
	out := make(motion.Series, len(s.rows))
	for i, r := range s.rows {
		out[i] = copyRow(r)
	}
	return out
}

// At estimates the segment's state at t. The second result is false when
// t lies outside the observed span. An exact hit on an observed timestamp
// returns the original values untouched.
func (s *Segment) At(t float64) (motion.Row, bool) {
	if !s.Covers(t) {
		return motion.Row{}, false
	}
	i := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].Timestamp >= t })
	if i < len(s.rows) && s.rows[i].Timestamp == t {
		return copyRow(s.rows[i]), true
	}
	if s.fits == nil {
		return motion.Row{}, false
	}
	// i > 0 here: t > Min and no exact hit
	prev := s.rows[i-1]
	values := make([]float64, len(prev.Values))
	x := t - s.origin
	for c, f := range s.fits {
		if f == nil {
			values[c] = prev.Values[c]
			continue
		}
		values[c] = f.Predict(x)
	}
	return motion.Row{
		Timestamp: t,
		TrackID:   prev.TrackID,
		HandType:  prev.HandType,
		Values:    values,
	}, true
}

// Resample returns every original row plus one interpolated row for each
// distinct target inside the segment's span, ordered by timestamp. Targets
// outside the span are dropped. A target equal to an observed timestamp is
// represented by the original row alone.
func (s *Segment) Resample(targets []float64) motion.Series {
	ts := make([]float64, 0, len(targets))
	for _, t := range targets {
		if s.Covers(t) {
			ts = append(ts, t)
		}
	}
	sort.Float64s(ts)

	out := make(motion.Series, 0, len(s.rows)+len(ts))
	j := 0
	for k, t := range ts {
		if k > 0 && t == ts[k-1] {
			continue
		}
		for j < len(s.rows) && s.rows[j].Timestamp < t {
			out = append(out, copyRow(s.rows[j]))
			j++
		}
		if j < len(s.rows) && s.rows[j].Timestamp == t {
			continue
		}
		if row, ok := s.At(t); ok {
			out = append(out, row)
		}
	}
	for ; j < len(s.rows); j++ {
		out = append(out, copyRow(s.rows[j]))
	}
	return out
}

func copyRow(r motion.Row) motion.Row {
	values := make([]float64, len(r.Values))
	copy(values, r.Values)
	r.Values = values
	return r
}
