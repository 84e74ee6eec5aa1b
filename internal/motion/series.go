package motion

import "sort"

// Series is an AlignedSeries: rows in non-decreasing timestamp order.
type Series []Row

// Timestamps returns the row timestamps in order.
func (s Series) Timestamps() []float64 {
	ts := make([]float64, len(s))
	for i, r := range s {
		ts[i] = r.Timestamp
	}
	return ts
}

// IsSorted reports whether rows are in non-decreasing timestamp order.
func (s Series) IsSorted() bool {
	return sort.SliceIsSorted(s, func(i, j int) bool { return s[i].Timestamp < s[j].Timestamp })
}

// Sort orders rows by timestamp. Rows sharing a timestamp keep their
// relative order.
func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Timestamp < s[j].Timestamp })
}

// Frames is a DerivedFrame stream in timestamp order.
type Frames []Frame

// Timestamps returns the frame timestamps in order.
func (f Frames) Timestamps() []float64 {
	ts := make([]float64, len(f))
	for i, fr := range f {
		ts[i] = fr.Timestamp
	}
	return ts
}

// Rows strips the derived features, returning the underlying series.
func (f Frames) Rows() Series {
	rows := make(Series, len(f))
	for i, fr := range f {
		rows[i] = fr.Row
	}
	return rows
}

// FilterHand keeps the samples of one hand, preserving order.
func FilterHand(samples []Sample, hand HandType) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.HandType == hand {
			out = append(out, s)
		}
	}
	return out
}

// SortSamples orders samples by host timestamp, then device timestamp.
func SortSamples(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Timestamp != samples[j].Timestamp {
			return samples[i].Timestamp < samples[j].Timestamp
		}
		return samples[i].DeviceTimestamp < samples[j].DeviceTimestamp
	})
}

// AsRow converts an aligned sample into an original series row.
func (s Sample) AsRow() Row {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	return Row{
		Timestamp: s.Timestamp,
		TrackID:   s.TrackID,
		HandType:  s.HandType,
		Values:    values,
		Original:  true,
	}
}
