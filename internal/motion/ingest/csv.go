// Package ingest reads the three tables a recording session leaves behind:
// the raw device sample log, the calibration pair and the trial event log.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/reachgrasp.report/internal/monitoring"
	"github.com/banshee-data/reachgrasp.report/internal/motion"
	"github.com/banshee-data/reachgrasp.report/internal/motion/clock"
)

// Column names of the device sample log.
const (
	ColTimestamp = "timestamp"
	ColHandID    = "hand_id"
	ColHandType  = "hand_type"
)

// Column names of the calibration table.
const (
	ColLeapTimestamp   = "leap_timestamp"
	ColSystemTimestamp = "system_timestamp"
)

// DefaultTrialFilter selects the reach-and-grasp recordings and drops the
// calibration and validation ones.
const DefaultTrialFilter = "Reach and Grasp"

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ReadSamples parses the device sample log. The header must contain
// timestamp, hand_id and hand_type; every other column whose first data
// value is numeric becomes a channel of the returned schema, in header
// order. Rows with an unparseable timestamp or channel value are skipped
// with a warning.
func ReadSamples(r io.Reader) ([]motion.Sample, *motion.Schema, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("read samples: empty input")
		}
		return nil, nil, fmt.Errorf("read samples header: %w", err)
	}
	header = append([]string(nil), header...)
	idx := columnIndex(header)
	for _, c := range []string{ColTimestamp, ColHandID, ColHandType} {
		if _, ok := idx[c]; !ok {
			return nil, nil, fmt.Errorf("read samples: missing column %q", c)
		}
	}

	var (
		schema   *motion.Schema
		channels []int
		samples  []motion.Sample
		skipped  int
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read samples line %d: %w", line, err)
		}

		if schema == nil {
			channels, schema, err = channelsFrom(header, idx, rec)
			if err != nil {
				return nil, nil, fmt.Errorf("read samples: %w", err)
			}
		}

		s, err := parseSample(rec, idx, channels)
		if err != nil {
			skipped++
			monitoring.Warnf("ingest: skipping sample line %d: %v", line, err)
			continue
		}
		samples = append(samples, s)
	}

	if schema == nil {
		// Header only: channels are every non-identity column.
		channels, schema, err = channelsFrom(header, idx, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("read samples: %w", err)
		}
	}
	if skipped > 0 {
		monitoring.Logf("ingest: read %d samples, skipped %d malformed", len(samples), skipped)
	}
	return samples, schema, nil
}

// channelsFrom picks the channel columns. With a first record, columns
// whose value does not parse as a number are left out.
func channelsFrom(header []string, idx map[string]int, first []string) ([]int, *motion.Schema, error) {
	var cols []int
	var names []string
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" || h == ColTimestamp || h == ColHandID || h == ColHandType || idx[h] != i {
			continue
		}
		if first != nil {
			if _, err := strconv.ParseFloat(field(first, i), 64); err != nil {
				continue
			}
		}
		cols = append(cols, i)
		names = append(names, h)
	}
	schema, err := motion.NewSchema(names...)
	if err != nil {
		return nil, nil, err
	}
	return cols, schema, nil
}

func parseSample(rec []string, idx map[string]int, channels []int) (motion.Sample, error) {
	ts, err := parseDeviceTimestamp(field(rec, idx[ColTimestamp]))
	if err != nil {
		return motion.Sample{}, err
	}
	values := make([]float64, len(channels))
	for k, c := range channels {
		v, err := strconv.ParseFloat(field(rec, c), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return motion.Sample{}, fmt.Errorf("column %d: invalid value %q", c+1, field(rec, c))
		}
		values[k] = v
	}
	return motion.Sample{
		DeviceTimestamp: ts,
		TrackID:         field(rec, idx[ColHandID]),
		HandType:        motion.HandType(strings.ToLower(field(rec, idx[ColHandType]))),
		Values:          values,
	}, nil
}

// parseDeviceTimestamp accepts integer device ticks, tolerating a float
// rendering with an integral value.
func parseDeviceTimestamp(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid device timestamp %q", s)
	}
	return int64(f), nil
}

// ReadCalibration parses the calibration table and returns its first data
// row. Any problem is reported as a *motion.CalibrationError.
func ReadCalibration(r io.Reader) (*motion.Calibration, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, &motion.CalibrationError{Reason: "calibration table has no header", Err: err}
	}
	idx := columnIndex(header)
	di, ok := idx[ColLeapTimestamp]
	if !ok {
		return nil, &motion.CalibrationError{Reason: fmt.Sprintf("missing column %q", ColLeapTimestamp)}
	}
	hi, ok := idx[ColSystemTimestamp]
	if !ok {
		return nil, &motion.CalibrationError{Reason: fmt.Sprintf("missing column %q", ColSystemTimestamp)}
	}

	rec, err := cr.Read()
	if err != nil {
		return nil, &motion.CalibrationError{Reason: "calibration table has no reference row", Err: err}
	}
	device, err := parseDeviceTimestamp(field(rec, di))
	if err != nil {
		return nil, &motion.CalibrationError{Reason: "invalid device timestamp", Err: err}
	}
	host, err := clock.ParseHostTimestamp(field(rec, hi))
	if err != nil {
		return nil, err
	}
	return &motion.Calibration{DeviceTimestamp: device, HostTimestamp: host, Present: true}, nil
}

// ReadTrials parses the trial event log: name, start, stop, timestamp (the
// tone) and is_success. A leading unnamed index column is ignored.
func ReadTrials(r io.Reader) ([]motion.Trial, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read trials: empty input")
		}
		return nil, fmt.Errorf("read trials header: %w", err)
	}
	idx := columnIndex(header)
	for _, c := range []string{"name", "start", "stop", "timestamp", "is_success"} {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("read trials: missing column %q", c)
		}
	}

	var trials []motion.Trial
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read trials line %d: %w", line, err)
		}
		t := motion.Trial{Name: field(rec, idx["name"])}
		if t.Start, err = parseSeconds(field(rec, idx["start"])); err != nil {
			return nil, fmt.Errorf("read trials line %d start: %w", line, err)
		}
		if t.Stop, err = parseSeconds(field(rec, idx["stop"])); err != nil {
			return nil, fmt.Errorf("read trials line %d stop: %w", line, err)
		}
		if t.Tone, err = parseSeconds(field(rec, idx["timestamp"])); err != nil {
			return nil, fmt.Errorf("read trials line %d timestamp: %w", line, err)
		}
		if t.IsSuccess, err = parseBool(field(rec, idx["is_success"])); err != nil {
			return nil, fmt.Errorf("read trials line %d is_success: %w", line, err)
		}
		trials = append(trials, t)
	}
	return trials, nil
}

func parseSeconds(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid epoch seconds %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite epoch seconds %q", s)
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// FilterTrials keeps successful trials whose name contains substr, in
// their original order. An empty substr matches every name.
func FilterTrials(trials []motion.Trial, substr string) []motion.Trial {
	out := make([]motion.Trial, 0, len(trials))
	for _, t := range trials {
		if !t.IsSuccess {
			continue
		}
		if !strings.Contains(t.Name, substr) {
			continue
		}
		out = append(out, t)
	}
	return out
}
