package clock

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

func TestNewAligner(t *testing.T) {
	t.Parallel()

	cal := &motion.Calibration{DeviceTimestamp: 5_000_000, HostTimestamp: 1_631_789_421.5, Present: true}
	a, err := NewAligner(cal, MicrosecondScale)
	require.NoError(t, err)

	assert.InDelta(t, 1_631_789_416.5, a.Offset, 1e-6)
	assert.InDelta(t, cal.HostTimestamp, a.HostTime(cal.DeviceTimestamp), 1e-6)
	assert.InDelta(t, cal.HostTimestamp+2.25, a.HostTime(cal.DeviceTimestamp+2_250_000), 1e-6)
}

func TestNewAligner_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cal   *motion.Calibration
		scale float64
	}{
		{"nil pair", nil, MicrosecondScale},
		{"absent pair", &motion.Calibration{}, MicrosecondScale},
		{"zero scale", &motion.Calibration{DeviceTimestamp: 1, HostTimestamp: 10, Present: true}, 0},
		{"nan scale", &motion.Calibration{DeviceTimestamp: 1, HostTimestamp: 10, Present: true}, math.NaN()},
		{"nan host", &motion.Calibration{DeviceTimestamp: 1, HostTimestamp: math.NaN(), Present: true}, MicrosecondScale},
		{"negative device", &motion.Calibration{DeviceTimestamp: -1, HostTimestamp: 10, Present: true}, MicrosecondScale},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewAligner(tt.cal, tt.scale)
			var calErr *motion.CalibrationError
			require.True(t, errors.As(err, &calErr), "want CalibrationError, got %v", err)
		})
	}
}

func TestAlign(t *testing.T) {
	t.Parallel()

	a := &Aligner{Scale: MicrosecondScale, Offset: 100}
	samples := []motion.Sample{{DeviceTimestamp: 0}, {DeviceTimestamp: 500_000}, {DeviceTimestamp: 1_000_000}}
	a.Align(samples)

	want := []float64{100, 100.5, 101}
	for i, s := range samples {
		assert.InDelta(t, want[i], s.Timestamp, 1e-9)
	}
}

func TestParseHostTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"1970-01-01 00:00:10", 10},
		{"1970-01-01T00:00:10.25", 10.25},
		{"1970-01-01T01:00:10+01:00", 10},
		{"2021-09-16 10:50:21.500000", 1631789421.5},
		{"  2021-09-16T10:50:21Z ", 1631789421},
	}
	for _, tt := range tests {
		got, err := ParseHostTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-6, tt.in)
	}

	for _, bad := range []string{"", "yesterday", "16/09/2021"} {
		_, err := ParseHostTimestamp(bad)
		var calErr *motion.CalibrationError
		assert.True(t, errors.As(err, &calErr), "input %q", bad)
	}
}
