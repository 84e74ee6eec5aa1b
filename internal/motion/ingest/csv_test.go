package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

func TestReadSamples(t *testing.T) {
	input := `timestamp,hand_id,hand_type,palm_position_x,palm_position_y,palm_position_z,note
1000,7,Right,1.5,2,3,a
2000,7,right,4,5,6,b
oops,7,right,4,5,6,c
3000,8,left,7,8,9,d
`
	samples, schema, err := ReadSamples(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"palm_position_x", "palm_position_y", "palm_position_z"}, schema.Names())

	want := []motion.Sample{
		{DeviceTimestamp: 1000, TrackID: "7", HandType: motion.HandRight, Values: []float64{1.5, 2, 3}},
		{DeviceTimestamp: 2000, TrackID: "7", HandType: motion.HandRight, Values: []float64{4, 5, 6}},
		{DeviceTimestamp: 3000, TrackID: "8", HandType: motion.HandLeft, Values: []float64{7, 8, 9}},
	}
	if diff := cmp.Diff(want, samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestReadSamples_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing hand_type", "timestamp,hand_id,x\n1,1,1\n"},
		{"missing timestamp", "hand_id,hand_type,x\n1,left,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadSamples(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestReadSamples_HeaderOnly(t *testing.T) {
	samples, schema, err := ReadSamples(strings.NewReader("timestamp,hand_id,hand_type,a_x,a_y,a_z\n"))
	require.NoError(t, err)
	assert.Empty(t, samples)
	assert.Equal(t, 3, schema.Len())
}

func TestReadCalibration(t *testing.T) {
	input := "leap_timestamp,system_timestamp\n2000000,1970-01-01T00:00:10\n5,1970-01-01T00:00:20\n"
	cal, err := ReadCalibration(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, &motion.Calibration{DeviceTimestamp: 2000000, HostTimestamp: 10, Present: true}, cal)
}

func TestReadCalibration_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no rows", "leap_timestamp,system_timestamp\n"},
		{"missing column", "leap_timestamp\n5\n"},
		{"bad device", "leap_timestamp,system_timestamp\nx,1970-01-01T00:00:10\n"},
		{"bad host", "leap_timestamp,system_timestamp\n5,yesterday\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCalibration(strings.NewReader(tt.input))
			var calErr *motion.CalibrationError
			assert.True(t, errors.As(err, &calErr), "want CalibrationError, got %v", err)
		})
	}
}

func TestReadTrials(t *testing.T) {
	input := `,name,start,stop,timestamp,is_success
0,Calibration,1,2,1.5,True
1,Reach and Grasp 1,10,12,11,True
2,Reach and Grasp 2,20,22,21,False
`
	trials, err := ReadTrials(strings.NewReader(input))
	require.NoError(t, err)

	want := []motion.Trial{
		{Name: "Calibration", Start: 1, Stop: 2, Tone: 1.5, IsSuccess: true},
		{Name: "Reach and Grasp 1", Start: 10, Stop: 12, Tone: 11, IsSuccess: true},
		{Name: "Reach and Grasp 2", Start: 20, Stop: 22, Tone: 21, IsSuccess: false},
	}
	if diff := cmp.Diff(want, trials); diff != "" {
		t.Errorf("trials mismatch (-want +got):\n%s", diff)
	}

	filtered := FilterTrials(trials, DefaultTrialFilter)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Reach and Grasp 1", filtered[0].Name)
}

func TestReadTrials_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", "name,start,stop,is_success\nA,1,2,True\n"},
		{"bad start", "name,start,stop,timestamp,is_success\nA,x,2,1,True\n"},
		{"bad bool", "name,start,stop,timestamp,is_success\nA,1,2,1,maybe\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTrials(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestFilterTrials_EmptySubstring(t *testing.T) {
	trials := []motion.Trial{{Name: "a", IsSuccess: true}, {Name: "b"}}
	assert.Equal(t, []motion.Trial{{Name: "a", IsSuccess: true}}, FilterTrials(trials, ""))
}
