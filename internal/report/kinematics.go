package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// KinematicsWriter wraps csv.Writer for the derived per-trial table.
type KinematicsWriter struct {
	w      *csv.Writer
	schema *motion.Schema
}

// NewKinematicsWriter creates a writer for frames described by schema.
func NewKinematicsWriter(w io.Writer, schema *motion.Schema) *KinematicsWriter {
	return &KinematicsWriter{w: csv.NewWriter(w), schema: schema}
}

// Header returns the column names in output order.
func (k *KinematicsWriter) Header() []string {
	header := []string{"timestamp", "hand_id", "hand_type"}
	header = append(header, k.schema.Names()...)
	return append(header, "original", "distance", "velocity", "acceleration")
}

// Write emits the header and one record per frame, then flushes.
func (k *KinematicsWriter) Write(frames motion.Frames) error {
	if err := k.w.Write(k.Header()); err != nil {
		return fmt.Errorf("write kinematics header: %w", err)
	}
	record := make([]string, 0, k.schema.Len()+7)
	for i, f := range frames {
		record = record[:0]
		record = append(record, formatFloat(f.Timestamp), f.TrackID, string(f.HandType))
		for _, v := range f.Values {
			record = append(record, formatFloat(v))
		}
		record = append(record,
			strconv.FormatBool(f.Original),
			formatFloat(f.Distance),
			formatFloat(f.Velocity),
			formatFloat(f.Acceleration),
		)
		if err := k.w.Write(record); err != nil {
			return fmt.Errorf("write kinematics row %d: %w", i, err)
		}
	}
	k.w.Flush()
	if err := k.w.Error(); err != nil {
		return fmt.Errorf("flush kinematics: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
