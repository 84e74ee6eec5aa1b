// Package motion owns the typed records of the hand-kinematics report
// pipeline: raw motion-capture samples, aligned rows, derived frames and
// trials.
//
// Stage packages live underneath:
//
//	ingest   - CSV readers for samples, calibration and trial events
//	clock    - device-epoch to host-epoch alignment
//	segment  - track splitting, bounded interpolation, ordered merge
//	features - distance, velocity, acceleration and smoothing
//	trials   - per-trial windowing and the video frame grid
//
// Dependency rule: stage packages may depend on motion, never on each other
// except through the types defined here. No rendering or SQL code lives
// under this tree.
package motion
