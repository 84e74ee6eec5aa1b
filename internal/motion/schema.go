package motion

import (
	"fmt"
	"strings"
)

// Schema is the ordered set of numeric channel names shared by every
// Sample, Row and Frame of one recording. Values slices are indexed by
// channel position.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema builds a schema from channel names. Duplicate names are
// rejected.
func NewSchema(names ...string) (*Schema, error) {
	s := &Schema{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, n := range names {
		if _, dup := s.index[n]; dup {
			return nil, fmt.Errorf("duplicate channel %q", n)
		}
		s.index[n] = len(s.names)
		s.names = append(s.names, n)
	}
	return s, nil
}

// MustSchema is NewSchema for fixed channel lists known to be valid.
func MustSchema(names ...string) *Schema {
	s, err := NewSchema(names...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of channels.
func (s *Schema) Len() int { return len(s.names) }

// Names returns a copy of the channel names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Index returns the position of a channel.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Point resolves three channel names to a PointRef for fast Vec3 access.
func (s *Schema) Point(x, y, z string) (PointRef, error) {
	var ref PointRef
	var ok bool
	if ref.X, ok = s.index[x]; !ok {
		return PointRef{}, fmt.Errorf("unknown channel %q", x)
	}
	if ref.Y, ok = s.index[y]; !ok {
		return PointRef{}, fmt.Errorf("unknown channel %q", y)
	}
	if ref.Z, ok = s.index[z]; !ok {
		return PointRef{}, fmt.Errorf("unknown channel %q", z)
	}
	return ref, nil
}

// Joints groups every "<prefix>_x", "<prefix>_y", "<prefix>_z" channel
// triple into a named joint, in first-seen order.
func (s *Schema) Joints() []Joint {
	var joints []Joint
	for _, n := range s.names {
		if !strings.HasSuffix(n, "_x") {
			continue
		}
		prefix := strings.TrimSuffix(n, "_x")
		ref, err := s.Point(n, prefix+"_y", prefix+"_z")
		if err != nil {
			continue
		}
		joints = append(joints, Joint{Name: prefix, Ref: ref})
	}
	return joints
}

// PointRef holds the channel positions of a 3D point.
type PointRef struct {
	X, Y, Z int
}

// At reads the point out of a Values slice.
func (p PointRef) At(values []float64) Vec3 {
	return Vec3{X: values[p.X], Y: values[p.Y], Z: values[p.Z]}
}

// Joint is a named 3D point of the tracked hand geometry.
type Joint struct {
	Name string
	Ref  PointRef
}
