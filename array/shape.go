// File: array/shape.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ShapeSpec describes one named field of a state or action record.

package array

import "fmt"

// PlayerDim marks the leading dimension of a per-player field.
const PlayerDim = -1

// ShapeSpec describes a named field. Shape is the per-record shape; a leading
// PlayerDim means the field has one row per player instead of one per env.
type ShapeSpec struct {
	Name  string
	DType DType
	Shape []int
	Min   float64
	Max   float64
}

// Spec is a convenience constructor for a ShapeSpec without bounds.
func Spec(name string, dtype DType, shape ...int) ShapeSpec {
	return ShapeSpec{Name: name, DType: dtype, Shape: append([]int(nil), shape...)}
}

// IsPlayer reports whether the field is stored per player.
func (s ShapeSpec) IsPlayer() bool {
	return len(s.Shape) > 0 && s.Shape[0] == PlayerDim
}

// RowShape returns the shape of a single row.
func (s ShapeSpec) RowShape() []int {
	if s.IsPlayer() {
		return s.Shape[1:]
	}
	return s.Shape
}

// RowSize returns the number of elements in a single row.
func (s ShapeSpec) RowSize() int {
	n := 1
	for _, d := range s.RowShape() {
		n *= d
	}
	return n
}

// Batch returns a copy of s whose shape is [rows, RowShape()...].
func (s ShapeSpec) Batch(rows int) ShapeSpec {
	out := s
	row := s.RowShape()
	out.Shape = make([]int, 0, len(row)+1)
	out.Shape = append(out.Shape, rows)
	out.Shape = append(out.Shape, row...)
	return out
}

// Validate checks that every non-leading dimension is positive.
func (s ShapeSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("array: field without name")
	}
	for i, d := range s.RowShape() {
		if d <= 0 {
			return fmt.Errorf("array: field %q has invalid dimension %d at %d", s.Name, d, i)
		}
	}
	return nil
}

// String implements fmt.Stringer.
func (s ShapeSpec) String() string {
	return fmt.Sprintf("%s:%v%v", s.Name, s.DType, s.Shape)
}
