// File: array/array.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Array is a row-major typed buffer. Slices share storage with their parent,
// so a slot handed to a worker writes straight into the batch it belongs to.

package array

import "fmt"

// Array holds rows of a single field. The zero value is an empty array.
type Array struct {
	spec    ShapeSpec // batched: Shape[0] is the row count
	rowSize int
	data    any // []float32, []float64, []int32, []int64 or []bool
}

// New allocates a zeroed array of rows rows for spec.
func New(spec ShapeSpec, rows int) Array {
	if rows < 0 {
		panic(fmt.Sprintf("array: negative row count %d", rows))
	}
	rs := spec.RowSize()
	return Array{spec: spec.Batch(rows), rowSize: rs, data: spec.DType.makeSlice(rows * rs)}
}

// Of wraps values as an array with the given row shape. len(values) must be a
// multiple of the row size.
func Of[T Elem](name string, rowShape []int, values []T) (Array, error) {
	spec := ShapeSpec{Name: name, DType: dtypeOf[T](), Shape: append([]int(nil), rowShape...)}
	rs := spec.RowSize()
	if rs <= 0 || len(values)%rs != 0 {
		return Array{}, fmt.Errorf("array: %d values do not fill rows of %d for %q", len(values), rs, name)
	}
	return Array{spec: spec.Batch(len(values) / rs), rowSize: rs, data: values}, nil
}

// MustOf is Of that panics on a shape mismatch.
func MustOf[T Elem](name string, rowShape []int, values []T) Array {
	a, err := Of(name, rowShape, values)
	if err != nil {
		panic(err)
	}
	return a
}

// Spec returns the batched spec of a.
func (a Array) Spec() ShapeSpec { return a.spec }

// Name returns the field name.
func (a Array) Name() string { return a.spec.Name }

// DType returns the element type.
func (a Array) DType() DType { return a.spec.DType }

// Rows returns the number of rows.
func (a Array) Rows() int {
	if len(a.spec.Shape) == 0 {
		return 0
	}
	return a.spec.Shape[0]
}

// RowSize returns the number of elements per row.
func (a Array) RowSize() int { return a.rowSize }

// Len returns the total number of elements.
func (a Array) Len() int { return a.Rows() * a.rowSize }

// Slice returns rows [start, end) sharing storage with a.
func (a Array) Slice(start, end int) Array {
	if start < 0 || end < start || end > a.Rows() {
		panic(fmt.Sprintf("array: slice [%d:%d] out of range for %q with %d rows", start, end, a.spec.Name, a.Rows()))
	}
	if a.data == nil {
		return a
	}
	lo, hi := start*a.rowSize, end*a.rowSize
	out := a
	out.spec.Shape = append([]int{end - start}, a.spec.Shape[1:]...)
	switch d := a.data.(type) {
	case []float32:
		out.data = d[lo:hi:hi]
	case []float64:
		out.data = d[lo:hi:hi]
	case []int32:
		out.data = d[lo:hi:hi]
	case []int64:
		out.data = d[lo:hi:hi]
	case []bool:
		out.data = d[lo:hi:hi]
	}
	return out
}

// Truncate keeps the first rows rows.
func (a Array) Truncate(rows int) Array { return a.Slice(0, rows) }

// Row returns row i.
func (a Array) Row(i int) Array { return a.Slice(i, i+1) }

// Zero clears every element.
func (a Array) Zero() {
	switch d := a.data.(type) {
	case []float32:
		clear(d)
	case []float64:
		clear(d)
	case []int32:
		clear(d)
	case []int64:
		clear(d)
	case []bool:
		clear(d)
	}
}

// Clone returns a deep copy of a.
func (a Array) Clone() Array {
	out := a
	out.spec.Shape = append([]int(nil), a.spec.Shape...)
	switch d := a.data.(type) {
	case []float32:
		out.data = append([]float32(nil), d...)
	case []float64:
		out.data = append([]float64(nil), d...)
	case []int32:
		out.data = append([]int32(nil), d...)
	case []int64:
		out.data = append([]int64(nil), d...)
	case []bool:
		out.data = append([]bool(nil), d...)
	}
	return out
}

// Float32s returns the backing storage; it panics if a is not Float32.
func (a Array) Float32s() []float32 { return values[float32](a) }

// Float64s returns the backing storage; it panics if a is not Float64.
func (a Array) Float64s() []float64 { return values[float64](a) }

// Int32s returns the backing storage; it panics if a is not Int32.
func (a Array) Int32s() []int32 { return values[int32](a) }

// Int64s returns the backing storage; it panics if a is not Int64.
func (a Array) Int64s() []int64 { return values[int64](a) }

// Bools returns the backing storage; it panics if a is not Bool.
func (a Array) Bools() []bool { return values[bool](a) }

// Values returns the backing storage of a as []T.
func Values[T Elem](a Array) []T { return values[T](a) }

func values[T Elem](a Array) []T {
	if a.data == nil {
		return nil
	}
	v, ok := a.data.([]T)
	if !ok {
		var zero T
		panic(fmt.Sprintf("array: field %q is %v, not %T", a.spec.Name, a.spec.DType, zero))
	}
	return v
}

// Float64At converts element i to float64 regardless of dtype.
func (a Array) Float64At(i int) float64 {
	switch d := a.data.(type) {
	case []float32:
		return float64(d[i])
	case []float64:
		return d[i]
	case []int32:
		return float64(d[i])
	case []int64:
		return float64(d[i])
	case []bool:
		if d[i] {
			return 1
		}
		return 0
	}
	panic(fmt.Sprintf("array: field %q has no storage", a.spec.Name))
}
