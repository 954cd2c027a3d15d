// File: array/dtype.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Element types supported by state and action fields.

package array

import "fmt"

// DType identifies the element type stored in an Array.
type DType uint8

const (
	Float32 DType = iota
	Float64
	Int32
	Int64
	Bool
)

// String implements fmt.Stringer.
func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// ParseDType maps a dtype name back to its DType.
func ParseDType(s string) (DType, error) {
	switch s {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "bool":
		return Bool, nil
	}
	return 0, fmt.Errorf("array: unknown dtype %q", s)
}

// makeSlice allocates a zeroed backing slice of n elements.
func (d DType) makeSlice(n int) any {
	switch d {
	case Float32:
		return make([]float32, n)
	case Float64:
		return make([]float64, n)
	case Int32:
		return make([]int32, n)
	case Int64:
		return make([]int64, n)
	case Bool:
		return make([]bool, n)
	}
	panic(fmt.Sprintf("array: unsupported dtype %v", d))
}

// Elem lists the Go element types an Array can hold.
type Elem interface {
	float32 | float64 | int32 | int64 | bool
}

func dtypeOf[T Elem]() DType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	default:
		return Bool
	}
}
