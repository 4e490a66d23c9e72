// Package tensor provides the flat N-D array type carried through the
// dataset build. A Tensor is a contiguous buffer plus a shape; the first
// axis is the row (selected mesh node) dimension and everything after it
// is the trailing shape, which must agree across fragments of the same key.
package tensor

import "fmt"

// Dtype identifies the element type of a Tensor.
type Dtype uint8

const (
	Float64 Dtype = iota
	Int64
)

func (d Dtype) String() string {
	switch d {
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	default:
		return fmt.Sprintf("dtype(%d)", d)
	}
}

// Tensor is a flat, row-major N-D array. Exactly one of Floats or Ints is
// set, matching Dtype. A nil Shape marks a bare scalar fragment, which
// stacks into a 1-D tensor on concatenation.
type Tensor struct {
	Shape  []int
	Floats []float64
	Ints   []int64
	scalar bool
}

// FromFloats wraps a float64 buffer with the given shape. The buffer is
// not copied; callers hand over ownership.
func FromFloats(data []float64, shape ...int) Tensor {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return Tensor{Shape: shape, Floats: data}
}

// FromInts wraps an int64 buffer with the given shape.
func FromInts(data []int64, shape ...int) Tensor {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return Tensor{Shape: shape, Ints: data}
}

// Scalar returns a scalar float64 fragment.
func Scalar(v float64) Tensor {
	return Tensor{Shape: []int{1}, Floats: []float64{v}, scalar: true}
}

// Dtype reports the element type.
func (t Tensor) Dtype() Dtype {
	if t.Ints != nil {
		return Int64
	}
	return Float64
}

// IsScalar reports whether the tensor was produced as a bare scalar.
func (t Tensor) IsScalar() bool { return t.scalar }

// Rows returns the length of the first axis.
func (t Tensor) Rows() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

// Trailing returns shape[1:], the per-row shape shared by all fragments
// of a key.
func (t Tensor) Trailing() []int {
	if len(t.Shape) <= 1 {
		return nil
	}
	return t.Shape[1:]
}

// ElemsPerRow returns the number of elements contributed by one row.
func (t Tensor) ElemsPerRow() int {
	n := 1
	for _, d := range t.Trailing() {
		n *= d
	}
	return n
}

// Len returns the total element count.
func (t Tensor) Len() int {
	if t.Ints != nil {
		return len(t.Ints)
	}
	return len(t.Floats)
}

// sameTrailing reports whether two trailing shapes are identical.
func sameTrailing(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Concat combines ordered fragments of one key into a single tensor.
// Multi-element fragments are concatenated along axis 0; a run of scalar
// fragments stacks into a 1-D tensor preserving fragment order. Fragments
// disagreeing on dtype or trailing shape cannot be aligned and fail.
func Concat(fragments []Tensor) (Tensor, error) {
	if len(fragments) == 0 {
		return Tensor{Shape: []int{0}, Floats: []float64{}}, nil
	}

	first := fragments[0]
	rows := 0
	for i, f := range fragments {
		if f.Dtype() != first.Dtype() {
			return Tensor{}, fmt.Errorf("fragment %d has dtype %s, want %s", i, f.Dtype(), first.Dtype())
		}
		if !f.scalar && !first.scalar && !sameTrailing(f.Trailing(), first.Trailing()) {
			return Tensor{}, fmt.Errorf("fragment %d has trailing shape %v, want %v", i, f.Trailing(), first.Trailing())
		}
		rows += f.Rows()
	}

	shape := append([]int{rows}, first.Trailing()...)
	if first.Dtype() == Int64 {
		out := make([]int64, 0, rows*first.ElemsPerRow())
		for _, f := range fragments {
			out = append(out, f.Ints...)
		}
		return Tensor{Shape: shape, Ints: out}, nil
	}
	out := make([]float64, 0, rows*first.ElemsPerRow())
	for _, f := range fragments {
		out = append(out, f.Floats...)
	}
	return Tensor{Shape: shape, Floats: out}, nil
}
