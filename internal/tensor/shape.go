package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Shape represents the dimensions of a tensor, outermost axis first.
type Shape []int

// NumElements returns the total number of elements in the tensor.
// The product over an empty shape is 1; tensors still reject empty shapes.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape can describe a tensor: at least one axis and
// every dimension > 0.
func (s Shape) Validate() error {
	if len(s) == 0 {
		return errors.Wrap(ErrInvalidArgument, "empty shape")
	}
	for i, dim := range s {
		if dim <= 0 {
			return errors.Wrapf(ErrInvalidArgument, "dimension at index %d is %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i,
// so the last axis varies fastest.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// SubShape returns the axes in the inclusive range [start, end].
// Indices are wrapped modulo the rank, so -1 names the last axis.
//
// Example:
//
//	Shape{2, 3, 4}.SubShape(1, -1) // Shape{3, 4}
func (s Shape) SubShape(start, end int) Shape {
	if len(s) == 0 {
		return Shape{}
	}
	start = wrapAxis(start, len(s))
	end = wrapAxis(end, len(s))
	if start > end {
		return Shape{}
	}
	return s[start : end+1].Clone()
}

// Reduce strips axes of extent 0 or 1.
// A shape made only of degenerate axes reduces to Shape{1}.
func (s Shape) Reduce() Shape {
	out := s.Clone()
	for {
		erased := false
		for i, dim := range out {
			if dim <= 1 {
				out = append(out[:i], out[i+1:]...)
				erased = true
				break
			}
		}
		if !erased {
			break
		}
	}
	if len(out) == 0 {
		return Shape{1}
	}
	return out
}

// Flatten collapses the shape to a single axis holding every element.
func (s Shape) Flatten() Shape {
	return Shape{s.NumElements()}
}

// Reshape returns dims as a Shape when it holds the same number of elements.
func (s Shape) Reshape(dims ...int) (Shape, error) {
	next := Shape(dims).Clone()
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if next.NumElements() != s.NumElements() {
		return nil, errors.Wrapf(ErrShapeMismatch, "cannot reshape %v (%d elements) to %v (%d elements)",
			s, s.NumElements(), next, next.NumElements())
	}
	return next, nil
}

// Append grows the last axis by the last extent of other.
//
// This is not general concatenation: both shapes must have the same rank and
// identical leading axes, and only the last axis ever grows.
func (s Shape) Append(other Shape) (Shape, error) {
	if len(s) == 0 || len(s) != len(other) || !s[:len(s)-1].Equal(other[:len(other)-1]) {
		return nil, shapeMismatch("append", s, other)
	}
	out := s.Clone()
	out[len(out)-1] += other[len(other)-1]
	return out, nil
}

// String renders the shape as [d0 d1 ...].
func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}

// wrapAxis maps a possibly negative or overflowing axis index into [0, rank).
func wrapAxis(axis, rank int) int {
	axis %= rank
	if axis < 0 {
		axis += rank
	}
	return axis
}
