package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Tensor is a generic tensor with type T and backend B.
// It provides type-safe operations over multi-dimensional arrays.
//
// Type Parameters:
//   - T: Data type (must satisfy DType constraint)
//   - B: Computation backend (must implement Backend interface)
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
//	sum, err := t.Add(t)
type Tensor[T DType, B Backend] struct {
	raw     *RawTensor
	backend B
}

// New creates a Tensor from a RawTensor and backend.
// Panics if the RawTensor's data type does not match T.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	if want := DataTypeOf[T](); raw.DType() != want {
		panic(fmt.Sprintf("tensor.New: raw tensor is %s, not %s", raw.DType(), want))
	}
	return &Tensor[T, B]{
		raw:     raw,
		backend: b,
	}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "shape %v requires %d elements, but got %d",
			shape, shape.NumElements(), len(data))
	}

	raw, err := NewRaw(shape, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}

	t := New[T, B](raw, b)
	copy(t.Data(), data)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor[T, B]) Shape() Shape {
	return t.raw.Shape()
}

// DType returns the tensor's data type.
func (t *Tensor[T, B]) DType() DataType {
	return t.raw.DType()
}

// NumElements returns the total number of elements.
func (t *Tensor[T, B]) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying RawTensor.
// Used by backend implementations for low-level operations.
func (t *Tensor[T, B]) Raw() *RawTensor {
	return t.raw
}

// Backend returns the computation backend.
func (t *Tensor[T, B]) Backend() B {
	return t.backend
}

// ID returns the identity of the underlying RawTensor.
func (t *Tensor[T, B]) ID() uint64 {
	return t.raw.ID()
}

// Data returns a typed slice view of the tensor's data.
// The slice directly accesses the underlying memory (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor[T, B]) Data() []T {
	return asSlice[T](t.raw, t.raw.DType())
}

// Item returns the value of a single-element tensor.
// Panics if the tensor holds more than one element.
func (t *Tensor[T, B]) Item() T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for single-element tensors, got shape %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at the given coordinates.
// Panics if coordinates are out of bounds.
//
// Example:
//
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
//	value := t.At(1, 2) // Row 1, column 2
func (t *Tensor[T, B]) At(coords ...int) T {
	idx, err := t.raw.FlatIndex(coords...)
	if err != nil {
		panic(err.Error())
	}
	return t.Data()[idx]
}

// Set sets the element at the given coordinates.
// Panics if coordinates are out of bounds.
func (t *Tensor[T, B]) Set(value T, coords ...int) {
	idx, err := t.raw.FlatIndex(coords...)
	if err != nil {
		panic(err.Error())
	}
	t.Data()[idx] = value
}

// String returns a human-readable representation of the tensor.
func (t *Tensor[T, B]) String() string {
	return fmt.Sprintf("Tensor[%s]%v", t.raw.DType(), t.raw.Shape())
}

// Clone creates a deep copy of the tensor. Mutating the copy never affects t.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     t.raw.Clone(),
		backend: t.backend,
	}
}

// Release drops the tensor's buffer reference (see RawTensor.Release).
func (t *Tensor[T, B]) Release() error {
	return t.raw.Release()
}

// Subset returns a view of shape elements starting at elemOffset.
// Writes through the view change t's bytes.
func (t *Tensor[T, B]) Subset(elemOffset int, shape Shape) (*Tensor[T, B], error) {
	raw, err := t.raw.Subset(elemOffset, shape)
	if err != nil {
		return nil, err
	}
	return &Tensor[T, B]{raw: raw, backend: t.backend}, nil
}

// Row returns a view of the i-th slice along the leading axis.
func (t *Tensor[T, B]) Row(i int) (*Tensor[T, B], error) {
	raw, err := t.raw.Row(i)
	if err != nil {
		return nil, err
	}
	return &Tensor[T, B]{raw: raw, backend: t.backend}, nil
}

// Rows returns a view of rows [start, end) along the leading axis.
func (t *Tensor[T, B]) Rows(start, end int) (*Tensor[T, B], error) {
	raw, err := t.raw.Rows(start, end)
	if err != nil {
		return nil, err
	}
	return &Tensor[T, B]{raw: raw, backend: t.backend}, nil
}

// Reshape returns a copy of the tensor with a new shape holding the same
// number of elements.
func (t *Tensor[T, B]) Reshape(dims ...int) (*Tensor[T, B], error) {
	if _, err := t.Shape().Reshape(dims...); err != nil {
		return nil, err
	}
	c := t.Clone()
	if err := c.raw.Reshape(dims...); err != nil {
		return nil, err
	}
	return c, nil
}

// Flatten returns a rank-1 copy of the tensor.
func (t *Tensor[T, B]) Flatten() *Tensor[T, B] {
	c := t.Clone()
	c.raw.Flatten()
	return c
}

// Append returns a new tensor with other appended along the last axis.
func (t *Tensor[T, B]) Append(other *Tensor[T, B]) (*Tensor[T, B], error) {
	raw, err := AppendRaw(t.raw, other.raw)
	if err != nil {
		return nil, err
	}
	return New[T](raw, t.backend), nil
}

// Stack copies equally shaped tensors into a new tensor with a leading axis.
func Stack[T DType, B Backend](items []*Tensor[T, B]) (*Tensor[T, B], error) {
	if len(items) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "stack: no tensors")
	}
	raws := make([]*RawTensor, len(items))
	for i, it := range items {
		raws[i] = it.raw
	}
	raw, err := StackRaw(raws)
	if err != nil {
		return nil, err
	}
	return New[T](raw, items[0].backend), nil
}

// GatherRows copies the given leading-axis rows into a new tensor.
func (t *Tensor[T, B]) GatherRows(rows []int) (*Tensor[T, B], error) {
	raw, err := GatherRows(t.raw, rows)
	if err != nil {
		return nil, err
	}
	return New[T](raw, t.backend), nil
}
