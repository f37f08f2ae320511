package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// MaxAllocBytes caps a single tensor buffer. Requests above it fail with ErrAllocation.
const MaxAllocBytes = 1 << 36

// bufferAlignment is the granularity buffer sizes are rounded up to.
const bufferAlignment = 4

// ExternalOwner is the owner identity of tensors wrapping caller-supplied memory.
// No tensor ever has this identity, so external buffers are never freed or resized.
const ExternalOwner uint64 = 0

// nextID issues tensor identities in allocation order.
var nextID atomic.Uint64

func newID() uint64 {
	return nextID.Add(1)
}

// tensorBuffer is the allocation shared by an owning tensor and its views.
// views counts the outstanding borrows; the owner may not free or move the
// allocation while it is non-zero.
type tensorBuffer struct {
	data  []byte
	views atomic.Int32
	mu    sync.Mutex
}

// full returns the whole allocation, including reserved capacity.
func (tb *tensorBuffer) full() []byte {
	return tb.data[:cap(tb.data)]
}

// RawTensor is the low-level tensor representation.
//
// A RawTensor either owns its buffer (id == owner), borrows a byte range of
// another tensor's buffer (a view created by Subset or Row), or wraps memory
// supplied by the caller (owner == ExternalOwner). Only the owner may resize
// or free the buffer, and it may not do either while views are outstanding.
type RawTensor struct {
	buffer   *tensorBuffer
	shape    Shape
	stride   []int
	dtype    DataType
	elemSize int // bytes reserved per element, >= dtype.Size()
	numElems int
	offset   int // byte offset into buffer
	id       uint64
	owner    uint64
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return NewRawWithElemSize(shape, dtype, dtype.Size())
}

// NewRawWithElemSize creates a RawTensor that reserves elemSize bytes per
// element. Reserving more than dtype.Size() lets a later CastInPlace to a
// wider type reuse the allocation.
func NewRawWithElemSize(shape Shape, dtype DataType, elemSize int) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}
	if elemSize < dtype.Size() {
		return nil, errors.Wrapf(ErrInvalidArgument, "element size %d is smaller than %s (%d bytes)",
			elemSize, dtype, dtype.Size())
	}

	n := shape.NumElements()
	size, err := bufferBytes(n, elemSize)
	if err != nil {
		return nil, err
	}
	data, err := allocate(size)
	if err != nil {
		return nil, err
	}

	id := newID()
	return &RawTensor{
		buffer:   &tensorBuffer{data: data},
		shape:    shape.Clone(),
		stride:   shape.ComputeStrides(),
		dtype:    dtype,
		elemSize: elemSize,
		numElems: n,
		id:       id,
		owner:    id,
	}, nil
}

// FromBytes wraps caller-supplied memory without copying it.
// The tensor never frees or resizes data; the caller keeps it alive.
func FromBytes(data []byte, shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}
	n := shape.NumElements()
	if len(data) < n*dtype.Size() {
		return nil, errors.Wrapf(ErrInvalidArgument, "%d bytes cannot hold %v %s elements",
			len(data), shape, dtype)
	}
	return &RawTensor{
		buffer:   &tensorBuffer{data: data},
		shape:    shape.Clone(),
		stride:   shape.ComputeStrides(),
		dtype:    dtype,
		elemSize: dtype.Size(),
		numElems: n,
		id:       newID(),
		owner:    ExternalOwner,
	}, nil
}

// bufferBytes returns n*elemSize rounded up to bufferAlignment.
func bufferBytes(n, elemSize int) (int, error) {
	if n <= 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "element count %d (must be > 0)", n)
	}
	if n > MaxAllocBytes/elemSize {
		return 0, errors.Wrapf(ErrAllocation, "%d elements of %d bytes exceed %d bytes", n, elemSize, MaxAllocBytes)
	}
	size := n * elemSize
	return (size + bufferAlignment - 1) &^ (bufferAlignment - 1), nil
}

// allocate obtains a zeroed byte slice, turning a runtime refusal into ErrAllocation.
func allocate(size int) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, errors.Wrapf(ErrAllocation, "%d bytes: %v", size, r)
		}
	}()
	return make([]byte, size), nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's element strides (row-major).
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the cached element count.
func (r *RawTensor) NumElements() int {
	return r.numElems
}

// ElemSize returns the bytes reserved per element.
func (r *RawTensor) ElemSize() int {
	return r.elemSize
}

// ByteSize returns the size of the packed element data in bytes.
func (r *RawTensor) ByteSize() int {
	return r.numElems * r.dtype.Size()
}

// ID returns the tensor's own identity.
func (r *RawTensor) ID() uint64 {
	return r.id
}

// Owner returns the identity of the tensor that allocated the buffer,
// or ExternalOwner for caller-supplied memory.
func (r *RawTensor) Owner() uint64 {
	return r.owner
}

// OwnsBuffer reports whether this tensor allocated its buffer.
func (r *RawTensor) OwnsBuffer() bool {
	return r.buffer != nil && r.id == r.owner
}

// IsView reports whether this tensor borrows another tensor's buffer.
func (r *RawTensor) IsView() bool {
	return r.id != r.owner && r.owner != ExternalOwner
}

// Views returns the number of outstanding views into this tensor's buffer.
func (r *RawTensor) Views() int {
	if r.buffer == nil {
		return 0
	}
	return int(r.buffer.views.Load())
}

// Released reports whether the tensor no longer references a buffer
// (after Release or Move).
func (r *RawTensor) Released() bool {
	return r.buffer == nil || r.buffer.data == nil
}

// Data returns the raw bytes of the tensor's elements.
// WARNING: Direct access to underlying memory. Views share these bytes with their parent.
func (r *RawTensor) Data() []byte {
	if r.Released() {
		panic(fmt.Sprintf("tensor #%d: buffer released", r.id))
	}
	return r.buffer.full()[r.offset : r.offset+r.ByteSize()]
}

// asSlice reinterprets the element bytes as []T.
func asSlice[T any](r *RawTensor, want DataType) []T {
	if r.dtype != want {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, want))
	}
	data := r.Data()
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), r.numElems)
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 { return asSlice[float32](r, Float32) }

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 { return asSlice[float64](r, Float64) }

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 { return asSlice[int32](r, Int32) }

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 { return asSlice[int64](r, Int64) }

// AsUint8 interprets the data as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	if r.dtype != Uint8 {
		panic(fmt.Sprintf("tensor dtype is %s, not uint8", r.dtype))
	}
	return r.Data()
}

// AsBool interprets the data as []bool.
// Panics if the tensor's dtype is not Bool.
func (r *RawTensor) AsBool() []bool { return asSlice[bool](r, Bool) }

// AsFloat16 interprets the data as []float16.Float16.
// Panics if the tensor's dtype is not Float16.
func (r *RawTensor) AsFloat16() []float16.Float16 { return asSlice[float16.Float16](r, Float16) }

// FlatIndex maps coordinates to a flat element index (row-major, last axis fastest).
func (r *RawTensor) FlatIndex(coords ...int) (int, error) {
	if len(coords) != len(r.shape) {
		return 0, errors.Wrapf(ErrInvalidArgument, "expected %d coordinates, got %d", len(r.shape), len(coords))
	}
	idx := 0
	for i, c := range coords {
		if c < 0 || c >= r.shape[i] {
			return 0, errors.Wrapf(ErrInvalidArgument, "coordinate %d out of bounds for axis %d (size %d)", c, i, r.shape[i])
		}
		idx += c * r.stride[i]
	}
	return idx, nil
}

// Clone creates a deep copy of the RawTensor. The copy owns a fresh buffer
// with the same reserved element size.
func (r *RawTensor) Clone() *RawTensor {
	c, err := NewRawWithElemSize(r.shape, r.dtype, r.elemSize)
	if err != nil {
		panic(err) // r already passed the same validation
	}
	copy(c.Data(), r.Data())
	return c
}

// Move transfers buffer ownership to a new RawTensor and empties r.
// Outstanding views stay valid; they now borrow from the returned tensor.
func (r *RawTensor) Move() (*RawTensor, error) {
	if !r.OwnsBuffer() {
		return nil, errors.Wrapf(ErrOwnership, "tensor #%d does not own its buffer", r.id)
	}
	id := newID()
	moved := &RawTensor{
		buffer:   r.buffer,
		shape:    r.shape,
		stride:   r.stride,
		dtype:    r.dtype,
		elemSize: r.elemSize,
		numElems: r.numElems,
		id:       id,
		owner:    id,
	}
	r.buffer = nil
	r.numElems = 0
	return moved, nil
}

// Subset returns a view of shape elements starting at elemOffset.
// The view shares the parent's bytes and must be released before the
// parent's buffer can be freed or reallocated.
func (r *RawTensor) Subset(elemOffset int, shape Shape) (*RawTensor, error) {
	if r.Released() {
		return nil, errors.Wrapf(ErrOwnership, "tensor #%d: buffer released", r.id)
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "subset")
	}
	n := shape.NumElements()
	if elemOffset < 0 || elemOffset+n > r.numElems {
		return nil, errors.Wrapf(ErrInvalidArgument, "subset [%d, %d) outside %d elements",
			elemOffset, elemOffset+n, r.numElems)
	}

	r.buffer.views.Add(1)
	return &RawTensor{
		buffer:   r.buffer,
		shape:    shape.Clone(),
		stride:   shape.ComputeStrides(),
		dtype:    r.dtype,
		elemSize: r.dtype.Size(),
		numElems: n,
		offset:   r.offset + elemOffset*r.dtype.Size(),
		id:       newID(),
		owner:    r.owner,
	}, nil
}

// Row returns a view of the i-th slice along the leading axis.
// For a rank-1 tensor the view is the single element Shape{1}.
func (r *RawTensor) Row(i int) (*RawTensor, error) {
	if len(r.shape) == 0 || i < 0 || i >= r.shape[0] {
		return nil, errors.Wrapf(ErrInvalidArgument, "row %d out of range for %v", i, r.shape)
	}
	inner := r.shape[1:]
	if len(inner) == 0 {
		inner = Shape{1}
	}
	return r.Subset(i*inner.NumElements(), inner)
}

// Rows returns a view of rows [start, end) along the leading axis.
func (r *RawTensor) Rows(start, end int) (*RawTensor, error) {
	if len(r.shape) == 0 || start < 0 || end > r.shape[0] || start >= end {
		return nil, errors.Wrapf(ErrInvalidArgument, "rows [%d, %d) out of range for %v", start, end, r.shape)
	}
	shape := r.shape.Clone()
	shape[0] = end - start
	rowSize := r.numElems / r.shape[0]
	return r.Subset(start*rowSize, shape)
}

// Release drops this tensor's reference to its buffer.
//
// A view returns its borrow and never frees memory. The owner frees the
// buffer, and fails with ErrOwnership while views are still outstanding.
// Releasing an already released tensor is a no-op.
func (r *RawTensor) Release() error {
	if r.buffer == nil {
		return nil
	}
	if !r.OwnsBuffer() {
		if r.IsView() {
			r.buffer.views.Add(-1)
		}
		r.buffer = nil
		return nil
	}

	r.buffer.mu.Lock()
	defer r.buffer.mu.Unlock()
	if n := r.buffer.views.Load(); n > 0 {
		return errors.Wrapf(ErrOwnership, "tensor #%d: buffer still borrowed by %d views", r.id, n)
	}
	r.buffer.data = nil
	r.buffer = nil
	return nil
}

// Resize changes the tensor's shape and reserved element size, keeping the
// existing bytes up to the old length.
//
// The buffer grows in place while capacity allows. While views are
// outstanding the byte length may only grow within capacity: shrinking and
// reallocating are refused with ErrOwnership, so every view keeps reading
// the bytes it was created over.
func (r *RawTensor) Resize(shape Shape, elemSize int) error {
	if !r.OwnsBuffer() {
		return errors.Wrapf(ErrOwnership, "tensor #%d cannot resize a buffer it does not own", r.id)
	}
	if err := shape.Validate(); err != nil {
		return errors.Wrap(err, "resize")
	}
	if elemSize < r.dtype.Size() {
		return errors.Wrapf(ErrInvalidArgument, "element size %d is smaller than %s", elemSize, r.dtype)
	}
	size, err := bufferBytes(shape.NumElements(), elemSize)
	if err != nil {
		return err
	}

	buf := r.buffer
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if n := buf.views.Load(); n > 0 && size < len(buf.data) {
		return errors.Wrapf(ErrOwnership, "tensor #%d: shrinking would cut %d views", r.id, n)
	}
	if size <= cap(buf.data) {
		old := len(buf.data)
		buf.data = buf.data[:size]
		if size > old {
			clear(buf.data[old:size])
		}
	} else {
		if n := buf.views.Load(); n > 0 {
			return errors.Wrapf(ErrOwnership, "tensor #%d: reallocation would invalidate %d views", r.id, n)
		}
		data, err := allocate(size)
		if err != nil {
			return err
		}
		copy(data, buf.data)
		buf.data = data
	}

	r.shape = shape.Clone()
	r.stride = r.shape.ComputeStrides()
	r.numElems = r.shape.NumElements()
	r.elemSize = elemSize
	return nil
}

// Reshape replaces the shape metadata in place. The element count must not change.
func (r *RawTensor) Reshape(dims ...int) error {
	next, err := r.shape.Reshape(dims...)
	if err != nil {
		return err
	}
	r.shape = next
	r.stride = next.ComputeStrides()
	return nil
}

// Flatten collapses the shape to a single axis in place.
func (r *RawTensor) Flatten() {
	r.shape = r.shape.Flatten()
	r.stride = r.shape.ComputeStrides()
}

// Squeeze strips degenerate axes in place (see Shape.Reduce).
func (r *RawTensor) Squeeze() {
	r.shape = r.shape.Reduce()
	r.stride = r.shape.ComputeStrides()
}

// CastInPlace converts the elements to dtype inside the tensor's own buffer.
// A cast to a type wider than the reserved element size resizes the buffer.
// It is refused while views are outstanding, since they keep the old type.
func (r *RawTensor) CastInPlace(dtype DataType) error {
	if !r.OwnsBuffer() {
		return errors.Wrapf(ErrOwnership, "tensor #%d cannot cast a buffer it does not own", r.id)
	}
	if dtype == r.dtype {
		return nil
	}
	if n := r.buffer.views.Load(); n > 0 {
		return errors.Wrapf(ErrOwnership, "tensor #%d: cast would rewrite bytes under %d views", r.id, n)
	}

	src := r.Clone()
	if dtype.Size() > r.elemSize {
		if err := r.Resize(r.shape, dtype.Size()); err != nil {
			return err
		}
	}
	r.dtype = dtype
	ConvertRange(r, src, 0, r.numElems)
	return nil
}

// String returns a human-readable description of the tensor.
func (r *RawTensor) String() string {
	kind := "owned"
	switch {
	case r.owner == ExternalOwner:
		kind = "external"
	case r.IsView():
		kind = "view"
	}
	return fmt.Sprintf("RawTensor#%d[%s]%v (%s)", r.id, r.dtype, r.shape, kind)
}
