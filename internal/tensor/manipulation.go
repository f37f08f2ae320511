package tensor

import "github.com/pkg/errors"

// AppendRaw returns a new tensor whose last axis is a's last axis followed by
// b's. Leading axes and data types must match (see Shape.Append).
func AppendRaw(a, b *RawTensor) (*RawTensor, error) {
	if a.DType() != b.DType() {
		return nil, errors.Wrapf(ErrInvalidArgument, "append: dtype %s vs %s", a.DType(), b.DType())
	}
	shape, err := a.Shape().Append(b.Shape())
	if err != nil {
		return nil, err
	}
	out, err := NewRaw(shape, a.DType())
	if err != nil {
		return nil, err
	}

	size := a.DType().Size()
	aRow := a.Shape()[len(a.Shape())-1] * size
	bRow := b.Shape()[len(b.Shape())-1] * size
	rows := a.NumElements() * size / aRow

	dst, srcA, srcB := out.Data(), a.Data(), b.Data()
	for r := 0; r < rows; r++ {
		o := r * (aRow + bRow)
		copy(dst[o:o+aRow], srcA[r*aRow:(r+1)*aRow])
		copy(dst[o+aRow:o+aRow+bRow], srcB[r*bRow:(r+1)*bRow])
	}
	return out, nil
}

// StackRaw copies equally shaped tensors into a new tensor with a leading
// axis of len(items).
func StackRaw(items []*RawTensor) (*RawTensor, error) {
	if len(items) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "stack: no tensors")
	}
	first := items[0]
	shape := append(Shape{len(items)}, first.Shape()...)
	out, err := NewRaw(shape, first.DType())
	if err != nil {
		return nil, err
	}

	rowBytes := first.ByteSize()
	dst := out.Data()
	for i, item := range items {
		if !item.Shape().Equal(first.Shape()) || item.DType() != first.DType() {
			return nil, errors.Wrapf(ErrShapeMismatch, "stack: item %d is %s%v, want %s%v",
				i, item.DType(), item.Shape(), first.DType(), first.Shape())
		}
		copy(dst[i*rowBytes:(i+1)*rowBytes], item.Data())
	}
	return out, nil
}

// GatherRows copies the given leading-axis rows of x, in order, into a new tensor.
func GatherRows(x *RawTensor, rows []int) (*RawTensor, error) {
	if len(rows) == 0 || len(x.Shape()) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "gather: no rows")
	}
	shape := x.Shape().Clone()
	shape[0] = len(rows)
	out, err := NewRaw(shape, x.DType())
	if err != nil {
		return nil, err
	}

	rowBytes := x.ByteSize() / x.Shape()[0]
	src, dst := x.Data(), out.Data()
	for i, r := range rows {
		if r < 0 || r >= x.Shape()[0] {
			return nil, errors.Wrapf(ErrInvalidArgument, "gather: row %d out of range for %v", r, x.Shape())
		}
		copy(dst[i*rowBytes:(i+1)*rowBytes], src[r*rowBytes:(r+1)*rowBytes])
	}
	return out, nil
}
