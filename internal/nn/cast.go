package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Cast rounds elements through another data type and back to float32,
// reproducing the precision (and range) of that type in a float32 graph.
// Casting through Float16 emulates half-precision activations.
//
// The gradient passes straight through.
type Cast[B tensor.Backend] struct {
	Base[B]
	dtype tensor.DataType
}

// NewCast creates a cast layer through dtype.
func NewCast[B tensor.Backend](dtype tensor.DataType, backend B) *Cast[B] {
	c := &Cast[B]{dtype: dtype}
	c.init(c, "cast", backend)
	return c
}

// DType returns the data type elements are rounded through.
func (c *Cast[B]) DType() tensor.DataType {
	return c.dtype
}

// Build keeps the input shape. Bool is rejected: it would erase magnitudes.
func (c *Cast[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return err
	}
	if c.dtype == tensor.Bool {
		return errors.Wrapf(tensor.ErrUnsupportedDType, "%s: cannot round through %s", c.name, c.dtype)
	}
	c.setOutputShape(inputShape)
	return nil
}

// Forward casts x to the layer's data type and back.
func (c *Cast[B]) Forward(x *tensor.Tensor[float32, B], _ bool) (*tensor.Tensor[float32, B], error) {
	if err := c.checkInput(x, c.outputShape); err != nil {
		return nil, err
	}
	narrow, err := c.backend.Cast(x.Raw(), c.dtype)
	if err != nil {
		return nil, errors.Wrap(err, c.name)
	}
	wide, err := c.backend.Cast(narrow, tensor.Float32)
	if err != nil {
		return nil, errors.Wrap(err, c.name)
	}
	return tensor.New[float32](wide, c.backend), nil
}

// Backward returns gradY unchanged.
func (c *Cast[B]) Backward(_, _, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := c.checkInput(gradY, c.outputShape); err != nil {
		return nil, err
	}
	return gradY, nil
}
