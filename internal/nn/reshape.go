package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Reshape changes the shape of each element without touching its values.
// Flatten is a Reshape to a single axis.
type Reshape[B tensor.Backend] struct {
	Base[B]
	target  tensor.Shape // nil for Flatten
	inShape tensor.Shape
}

// NewReshape creates a layer reshaping elements to target.
func NewReshape[B tensor.Backend](target tensor.Shape, backend B) *Reshape[B] {
	r := &Reshape[B]{target: target.Clone()}
	r.init(r, "reshape", backend)
	return r
}

// NewFlatten creates a layer collapsing elements to one axis.
func NewFlatten[B tensor.Backend](backend B) *Reshape[B] {
	r := &Reshape[B]{}
	r.init(r, "flatten", backend)
	return r
}

// Build checks that the target holds as many elements as inputShape.
func (r *Reshape[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return errors.Wrap(err, r.name)
	}
	out := inputShape.Flatten()
	if r.target != nil {
		var err error
		if out, err = inputShape.Reshape(r.target...); err != nil {
			return errors.Wrap(err, r.name)
		}
	}
	r.inShape = inputShape.Clone()
	r.setOutputShape(out)
	return nil
}

// Forward returns a reshaped copy of x.
func (r *Reshape[B]) Forward(x *tensor.Tensor[float32, B], _ bool) (*tensor.Tensor[float32, B], error) {
	if err := r.checkInput(x, r.inShape); err != nil {
		return nil, err
	}
	return x.Reshape(r.outputShape...)
}

// Backward reshapes gradY back to the input shape.
func (r *Reshape[B]) Backward(_, _, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := r.checkInput(gradY, r.outputShape); err != nil {
		return nil, err
	}
	return gradY.Reshape(r.inShape...)
}
