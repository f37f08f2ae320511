package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Input is the entry node of a layer chain. It is built at construction
// and passes elements through unchanged.
type Input[B tensor.Backend] struct {
	Base[B]
}

// NewInput creates an input layer for elements of the given shape.
// Panics if the shape is invalid.
func NewInput[B tensor.Backend](shape tensor.Shape, backend B) *Input[B] {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	l := &Input[B]{}
	l.init(l, "input", backend)
	l.setOutputShape(shape)
	return l
}

// SetInputs fails unless preds is empty: an input layer has no predecessors.
func (l *Input[B]) SetInputs(preds ...Layer[B]) error {
	if len(preds) != 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: input layer accepts no inputs, got %d", l.name, len(preds))
	}
	return nil
}

// Build checks that inputShape is valid and makes it the output shape.
func (l *Input[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return errors.Wrap(err, l.name)
	}
	l.setOutputShape(inputShape)
	return nil
}

// Forward returns x after checking its shape.
func (l *Input[B]) Forward(x *tensor.Tensor[float32, B], _ bool) (*tensor.Tensor[float32, B], error) {
	if err := l.checkInput(x, l.outputShape); err != nil {
		return nil, err
	}
	return x, nil
}

// Backward returns gradY unchanged.
func (l *Input[B]) Backward(_, _, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return gradY, nil
}
