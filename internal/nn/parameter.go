package nn

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// ParamID is the stable handle of a parameter. It is issued once when a
// layer builds the parameter and is what optimizers key their state by.
type ParamID uint64

var nextParamID atomic.Uint64

func newParamID() ParamID {
	return ParamID(nextParamID.Add(1))
}

// Parameter represents a tensor owned by a layer: either a trainable weight
// updated by the optimizer or a non-trainable variable (moving statistics).
//
// Example:
//
//	weight := nn.NewParameter("kernel", weightTensor)
//
//	// Access the tensor
//	w := weight.Tensor()
//
//	// Get accumulated gradient after backward pass
//	grad := weight.Grad()
type Parameter[B tensor.Backend] struct {
	id        ParamID
	name      string                     // Parameter name (e.g., "kernel", "bias")
	tensor    *tensor.Tensor[float32, B] // The parameter tensor
	grad      *tensor.Tensor[float32, B] // Accumulated gradient, nil until the first backward pass
	trainable bool
}

// NewParameter creates a trainable parameter with a fresh ParamID.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		id:        newParamID(),
		name:      name,
		tensor:    t,
		trainable: true,
	}
}

// NewVariable creates a non-trainable parameter with a fresh ParamID.
func NewVariable[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	p := NewParameter(name, t)
	p.trainable = false
	return p
}

// ID returns the parameter handle.
func (p *Parameter[B]) ID() ParamID {
	return p.id
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Trainable reports whether optimizers update this parameter.
func (p *Parameter[B]) Trainable() bool {
	return p.trainable
}

// NumElements returns the parameter's element count.
func (p *Parameter[B]) NumElements() int {
	return p.tensor.NumElements()
}

// Grad returns the accumulated gradient.
//
// Returns nil if no gradient has been computed yet (before backward pass).
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.grad
}

// SetGrad replaces the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) {
	p.grad = grad
}

// AccumulateGrad adds g into the parameter gradient.
func (p *Parameter[B]) AccumulateGrad(g *tensor.Tensor[float32, B]) error {
	if !g.Shape().Equal(p.tensor.Shape()) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "parameter %s: gradient %v, parameter %v",
			p.name, g.Shape(), p.tensor.Shape())
	}
	if p.grad == nil {
		p.grad = g.Clone()
		return nil
	}
	return p.grad.AddInPlace(g)
}

// ZeroGrad clears the gradient tensor.
//
// The model calls this before each batch so gradients from previous
// batches are not accumulated.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

// Load copies values into the parameter tensor. The shape must match.
func (p *Parameter[B]) Load(values *tensor.RawTensor) error {
	if !values.Shape().Equal(p.tensor.Shape()) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "parameter %s: loading %v into %v",
			p.name, values.Shape(), p.tensor.Shape())
	}
	if values.DType() != tensor.Float32 {
		return errors.Wrapf(tensor.ErrUnsupportedDType, "parameter %s: loading %s", p.name, values.DType())
	}
	copy(p.tensor.Data(), values.AsFloat32())
	return nil
}
