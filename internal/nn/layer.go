// Package nn implements the layers, parameters and losses of the strata
// training engine.
//
// This package provides the building blocks of a layer graph:
//   - Layer interface: named graph node with forward and backward transforms
//   - Parameter: trainable weights and non-trainable variables with stable IDs
//   - Layers: Input, Dense, Conv2D, MaxPool2D, BatchNormalization, Flatten,
//     Reshape, Activation, Dropout, GaussianNoise, ActivityRegularization, Cast
//   - Losses: MSE, MAE, Huber, binary and categorical cross-entropy
//
// Layers process one batch element at a time. Batching, caching of forward
// outputs and the order of backward calls are owned by the model package.
package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Layer is the capability every graph node implements.
//
// Lifecycle: construct with hyperparameters, bind to a predecessor with
// SetInputs (which builds the layer against the predecessor's output shape),
// then call Forward and Backward any number of times.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Layer[B tensor.Backend] interface {
	// Name returns the layer name. Names are made unique by the model.
	Name() string
	SetName(name string)

	// Kind returns the variant name used as the default name prefix ("dense", "conv2d", ...).
	Kind() string

	Inputs() []Layer[B]
	Outputs() []Layer[B]
	AddOutput(next Layer[B])

	// SetInputs binds the predecessors and builds the layer against the
	// first predecessor's output shape. Every shipped layer accepts exactly
	// one predecessor except Input, which accepts none.
	SetInputs(preds ...Layer[B]) error

	// Build materializes parameters for inputShape and fixes the output shape.
	// Calling it again re-creates the parameters.
	Build(inputShape tensor.Shape) error
	Built() bool

	// OutputShape returns the shape of one output element. Nil before Build.
	OutputShape() tensor.Shape

	// Backend returns the compute backend the layer allocates on.
	Backend() B

	// Forward transforms one batch element. training enables stochastic
	// behavior (dropout, noise) and statistic updates (batch normalization).
	Forward(x *tensor.Tensor[float32, B], training bool) (*tensor.Tensor[float32, B], error)

	// Backward receives the input x and output y of one Forward call and the
	// gradient of the loss with respect to y. It returns the gradient with
	// respect to x and adds the parameter gradients into TrainableWeights.
	Backward(x, y, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error)

	// TrainableWeights returns the parameters the optimizer updates.
	TrainableWeights() []*Parameter[B]

	// Variables returns non-trainable state counted in parameter totals.
	Variables() []*Parameter[B]
}

// Base carries the graph bookkeeping shared by all layers.
// Concrete layers embed it and call init from their constructor.
type Base[B tensor.Backend] struct {
	self        Layer[B]
	name        string
	kind        string
	inputs      []Layer[B]
	outputs     []Layer[B]
	outputShape tensor.Shape
	built       bool
	backend     B
}

func (b *Base[B]) init(self Layer[B], kind string, backend B) {
	b.self = self
	b.kind = kind
	b.name = kind
	b.backend = backend
}

// Name returns the layer name.
func (b *Base[B]) Name() string { return b.name }

// SetName renames the layer.
func (b *Base[B]) SetName(name string) { b.name = name }

// Kind returns the layer variant.
func (b *Base[B]) Kind() string { return b.kind }

// Inputs returns the bound predecessors.
func (b *Base[B]) Inputs() []Layer[B] { return b.inputs }

// Outputs returns the successors that bound this layer as input.
func (b *Base[B]) Outputs() []Layer[B] { return b.outputs }

// AddOutput registers a successor.
func (b *Base[B]) AddOutput(next Layer[B]) { b.outputs = append(b.outputs, next) }

// Built reports whether Build has completed.
func (b *Base[B]) Built() bool { return b.built }

// OutputShape returns the shape of one output element.
func (b *Base[B]) OutputShape() tensor.Shape { return b.outputShape }

// Backend returns the compute backend.
func (b *Base[B]) Backend() B { return b.backend }

// TrainableWeights returns nil; layers with weights override it.
func (b *Base[B]) TrainableWeights() []*Parameter[B] { return nil }

// Variables returns nil; layers with state override it.
func (b *Base[B]) Variables() []*Parameter[B] { return nil }

// SetInputs binds exactly one predecessor and builds against its output shape.
func (b *Base[B]) SetInputs(preds ...Layer[B]) error {
	if len(preds) != 1 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: expects one input layer, got %d", b.name, len(preds))
	}
	pred := preds[0]
	if !pred.Built() {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: input layer %s is not built", b.name, pred.Name())
	}
	b.inputs = []Layer[B]{pred}
	pred.AddOutput(b.self)
	return b.self.Build(pred.OutputShape())
}

// setOutputShape marks the layer built with the given output shape.
func (b *Base[B]) setOutputShape(shape tensor.Shape) {
	b.outputShape = shape.Clone()
	b.built = true
}

// checkInput verifies that x matches the shape the layer was built for.
func (b *Base[B]) checkInput(x *tensor.Tensor[float32, B], want tensor.Shape) error {
	if !b.built {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: layer is not built", b.name)
	}
	if !x.Shape().Equal(want) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: input %v, built for %v", b.name, x.Shape(), want)
	}
	return nil
}

// newLike allocates a zeroed float32 tensor of shape on the layer's backend.
func (b *Base[B]) newLike(shape tensor.Shape) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, b.backend)
}

// Connect chains layers in order, binding each to its predecessor.
// It returns the last layer.
//
// Example:
//
//	in := nn.NewInput(tensor.Shape{2}, backend)
//	out, err := nn.Connect[B](in, nn.NewDense(4, true, backend), nn.NewReLU(backend))
func Connect[B tensor.Backend](first Layer[B], rest ...Layer[B]) (Layer[B], error) {
	prev := first
	for _, l := range rest {
		if err := l.SetInputs(prev); err != nil {
			return nil, err
		}
		prev = l
	}
	return prev, nil
}
