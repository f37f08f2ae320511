// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/tensor"
)

// Layer is the interface every layer implements.
type Layer[B tensor.Backend] = nn.Layer[B]

// Parameter is a named tensor owned by a layer, with its gradient.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// ParamID identifies a parameter for optimizer state.
type ParamID = nn.ParamID

// NewParameter creates a trainable parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Regularizer is implemented by layers that add a penalty to the training loss.
type Regularizer = nn.Regularizer

// Connect chains layers in order and returns the last one.
//
// Example:
//
//	in := nn.NewInput(tensor.Shape{2}, backend)
//	out, err := nn.Connect[*cpu.Backend](in, nn.NewDense(4, true, backend), nn.NewReLU(backend))
func Connect[B tensor.Backend](first Layer[B], rest ...Layer[B]) (Layer[B], error) {
	return nn.Connect(first, rest...)
}

// Layers

// Input is the entry node of a layer chain.
type Input[B tensor.Backend] = nn.Input[B]

// NewInput creates an input layer for elements of the given shape.
func NewInput[B tensor.Backend](shape tensor.Shape, backend B) *Input[B] {
	return nn.NewInput(shape, backend)
}

// Dense represents a fully connected layer.
type Dense[B tensor.Backend] = nn.Dense[B]

// NewDense creates a fully connected layer with Xavier initialization.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewDense(128, true, backend)
func NewDense[B tensor.Backend](units int, useBias bool, backend B) *Dense[B] {
	return nn.NewDense(units, useBias, backend)
}

// Conv2D represents a 2D convolutional layer over [channels, height, width] elements.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a 2D convolutional layer.
//
// Example:
//
//	backend := cpu.New()
//	conv := nn.NewConv2D(32, 3, 3, 1, 1, true, backend) // filters=32, kernel=3x3, stride=1, padding=1
func NewConv2D[B tensor.Backend](filters, kernelH, kernelW, stride, padding int, useBias bool, backend B) *Conv2D[B] {
	return nn.NewConv2D(filters, kernelH, kernelW, stride, padding, useBias, backend)
}

// MaxPool2D represents a 2D max pooling layer.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D creates a 2D max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	return nn.NewMaxPool2D(kernelSize, stride, backend)
}

// Reshape changes the element shape without touching values.
type Reshape[B tensor.Backend] = nn.Reshape[B]

// NewReshape creates a layer reshaping elements to target.
func NewReshape[B tensor.Backend](target tensor.Shape, backend B) *Reshape[B] {
	return nn.NewReshape(target, backend)
}

// NewFlatten creates a layer reshaping elements to one dimension.
func NewFlatten[B tensor.Backend](backend B) *Reshape[B] {
	return nn.NewFlatten(backend)
}

// BatchNormalization normalizes each channel with moving statistics.
type BatchNormalization[B tensor.Backend] = nn.BatchNormalization[B]

// NewBatchNormalization creates a batch normalization layer (momentum 0.99, epsilon 1e-3).
func NewBatchNormalization[B tensor.Backend](backend B) *BatchNormalization[B] {
	return nn.NewBatchNormalization(backend)
}

// NewBatchNormalizationWith creates a batch normalization layer with explicit momentum and epsilon.
func NewBatchNormalizationWith[B tensor.Backend](momentum, epsilon float32, backend B) *BatchNormalization[B] {
	return nn.NewBatchNormalizationWith(momentum, epsilon, backend)
}

// Dropout zeroes a fraction of its inputs during training.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout layer with reproducible masks.
func NewDropout[B tensor.Backend](rate float32, seed int64, backend B) *Dropout[B] {
	return nn.NewDropout(rate, seed, backend)
}

// GaussianNoise adds zero-mean noise during training.
type GaussianNoise[B tensor.Backend] = nn.GaussianNoise[B]

// NewGaussianNoise creates a noise layer with the given standard deviation.
func NewGaussianNoise[B tensor.Backend](stddev float64, seed int64, backend B) *GaussianNoise[B] {
	return nn.NewGaussianNoise(stddev, seed, backend)
}

// ActivityRegularization penalizes the magnitude of its inputs.
type ActivityRegularization[B tensor.Backend] = nn.ActivityRegularization[B]

// NewActivityRegularization creates an L1/L2 activity regularization layer.
func NewActivityRegularization[B tensor.Backend](l1, l2 float32, backend B) *ActivityRegularization[B] {
	return nn.NewActivityRegularization(l1, l2, backend)
}

// Cast converts elements to another data type in the forward pass.
type Cast[B tensor.Backend] = nn.Cast[B]

// NewCast creates a cast layer.
func NewCast[B tensor.Backend](dtype tensor.DataType, backend B) *Cast[B] {
	return nn.NewCast(dtype, backend)
}

// Activation functions

// Activation applies an element-wise function or softmax.
type Activation[B tensor.Backend] = nn.Activation[B]

// ActivationKind selects the function of an Activation layer.
type ActivationKind = nn.ActivationKind

// Activation kinds.
const (
	Linear    = nn.Linear
	ReLU      = nn.ReLU
	LeakyReLU = nn.LeakyReLU
	Sigmoid   = nn.Sigmoid
	Tanh      = nn.Tanh
	Softmax   = nn.Softmax
)

// NewActivation creates an activation layer of the given kind.
func NewActivation[B tensor.Backend](fn ActivationKind, backend B) *Activation[B] {
	return nn.NewActivation(fn, backend)
}

// NewReLU creates a ReLU activation: f(x) = max(0, x).
func NewReLU[B tensor.Backend](backend B) *Activation[B] {
	return nn.NewReLU(backend)
}

// NewLeakyReLU creates a leaky ReLU with the given negative slope.
func NewLeakyReLU[B tensor.Backend](alpha float32, backend B) *Activation[B] {
	return nn.NewLeakyReLU(alpha, backend)
}

// NewSigmoid creates a sigmoid activation: f(x) = 1 / (1 + exp(-x)).
func NewSigmoid[B tensor.Backend](backend B) *Activation[B] {
	return nn.NewSigmoid(backend)
}

// NewTanh creates a tanh activation.
func NewTanh[B tensor.Backend](backend B) *Activation[B] {
	return nn.NewTanh(backend)
}

// NewSoftmax creates a softmax over the last axis.
func NewSoftmax[B tensor.Backend](backend B) *Activation[B] {
	return nn.NewSoftmax(backend)
}

// Loss functions

// Loss computes a batch loss and its per-element derivative.
type Loss[B tensor.Backend] = nn.Loss[B]

// NewMSELoss creates a mean squared error loss.
func NewMSELoss[B tensor.Backend]() Loss[B] {
	return nn.NewMSELoss[B]()
}

// NewMAELoss creates a mean absolute error loss.
func NewMAELoss[B tensor.Backend]() Loss[B] {
	return nn.NewMAELoss[B]()
}

// NewHuberLoss creates a Huber loss with the given threshold.
func NewHuberLoss[B tensor.Backend](delta float32) Loss[B] {
	return nn.NewHuberLoss[B](delta)
}

// NewBinaryCrossEntropyLoss creates a binary cross-entropy loss over probabilities.
func NewBinaryCrossEntropyLoss[B tensor.Backend]() Loss[B] {
	return nn.NewBinaryCrossEntropyLoss[B]()
}

// NewCategoricalCrossEntropyLoss creates a categorical cross-entropy loss
// over one-hot targets with the given number of classes.
func NewCategoricalCrossEntropyLoss[B tensor.Backend](classes int) Loss[B] {
	return nn.NewCategoricalCrossEntropyLoss[B](classes)
}

// Initialization

// Initializer fills a freshly built parameter.
type Initializer = nn.Initializer

// XavierUniform draws from U(-sqrt(6/(fan_in+fan_out)), sqrt(6/(fan_in+fan_out))).
func XavierUniform(rng *rand.Rand) Initializer {
	return nn.XavierUniform(rng)
}

// HeNormal draws from N(0, 2/fan_in).
func HeNormal(rng *rand.Rand) Initializer {
	return nn.HeNormal(rng)
}

// Constant sets every weight to v.
func Constant(v float32) Initializer {
	return nn.Constant(v)
}
