package nn

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer.
//
// Max pooling reduces spatial dimensions by taking the maximum value
// in each window. Unlike Conv2D, MaxPool2D has no learnable parameters.
//
// Input shape:  [channels, height, width]
// Output shape: [channels, out_height, out_width]
//
// Where:
//
//	out_height = (height - kernelSize) / stride + 1
//	out_width = (width - kernelSize) / stride + 1
//
// Common configurations:
//   - 2x2 pool, stride=2: Reduces spatial dimensions by half (most common)
//   - 3x3 pool, stride=2: Aggressive downsampling
//   - 2x2 pool, stride=1: Overlapping pooling (less common)
type MaxPool2D[B tensor.Backend] struct {
	Base[B]
	kernelSize int
	stride     int
	inShape    tensor.Shape
}

// NewMaxPool2D creates a new 2D max pooling layer.
//
// Parameters:
//   - kernelSize: Size of pooling window (square)
//   - stride: Stride for pooling (typically same as kernelSize for non-overlapping)
//   - backend: Backend for computation
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}

	m := &MaxPool2D[B]{
		kernelSize: kernelSize,
		stride:     stride,
	}
	m.init(m, "max_pooling2d", backend)
	return m
}

// Build fixes the pooled output shape for a [C, H, W] input.
func (m *MaxPool2D[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return errors.Wrap(err, m.name)
	}
	if len(inputShape) != 3 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: expected [C, H, W] input, got %v", m.name, inputShape)
	}
	out := m.ComputeOutputSize(inputShape[1], inputShape[2])
	if inputShape[1] < m.kernelSize || inputShape[2] < m.kernelSize || out[0] <= 0 || out[1] <= 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: window %d does not fit input %v", m.name, m.kernelSize, inputShape)
	}
	m.inShape = inputShape.Clone()
	m.setOutputShape(tensor.Shape{inputShape[0], out[0], out[1]})
	return nil
}

// Forward takes the maximum of each pooling window.
func (m *MaxPool2D[B]) Forward(x *tensor.Tensor[float32, B], _ bool) (*tensor.Tensor[float32, B], error) {
	if err := m.checkInput(x, m.inShape); err != nil {
		return nil, err
	}
	y, _, err := x.MaxPool2D(m.kernelSize, m.stride)
	if err != nil {
		return nil, errors.Wrap(err, m.name)
	}
	return y, nil
}

// Backward routes each output gradient to the input position that won its
// window. The winners are recomputed from x, so no state is kept between passes.
func (m *MaxPool2D[B]) Backward(x, _, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := m.checkInput(gradY, m.outputShape); err != nil {
		return nil, err
	}
	_, idx, err := x.MaxPool2D(m.kernelSize, m.stride)
	if err != nil {
		return nil, errors.Wrap(err, m.name)
	}
	gradX, err := x.MaxPool2DBackward(gradY, idx)
	if err != nil {
		return nil, errors.Wrap(err, m.name)
	}
	return gradX, nil
}

// String returns a string representation of the layer.
func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2D(kernel_size=%d, stride=%d)", m.kernelSize, m.stride)
}

// ComputeOutputSize computes output spatial dimensions for given input size.
//
// Returns: [out_height, out_width].
func (m *MaxPool2D[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	outH := (inputH-m.kernelSize)/m.stride + 1
	outW := (inputW-m.kernelSize)/m.stride + 1
	return [2]int{outH, outW}
}
