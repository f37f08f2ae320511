package nn

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Conv2D is a 2D convolutional layer over channels-first elements.
//
// Performs convolution: output = Conv2D(input, kernel) + bias
//
// Input shape:  [in_channels, height, width]
// Kernel shape: [filters, in_channels, kernel_h, kernel_w]
// Bias shape:   [filters]
// Output shape: [filters, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding - kernel_h) / stride + 1
//	out_w = (width + 2*padding - kernel_w) / stride + 1
//
// Forward and Backward delegate to the backend's Conv2D kernels; the layer
// only adds the bias and accumulates parameter gradients.
//
// Example:
//
//	// 1 channel -> 6 filters, 5x5 kernel
//	conv := nn.NewConv2D(6, 5, 5, 1, 0, true, backend)
//	err := conv.SetInputs(nn.NewInput(tensor.Shape{1, 28, 28}, backend)) // output [6, 24, 24]
type Conv2D[B tensor.Backend] struct {
	Base[B]
	filters    int
	kernelSize [2]int
	stride     int
	padding    int
	useBias    bool
	kernelInit Initializer

	inShape tensor.Shape // [C, H, W]
	outHW   [2]int

	kernel *Parameter[B] // [filters, in_channels, kernel_h, kernel_w]
	bias   *Parameter[B] // [filters] or nil
}

// NewConv2D creates a new 2D convolutional layer with Xavier initialization.
//
// Parameters:
//   - filters: Number of output channels
//   - kernelH, kernelW: Kernel dimensions
//   - stride: Stride for convolution (commonly 1 or 2)
//   - padding: Zero padding applied to each spatial border
//   - useBias: Whether to include bias term
//   - backend: Backend for computation
//
// Panics on non-positive sizes or negative padding.
func NewConv2D[B tensor.Backend](filters, kernelH, kernelW, stride, padding int, useBias bool, backend B) *Conv2D[B] {
	if filters <= 0 {
		panic(fmt.Sprintf("conv2d: invalid filters %d", filters))
	}
	if kernelH <= 0 || kernelW <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size h=%d, w=%d", kernelH, kernelW))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}

	c := &Conv2D[B]{
		filters:    filters,
		kernelSize: [2]int{kernelH, kernelW},
		stride:     stride,
		padding:    padding,
		useBias:    useBias,
		kernelInit: XavierUniform(nil),
	}
	c.init(c, "conv2d", backend)
	return c
}

// SetInitializer replaces the kernel initializer used by the next Build.
func (c *Conv2D[B]) SetInitializer(init Initializer) *Conv2D[B] {
	c.kernelInit = init
	return c
}

// Build creates the kernel for a [C, H, W] input.
func (c *Conv2D[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return errors.Wrap(err, c.name)
	}
	if len(inputShape) != 3 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: expected [C, H, W] input, got %v", c.name, inputShape)
	}
	ch, h, w := inputShape[0], inputShape[1], inputShape[2]
	out := c.ComputeOutputSize(h, w)
	if h+2*c.padding < c.kernelSize[0] || w+2*c.padding < c.kernelSize[1] || out[0] <= 0 || out[1] <= 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: kernel %v does not fit input %v", c.name, c.kernelSize, inputShape)
	}

	// fan_in = in_channels * kernel_h * kernel_w
	// fan_out = filters * kernel_h * kernel_w
	kh, kw := c.kernelSize[0], c.kernelSize[1]
	kernel := initialized(c.kernelInit, ch*kh*kw, c.filters*kh*kw, tensor.Shape{c.filters, ch, kh, kw}, c.backend)
	c.kernel = NewParameter("kernel", kernel)
	c.bias = nil
	if c.useBias {
		c.bias = NewParameter("bias", tensor.Zeros[float32](tensor.Shape{c.filters}, c.backend))
	}

	c.inShape = inputShape.Clone()
	c.outHW = out
	c.setOutputShape(tensor.Shape{c.filters, out[0], out[1]})
	return nil
}

// Forward convolves one [C, H, W] element and adds the bias of each filter
// to its output plane.
func (c *Conv2D[B]) Forward(x *tensor.Tensor[float32, B], _ bool) (*tensor.Tensor[float32, B], error) {
	if err := c.checkInput(x, c.inShape); err != nil {
		return nil, err
	}
	y, err := x.Conv2D(c.kernel.Tensor(), c.stride, c.padding)
	if err != nil {
		return nil, errors.Wrap(err, c.name)
	}

	if c.bias != nil {
		positions := c.outHW[0] * c.outHW[1]
		b, out := c.bias.Tensor().Data(), y.Data()
		for f := 0; f < c.filters; f++ {
			row := out[f*positions : (f+1)*positions]
			for i := range row {
				row[i] += b[f]
			}
		}
	}
	return y, nil
}

// Backward accumulates the kernel and bias gradients and returns dL/dx.
// The bias gradient of a filter is the sum of its output-plane gradient.
func (c *Conv2D[B]) Backward(x, _, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := c.checkInput(gradY, c.outputShape); err != nil {
		return nil, err
	}
	kernel := c.kernel.Tensor()
	dW, err := x.Conv2DKernelBackward(kernel, gradY, c.stride, c.padding)
	if err != nil {
		return nil, errors.Wrap(err, c.name)
	}
	if err := c.kernel.AccumulateGrad(dW); err != nil {
		return nil, err
	}

	if c.bias != nil {
		positions := c.outHW[0] * c.outHW[1]
		db := tensor.Zeros[float32](tensor.Shape{c.filters}, c.backend)
		sum, g := db.Data(), gradY.Data()
		for f := 0; f < c.filters; f++ {
			for _, v := range g[f*positions : (f+1)*positions] {
				sum[f] += v
			}
		}
		if err := c.bias.AccumulateGrad(db); err != nil {
			return nil, err
		}
	}

	gradX, err := x.Conv2DInputBackward(kernel, gradY, c.stride, c.padding)
	if err != nil {
		return nil, errors.Wrap(err, c.name)
	}
	return gradX, nil
}

// TrainableWeights returns [kernel, bias] if bias is present, otherwise [kernel].
func (c *Conv2D[B]) TrainableWeights() []*Parameter[B] {
	if c.kernel == nil {
		return nil
	}
	if c.bias != nil {
		return []*Parameter[B]{c.kernel, c.bias}
	}
	return []*Parameter[B]{c.kernel}
}

// Kernel returns the kernel parameter.
func (c *Conv2D[B]) Kernel() *Parameter[B] {
	return c.kernel
}

// Bias returns the bias parameter, nil when the layer has no bias.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	return c.bias
}

// String returns a string representation of the layer.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(filters=%d, kernel_size=(%d, %d), stride=%d, padding=%d, bias=%v)",
		c.filters, c.kernelSize[0], c.kernelSize[1], c.stride, c.padding, c.useBias)
}

// ComputeOutputSize computes output spatial dimensions for given input size.
//
// Returns: [out_height, out_width].
func (c *Conv2D[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	outH := (inputH+2*c.padding-c.kernelSize[0])/c.stride + 1
	outW := (inputW+2*c.padding-c.kernelSize[1])/c.stride + 1
	return [2]int{outH, outW}
}
