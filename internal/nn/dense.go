package nn

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Dense implements a fully connected layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is one element with shape [in_features] or [rows, in_features]
//   - W is the kernel with shape [units, in_features]
//   - b is the bias vector with shape [units]
//   - y has the input's shape with the last axis replaced by units
//
// Kernels are initialized with Xavier/Glorot unless SetInitializer is used.
// Biases are initialized to zeros.
//
// Example:
//
//	backend := cpu.New()
//	in := nn.NewInput(tensor.Shape{784}, backend)
//	dense := nn.NewDense(128, true, backend)
//	err := dense.SetInputs(in) // kernel: [128, 784]
type Dense[B tensor.Backend] struct {
	Base[B]
	units      int
	useBias    bool
	kernelInit Initializer
	inShape    tensor.Shape

	kernel *Parameter[B] // [units, in_features]
	bias   *Parameter[B] // [units] or nil
}

// NewDense creates a Dense layer with the given number of output units.
// Panics if units <= 0.
func NewDense[B tensor.Backend](units int, useBias bool, backend B) *Dense[B] {
	if units <= 0 {
		panic(fmt.Sprintf("dense: invalid units %d", units))
	}
	d := &Dense[B]{
		units:      units,
		useBias:    useBias,
		kernelInit: XavierUniform(nil),
	}
	d.init(d, "dense", backend)
	return d
}

// SetInitializer replaces the kernel initializer used by the next Build.
func (d *Dense[B]) SetInitializer(init Initializer) *Dense[B] {
	d.kernelInit = init
	return d
}

// Build creates the kernel and bias for inputShape.
func (d *Dense[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return errors.Wrap(err, d.name)
	}
	if len(inputShape) > 2 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: input must be [features] or [rows, features], got %v",
			d.name, inputShape)
	}
	in := inputShape[len(inputShape)-1]

	d.kernel = NewParameter("kernel", initialized(d.kernelInit, in, d.units, tensor.Shape{d.units, in}, d.backend))
	d.bias = nil
	if d.useBias {
		d.bias = NewParameter("bias", tensor.Zeros[float32](tensor.Shape{d.units}, d.backend))
	}

	d.inShape = inputShape.Clone()
	out := inputShape.Clone()
	out[len(out)-1] = d.units
	d.setOutputShape(out)
	return nil
}

// rows returns the number of feature rows in one element.
func (d *Dense[B]) rows() int {
	return d.inShape.NumElements() / d.inShape[len(d.inShape)-1]
}

// Forward computes y = x @ W.T + b for one element.
func (d *Dense[B]) Forward(x *tensor.Tensor[float32, B], _ bool) (*tensor.Tensor[float32, B], error) {
	if err := d.checkInput(x, d.inShape); err != nil {
		return nil, err
	}
	in := d.inShape[len(d.inShape)-1]

	x2, err := x.Reshape(d.rows(), in)
	if err != nil {
		return nil, err
	}
	wT, err := d.kernel.Tensor().Transpose() // [in_features, units]
	if err != nil {
		return nil, err
	}
	y, err := x2.MatMul(wT) // [rows, units]
	if err != nil {
		return nil, errors.Wrap(err, d.name)
	}

	if d.bias != nil {
		b := d.bias.Tensor().Data()
		out := y.Data()
		for r := 0; r < d.rows(); r++ {
			row := out[r*d.units : (r+1)*d.units]
			for j := range row {
				row[j] += b[j]
			}
		}
	}
	return y.Reshape(d.outputShape...)
}

// Backward returns dL/dx = dL/dy @ W and accumulates dL/dW = dL/dy.T @ x
// and dL/db = sum over rows of dL/dy.
func (d *Dense[B]) Backward(x, _, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := d.checkInput(gradY, d.outputShape); err != nil {
		return nil, err
	}
	in := d.inShape[len(d.inShape)-1]
	rows := d.rows()

	g2, err := gradY.Reshape(rows, d.units)
	if err != nil {
		return nil, err
	}
	x2, err := x.Reshape(rows, in)
	if err != nil {
		return nil, err
	}

	gT, err := g2.Transpose()
	if err != nil {
		return nil, err
	}
	dW, err := gT.MatMul(x2) // [units, in_features]
	if err != nil {
		return nil, errors.Wrap(err, d.name)
	}
	if err := d.kernel.AccumulateGrad(dW); err != nil {
		return nil, err
	}

	if d.bias != nil {
		db := tensor.Zeros[float32](tensor.Shape{d.units}, d.backend)
		sum, g := db.Data(), g2.Data()
		for r := 0; r < rows; r++ {
			for j := 0; j < d.units; j++ {
				sum[j] += g[r*d.units+j]
			}
		}
		if err := d.bias.AccumulateGrad(db); err != nil {
			return nil, err
		}
	}

	gradX, err := g2.MatMul(d.kernel.Tensor()) // [rows, in_features]
	if err != nil {
		return nil, errors.Wrap(err, d.name)
	}
	return gradX.Reshape(d.inShape...)
}

// TrainableWeights returns [kernel, bias] if bias is present, otherwise [kernel].
func (d *Dense[B]) TrainableWeights() []*Parameter[B] {
	if d.kernel == nil {
		return nil
	}
	if d.bias != nil {
		return []*Parameter[B]{d.kernel, d.bias}
	}
	return []*Parameter[B]{d.kernel}
}

// Kernel returns the kernel parameter.
func (d *Dense[B]) Kernel() *Parameter[B] {
	return d.kernel
}

// Bias returns the bias parameter, nil when the layer has no bias.
func (d *Dense[B]) Bias() *Parameter[B] {
	return d.bias
}

// Units returns the number of output units.
func (d *Dense[B]) Units() int {
	return d.units
}

// String returns a string representation of the layer.
func (d *Dense[B]) String() string {
	return fmt.Sprintf("Dense(units=%d, bias=%v)", d.units, d.useBias)
}
