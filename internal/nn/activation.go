package nn

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// ActivationKind selects the function an Activation layer applies.
type ActivationKind int

// Supported activation functions.
const (
	Linear ActivationKind = iota
	ReLU
	LeakyReLU
	Sigmoid
	Tanh
	Softmax
)

// String returns the lower-case function name.
func (k ActivationKind) String() string {
	switch k {
	case ReLU:
		return "relu"
	case LeakyReLU:
		return "leaky_relu"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	case Softmax:
		return "softmax"
	default:
		return "linear"
	}
}

// Activation applies an element-wise function (or softmax over the last
// axis). It has no parameters and keeps the input shape.
//
// Example:
//
//	relu := nn.NewReLU(backend)
//	err := relu.SetInputs(dense)
type Activation[B tensor.Backend] struct {
	Base[B]
	fn    ActivationKind
	alpha float32 // LeakyReLU slope for x < 0
}

// NewActivation creates an activation layer of the given kind.
func NewActivation[B tensor.Backend](fn ActivationKind, backend B) *Activation[B] {
	a := &Activation[B]{fn: fn, alpha: 0.01}
	a.init(a, "activation", backend)
	return a
}

// NewReLU creates a ReLU activation: f(x) = max(0, x).
func NewReLU[B tensor.Backend](backend B) *Activation[B] { return NewActivation(ReLU, backend) }

// NewLeakyReLU creates a LeakyReLU activation: f(x) = x if x > 0, alpha*x otherwise.
func NewLeakyReLU[B tensor.Backend](alpha float32, backend B) *Activation[B] {
	a := NewActivation(LeakyReLU, backend)
	a.alpha = alpha
	return a
}

// NewSigmoid creates a sigmoid activation: σ(x) = 1 / (1 + exp(-x)).
func NewSigmoid[B tensor.Backend](backend B) *Activation[B] { return NewActivation(Sigmoid, backend) }

// NewTanh creates a tanh activation.
func NewTanh[B tensor.Backend](backend B) *Activation[B] { return NewActivation(Tanh, backend) }

// NewSoftmax creates a softmax activation over the last axis.
func NewSoftmax[B tensor.Backend](backend B) *Activation[B] { return NewActivation(Softmax, backend) }

// Function returns the activation kind.
func (a *Activation[B]) Function() ActivationKind {
	return a.fn
}

// Build keeps the input shape.
func (a *Activation[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return err
	}
	a.setOutputShape(inputShape)
	return nil
}

// Forward applies the activation to one element.
func (a *Activation[B]) Forward(x *tensor.Tensor[float32, B], _ bool) (*tensor.Tensor[float32, B], error) {
	if err := a.checkInput(x, a.outputShape); err != nil {
		return nil, err
	}
	if a.fn == Softmax {
		y, err := x.Softmax(-1)
		if err != nil {
			return nil, errors.Wrap(err, a.name)
		}
		return y, nil
	}

	y := a.newLike(a.outputShape)
	src, dst := x.Data(), y.Data()
	for i, v := range src {
		dst[i] = a.apply(v)
	}
	return y, nil
}

func (a *Activation[B]) apply(v float32) float32 {
	switch a.fn {
	case ReLU:
		return max(v, 0)
	case LeakyReLU:
		if v > 0 {
			return v
		}
		return a.alpha * v
	case Sigmoid:
		return float32(1 / (1 + math.Exp(-float64(v))))
	case Tanh:
		return float32(math.Tanh(float64(v)))
	default:
		return v
	}
}

// Backward multiplies gradY by the activation derivative, evaluated from the
// cached input x or output y, whichever is cheaper.
func (a *Activation[B]) Backward(x, y, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := a.checkInput(gradY, a.outputShape); err != nil {
		return nil, err
	}
	gradX := a.newLike(a.outputShape)
	in, out, g, dst := x.Data(), y.Data(), gradY.Data(), gradX.Data()

	switch a.fn {
	case Softmax:
		// dx_i = y_i * (g_i - sum_j g_j y_j), per row of the last axis
		n := a.outputShape[len(a.outputShape)-1]
		for r := 0; r < len(g); r += n {
			var dot float32
			for j := r; j < r+n; j++ {
				dot += g[j] * out[j]
			}
			for j := r; j < r+n; j++ {
				dst[j] = out[j] * (g[j] - dot)
			}
		}
	case ReLU:
		for i := range g {
			if in[i] > 0 {
				dst[i] = g[i]
			}
		}
	case LeakyReLU:
		for i := range g {
			if in[i] > 0 {
				dst[i] = g[i]
			} else {
				dst[i] = a.alpha * g[i]
			}
		}
	case Sigmoid:
		for i := range g {
			dst[i] = g[i] * out[i] * (1 - out[i])
		}
	case Tanh:
		for i := range g {
			dst[i] = g[i] * (1 - out[i]*out[i])
		}
	default:
		copy(dst, g)
	}
	return gradX, nil
}

// String returns a string representation of the layer.
func (a *Activation[B]) String() string {
	return "Activation(" + a.fn.String() + ")"
}
