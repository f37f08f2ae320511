package optim

import (
	"math"

	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/tensor"
)

// RMSProp divides the gradient by a running root mean square of recent gradients:
//
//	v = rho * v + (1 - rho) * gradient²
//	param = param - lr * gradient / (sqrt(v) + eps)
type RMSProp[B tensor.Backend] struct {
	lr  float32
	rho float32
	eps float32
	v   map[nn.ParamID][]float32
}

// RMSPropConfig holds configuration for RMSProp.
type RMSPropConfig struct {
	LR  float32 // Learning rate (default: 0.001)
	Rho float32 // Decay of the squared-gradient average (default: 0.9)
	Eps float32 // Term for numerical stability (default: 1e-7)
}

// NewRMSProp creates a new RMSProp optimizer.
func NewRMSProp[B tensor.Backend](config RMSPropConfig) *RMSProp[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Rho == 0 {
		config.Rho = 0.9
	}
	if config.Eps == 0 {
		config.Eps = 1e-7
	}
	return &RMSProp[B]{
		lr:  config.LR,
		rho: config.Rho,
		eps: config.Eps,
		v:   make(map[nn.ParamID][]float32),
	}
}

// UpdateStep performs a single RMSProp step on param.
func (r *RMSProp[B]) UpdateStep(grad *tensor.Tensor[float32, B], param *nn.Parameter[B]) error {
	if err := checkGradient("rmsprop", grad, param); err != nil {
		return err
	}
	gradData := grad.Data()
	paramData := param.Tensor().Data()
	v := slot(r.v, param.ID(), len(paramData))

	for i := range paramData {
		g := gradData[i]
		v[i] = r.rho*v[i] + (1-r.rho)*g*g
		paramData[i] -= r.lr * g / (float32(math.Sqrt(float64(v[i]))) + r.eps)
	}
	return nil
}

// LearningRate returns the current learning rate.
func (r *RMSProp[B]) LearningRate() float32 {
	return r.lr
}

// SetLearningRate updates the learning rate.
func (r *RMSProp[B]) SetLearningRate(lr float32) {
	r.lr = lr
}
