package optim

import (
	"math"

	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/tensor"
)

// Adagrad scales each element's step by the inverse root of its summed squared gradients:
//
//	acc = acc + gradient²
//	param = param - lr * gradient / (sqrt(acc) + eps)
type Adagrad[B tensor.Backend] struct {
	lr      float32
	initial float32
	eps     float32
	acc     map[nn.ParamID][]float32
}

// AdagradConfig holds configuration for Adagrad.
type AdagradConfig struct {
	LR                 float32 // Learning rate (default: 0.001)
	InitialAccumulator float32 // Starting value of the accumulators (default: 0.1)
	Eps                float32 // Term for numerical stability (default: 1e-7)
}

// NewAdagrad creates a new Adagrad optimizer.
func NewAdagrad[B tensor.Backend](config AdagradConfig) *Adagrad[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.InitialAccumulator == 0 {
		config.InitialAccumulator = 0.1
	}
	if config.Eps == 0 {
		config.Eps = 1e-7
	}
	return &Adagrad[B]{
		lr:      config.LR,
		initial: config.InitialAccumulator,
		eps:     config.Eps,
		acc:     make(map[nn.ParamID][]float32),
	}
}

// UpdateStep performs a single Adagrad step on param.
func (a *Adagrad[B]) UpdateStep(grad *tensor.Tensor[float32, B], param *nn.Parameter[B]) error {
	if err := checkGradient("adagrad", grad, param); err != nil {
		return err
	}
	gradData := grad.Data()
	paramData := param.Tensor().Data()

	acc, ok := a.acc[param.ID()]
	if !ok {
		acc = make([]float32, len(paramData))
		for i := range acc {
			acc[i] = a.initial
		}
		a.acc[param.ID()] = acc
	}

	for i := range paramData {
		g := gradData[i]
		acc[i] += g * g
		paramData[i] -= a.lr * g / (float32(math.Sqrt(float64(acc[i]))) + a.eps)
	}
	return nil
}

// LearningRate returns the current learning rate.
func (a *Adagrad[B]) LearningRate() float32 {
	return a.lr
}

// SetLearningRate updates the learning rate.
func (a *Adagrad[B]) SetLearningRate(lr float32) {
	a.lr = lr
}
