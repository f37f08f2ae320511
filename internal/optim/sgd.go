package optim

import (
	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/tensor"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// With Nesterov momentum the step looks ahead along the new velocity:
//
//	param = param - lr * (gradient + momentum * velocity)
//
// Example:
//
//	optimizer := optim.NewSGD[*cpu.CPUBackend](optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
type SGD[B tensor.Backend] struct {
	lr         float32
	momentum   float32
	nesterov   bool
	velocities map[nn.ParamID][]float32
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float32 // Learning rate (default: 0.01)
	Momentum float32 // Momentum factor (default: 0.0, range: [0, 1))
	Nesterov bool    // Use Nesterov momentum (ignored without momentum)
}

// NewSGD creates a new SGD optimizer.
//
// Parameters:
//   - config: SGD configuration (LR, Momentum, Nesterov)
//
// Returns a new SGD optimizer.
func NewSGD[B tensor.Backend](config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		lr:         config.LR,
		momentum:   config.Momentum,
		nesterov:   config.Nesterov,
		velocities: make(map[nn.ParamID][]float32),
	}
}

// UpdateStep performs a single optimization step on param.
func (s *SGD[B]) UpdateStep(grad *tensor.Tensor[float32, B], param *nn.Parameter[B]) error {
	if err := checkGradient("sgd", grad, param); err != nil {
		return err
	}
	if s.momentum == 0 {
		return s.updateParameter(param, grad)
	}
	s.updateParameterWithMomentum(param, grad)
	return nil
}

// updateParameter performs simple SGD update without momentum: param -= lr * grad.
func (s *SGD[B]) updateParameter(param *nn.Parameter[B], grad *tensor.Tensor[float32, B]) error {
	scaledGrad, err := grad.MulScalar(float64(s.lr))
	if err != nil {
		return err
	}
	return param.Tensor().SubInPlace(scaledGrad)
}

// updateParameterWithMomentum performs SGD update with (optionally Nesterov) momentum.
func (s *SGD[B]) updateParameterWithMomentum(param *nn.Parameter[B], grad *tensor.Tensor[float32, B]) {
	paramData := param.Tensor().Data()
	gradData := grad.Data()
	velocity := slot(s.velocities, param.ID(), len(paramData))

	for i := range paramData {
		velocity[i] = s.momentum*velocity[i] + gradData[i]
		step := velocity[i]
		if s.nesterov {
			step = gradData[i] + s.momentum*velocity[i]
		}
		paramData[i] -= s.lr * step
	}
}

// LearningRate returns the current learning rate.
func (s *SGD[B]) LearningRate() float32 {
	return s.lr
}

// SetLearningRate updates the learning rate.
func (s *SGD[B]) SetLearningRate(lr float32) {
	s.lr = lr
}
