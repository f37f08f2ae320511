// Package optim implements optimization algorithms that update layer
// parameters from their accumulated gradients.
//
// This package provides:
//   - Optimizer interface: per-parameter update step
//   - SGD: Stochastic Gradient Descent with momentum and Nesterov momentum
//   - Adam: Adaptive Moment Estimation
//   - RMSProp: root mean square propagation
//   - Adagrad: adaptive per-element learning rates
//
// Optimizers keep their state (velocities, moments, accumulators) keyed by
// the parameter's nn.ParamID, so the same optimizer can serve every layer
// of a model.
//
// Example usage:
//
//	opt := optim.NewAdam[*cpu.CPUBackend](optim.AdamConfig{LR: 0.001})
//
//	for _, layer := range layers {
//	    for _, p := range layer.TrainableWeights() {
//	        if err := opt.UpdateStep(p.Grad(), p); err != nil {
//	            return err
//	        }
//	    }
//	}
package optim

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
//
// Optimizers update model parameters in place based on computed gradients
// to minimize the loss function during training.
type Optimizer[B tensor.Backend] interface {
	// UpdateStep applies one update to param using grad.
	//
	// grad must have the parameter's shape. A nil gradient is rejected
	// with ErrInvalidArgument, a mismatched one with ErrShapeMismatch.
	UpdateStep(grad *tensor.Tensor[float32, B], param *nn.Parameter[B]) error

	// LearningRate returns the current learning rate.
	//
	// Useful for monitoring and learning rate scheduling.
	LearningRate() float32

	// SetLearningRate replaces the learning rate.
	SetLearningRate(lr float32)
}

// checkGradient validates an UpdateStep request.
func checkGradient[B tensor.Backend](op string, grad *tensor.Tensor[float32, B], param *nn.Parameter[B]) error {
	if param == nil {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: nil parameter", op)
	}
	if grad == nil {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: parameter %s has no gradient", op, param.Name())
	}
	if !grad.Shape().Equal(param.Tensor().Shape()) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: gradient %v for parameter %s %v",
			op, grad.Shape(), param.Name(), param.Tensor().Shape())
	}
	return nil
}

// slot returns the zero-initialized state buffer for id, creating it on first use.
func slot(state map[nn.ParamID][]float32, id nn.ParamID, n int) []float32 {
	buf, ok := state[id]
	if !ok {
		buf = make([]float32, n)
		state[id] = buf
	}
	return buf
}
