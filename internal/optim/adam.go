package optim

import (
	"math"

	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam combines ideas from RMSprop and momentum:
//   - Maintains exponential moving averages of gradients (first moment)
//   - Maintains exponential moving averages of squared gradients (second moment)
//   - Applies bias correction to compensate for initialization at zero
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// The timestep t counts the updates applied to each parameter.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam[B tensor.Backend] struct {
	lr    float32
	beta1 float32
	beta2 float32
	eps   float32
	t     map[nn.ParamID]int       // Timestep for bias correction
	m     map[nn.ParamID][]float32 // First moment estimates
	v     map[nn.ParamID][]float32 // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam[B tensor.Backend](config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[B]{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		t:     make(map[nn.ParamID]int),
		m:     make(map[nn.ParamID][]float32),
		v:     make(map[nn.ParamID][]float32),
	}
}

// UpdateStep performs a single Adam step on param:
//  1. Update biased first moment estimate
//  2. Update biased second moment estimate
//  3. Compute bias-corrected moment estimates
//  4. Update parameters
func (a *Adam[B]) UpdateStep(grad *tensor.Tensor[float32, B], param *nn.Parameter[B]) error {
	if err := checkGradient("adam", grad, param); err != nil {
		return err
	}
	id := param.ID()
	a.t[id]++
	t := float64(a.t[id])

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), t))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), t))

	gradData := grad.Data()
	paramData := param.Tensor().Data()
	mData := slot(a.m, id, len(paramData))
	vData := slot(a.v, id, len(paramData))

	for i := range paramData {
		g := gradData[i]
		mData[i] = a.beta1*mData[i] + (1.0-a.beta1)*g
		vData[i] = a.beta2*vData[i] + (1.0-a.beta2)*g*g

		mHat := mData[i] / biasCorrection1
		vHat := vData[i] / biasCorrection2
		paramData[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
	}
	return nil
}

// LearningRate returns the current learning rate.
func (a *Adam[B]) LearningRate() float32 {
	return a.lr
}

// SetLearningRate updates the learning rate.
func (a *Adam[B]) SetLearningRate(lr float32) {
	a.lr = lr
}

// Timestep returns how many updates were applied to the parameter with id.
func (a *Adam[B]) Timestep(id nn.ParamID) int {
	return a.t[id]
}
