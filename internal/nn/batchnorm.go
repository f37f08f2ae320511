package nn

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// BatchNormalization normalizes each channel (leading axis) of an element:
//
//	y = gamma * (x - moving_mean) / sqrt(moving_variance + epsilon) + beta
//
// Elements reach the layer one at a time, so normalization always uses the
// moving statistics. In training mode every element updates them first:
//
//	moving_mean     = momentum * moving_mean + (1 - momentum) * mean_c(x)
//	moving_variance = momentum * moving_variance + (1 - momentum) * mean_c((x - moving_mean)^2)
//
// gamma and beta are trainable; the moving statistics are non-trainable variables.
type BatchNormalization[B tensor.Backend] struct {
	Base[B]
	momentum float32
	epsilon  float32

	gamma        *Parameter[B] // [channels]
	beta         *Parameter[B] // [channels]
	movingMean   *Parameter[B] // [channels]
	movingVar    *Parameter[B] // [channels]
	channelWidth int           // elements per channel
}

// NewBatchNormalization creates a batch normalization layer with
// momentum 0.99 and epsilon 1e-3.
func NewBatchNormalization[B tensor.Backend](backend B) *BatchNormalization[B] {
	return NewBatchNormalizationWith(0.99, 1e-3, backend)
}

// NewBatchNormalizationWith creates a batch normalization layer with explicit
// momentum (in [0, 1)) and epsilon (> 0).
func NewBatchNormalizationWith[B tensor.Backend](momentum, epsilon float32, backend B) *BatchNormalization[B] {
	if momentum < 0 || momentum >= 1 {
		panic(fmt.Sprintf("batchnorm: invalid momentum %v", momentum))
	}
	if epsilon <= 0 {
		panic(fmt.Sprintf("batchnorm: invalid epsilon %v", epsilon))
	}
	bn := &BatchNormalization[B]{momentum: momentum, epsilon: epsilon}
	bn.init(bn, "batch_normalization", backend)
	return bn
}

// Build creates per-channel parameters for inputShape.
func (bn *BatchNormalization[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return errors.Wrap(err, bn.name)
	}
	channels := inputShape[0]
	shape := tensor.Shape{channels}
	bn.gamma = NewParameter("gamma", tensor.Ones[float32](shape, bn.backend))
	bn.beta = NewParameter("beta", tensor.Zeros[float32](shape, bn.backend))
	bn.movingMean = NewVariable("moving_mean", tensor.Zeros[float32](shape, bn.backend))
	bn.movingVar = NewVariable("moving_variance", tensor.Ones[float32](shape, bn.backend))
	bn.channelWidth = inputShape.NumElements() / channels
	bn.setOutputShape(inputShape)
	return nil
}

// invStd returns 1 / sqrt(moving_variance[c] + epsilon).
func (bn *BatchNormalization[B]) invStd(c int) float32 {
	return float32(1 / math.Sqrt(float64(bn.movingVar.Tensor().Data()[c]+bn.epsilon)))
}

// Forward normalizes one element, updating the moving statistics when training.
func (bn *BatchNormalization[B]) Forward(x *tensor.Tensor[float32, B], training bool) (*tensor.Tensor[float32, B], error) {
	if err := bn.checkInput(x, bn.outputShape); err != nil {
		return nil, err
	}
	src := x.Data()
	mean, variance := bn.movingMean.Tensor().Data(), bn.movingVar.Tensor().Data()
	gamma, beta := bn.gamma.Tensor().Data(), bn.beta.Tensor().Data()
	w := bn.channelWidth

	if training {
		m := bn.momentum
		for c := range mean {
			ch := src[c*w : (c+1)*w]
			var s float32
			for _, v := range ch {
				s += v
			}
			mean[c] = m*mean[c] + (1-m)*(s/float32(w))

			var sq float32
			for _, v := range ch {
				d := v - mean[c]
				sq += d * d
			}
			variance[c] = m*variance[c] + (1-m)*(sq/float32(w))
		}
	}

	y := bn.newLike(bn.outputShape)
	dst := y.Data()
	for c := range mean {
		inv := bn.invStd(c)
		for i := c * w; i < (c+1)*w; i++ {
			dst[i] = gamma[c]*(src[i]-mean[c])*inv + beta[c]
		}
	}
	return y, nil
}

// Backward treats the moving statistics as constants:
//
//	dgamma_c = sum(gradY * x_hat), dbeta_c = sum(gradY), dx = gradY * gamma_c / sqrt(var_c + eps)
func (bn *BatchNormalization[B]) Backward(x, _, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := bn.checkInput(gradY, bn.outputShape); err != nil {
		return nil, err
	}
	src, g := x.Data(), gradY.Data()
	mean, gamma := bn.movingMean.Tensor().Data(), bn.gamma.Tensor().Data()
	w := bn.channelWidth

	shape := tensor.Shape{len(mean)}
	dGamma := tensor.Zeros[float32](shape, bn.backend)
	dBeta := tensor.Zeros[float32](shape, bn.backend)
	gradX := bn.newLike(bn.outputShape)
	dg, db, dx := dGamma.Data(), dBeta.Data(), gradX.Data()

	for c := range mean {
		inv := bn.invStd(c)
		for i := c * w; i < (c+1)*w; i++ {
			dg[c] += g[i] * (src[i] - mean[c]) * inv
			db[c] += g[i]
			dx[i] = g[i] * gamma[c] * inv
		}
	}
	if err := bn.gamma.AccumulateGrad(dGamma); err != nil {
		return nil, err
	}
	if err := bn.beta.AccumulateGrad(dBeta); err != nil {
		return nil, err
	}
	return gradX, nil
}

// TrainableWeights returns [gamma, beta].
func (bn *BatchNormalization[B]) TrainableWeights() []*Parameter[B] {
	if bn.gamma == nil {
		return nil
	}
	return []*Parameter[B]{bn.gamma, bn.beta}
}

// Variables returns [moving_mean, moving_variance].
func (bn *BatchNormalization[B]) Variables() []*Parameter[B] {
	if bn.movingMean == nil {
		return nil
	}
	return []*Parameter[B]{bn.movingMean, bn.movingVar}
}
