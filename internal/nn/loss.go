package nn

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Loss measures how far predictions are from expected values.
//
// Compute reduces a whole batch [N, ...] to its mean per-element loss with
// shape [1]. Derivative works on a single batch element and returns
// dLoss_element/dPredicted with the element's shape; the model scales it by
// 1/N when averaging over the batch.
type Loss[B tensor.Backend] interface {
	Name() string
	Compute(expected, predicted *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error)
	Derivative(expected, predicted *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error)
}

// rowLoss implements Loss for losses defined on one batch element.
// loss returns the element loss; grad writes its gradient into dst.
type rowLoss[B tensor.Backend] struct {
	name string
	loss func(expected, predicted []float32) float64
	grad func(dst, expected, predicted []float32)
}

func (l *rowLoss[B]) Name() string { return l.name }

// Compute returns the mean element loss over the leading (batch) axis.
func (l *rowLoss[B]) Compute(expected, predicted *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if !expected.Shape().Equal(predicted.Shape()) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s: expected %v, predicted %v",
			l.name, expected.Shape(), predicted.Shape())
	}
	n := predicted.Shape()[0]
	width := predicted.NumElements() / n
	e, p := expected.Data(), predicted.Data()

	var total float64
	for i := 0; i < n; i++ {
		total += l.loss(e[i*width:(i+1)*width], p[i*width:(i+1)*width])
	}
	out := tensor.Zeros[float32](tensor.Shape{1}, predicted.Backend())
	out.Data()[0] = float32(total / float64(n))
	return out, nil
}

// Derivative returns the gradient of one element's loss.
func (l *rowLoss[B]) Derivative(expected, predicted *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if !expected.Shape().Equal(predicted.Shape()) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s derivative: expected %v, predicted %v",
			l.name, expected.Shape(), predicted.Shape())
	}
	out := tensor.Zeros[float32](predicted.Shape(), predicted.Backend())
	l.grad(out.Data(), expected.Data(), predicted.Data())
	return out, nil
}

// NewMSELoss creates a mean squared error loss:
//
//	MSE = (1/k) * Σ (predicted - expected)²
//
// over the k components of each element.
func NewMSELoss[B tensor.Backend]() Loss[B] {
	return &rowLoss[B]{
		name: "mean_squared_error",
		loss: func(e, p []float32) float64 {
			var s float64
			for i := range p {
				d := float64(p[i] - e[i])
				s += d * d
			}
			return s / float64(len(p))
		},
		grad: func(dst, e, p []float32) {
			k := float32(len(p))
			for i := range p {
				dst[i] = 2 * (p[i] - e[i]) / k
			}
		},
	}
}

// NewMAELoss creates a mean absolute error loss: (1/k) * Σ |predicted - expected|.
func NewMAELoss[B tensor.Backend]() Loss[B] {
	return &rowLoss[B]{
		name: "mean_absolute_error",
		loss: func(e, p []float32) float64 {
			var s float64
			for i := range p {
				s += math.Abs(float64(p[i] - e[i]))
			}
			return s / float64(len(p))
		},
		grad: func(dst, e, p []float32) {
			k := float32(len(p))
			for i := range p {
				switch {
				case p[i] > e[i]:
					dst[i] = 1 / k
				case p[i] < e[i]:
					dst[i] = -1 / k
				}
			}
		},
	}
}

// NewHuberLoss creates a Huber loss, quadratic for |d| <= delta and linear beyond:
//
//	L(d) = 0.5 * d²                    if |d| <= delta
//	L(d) = delta * (|d| - 0.5 * delta) otherwise
func NewHuberLoss[B tensor.Backend](delta float32) Loss[B] {
	return &rowLoss[B]{
		name: "huber",
		loss: func(e, p []float32) float64 {
			var s float64
			dl := float64(delta)
			for i := range p {
				d := math.Abs(float64(p[i] - e[i]))
				if d <= dl {
					s += 0.5 * d * d
				} else {
					s += dl * (d - 0.5*dl)
				}
			}
			return s / float64(len(p))
		},
		grad: func(dst, e, p []float32) {
			k := float32(len(p))
			for i := range p {
				d := p[i] - e[i]
				dst[i] = max(-delta, min(delta, d)) / k
			}
		},
	}
}

// probEpsilon keeps probabilities away from 0 and 1 before taking logs.
const probEpsilon = 1e-7

func clipProb(p float32) float64 {
	return math.Min(math.Max(float64(p), probEpsilon), 1-probEpsilon)
}

// NewBinaryCrossEntropyLoss creates a binary cross-entropy loss over
// probabilities (sigmoid outputs):
//
//	BCE = -(1/k) * Σ [e*log(p) + (1-e)*log(1-p)]
func NewBinaryCrossEntropyLoss[B tensor.Backend]() Loss[B] {
	return &rowLoss[B]{
		name: "binary_crossentropy",
		loss: func(e, p []float32) float64 {
			var s float64
			for i := range p {
				q := clipProb(p[i])
				y := float64(e[i])
				s -= y*math.Log(q) + (1-y)*math.Log(1-q)
			}
			return s / float64(len(p))
		},
		grad: func(dst, e, p []float32) {
			k := float64(len(p))
			for i := range p {
				q := clipProb(p[i])
				dst[i] = float32((q - float64(e[i])) / (q * (1 - q)) / k)
			}
		},
	}
}

// NewCategoricalCrossEntropyLoss creates a categorical cross-entropy loss over
// probability distributions (softmax outputs) along the last axis of each
// element, averaged over the distributions in the element:
//
//	CCE = -Σ e * log(p)
//
// The expected tensor holds one-hot (or soft) labels.
func NewCategoricalCrossEntropyLoss[B tensor.Backend](classes int) Loss[B] {
	if classes <= 0 {
		panic("categorical crossentropy: classes must be positive")
	}
	return &rowLoss[B]{
		name: "categorical_crossentropy",
		loss: func(e, p []float32) float64 {
			var s float64
			for i := range p {
				if e[i] != 0 {
					s -= float64(e[i]) * math.Log(clipProb(p[i]))
				}
			}
			return s / float64(len(p)/classes)
		},
		grad: func(dst, e, p []float32) {
			rows := float64(len(p) / classes)
			for i := range p {
				dst[i] = float32(-float64(e[i]) / clipProb(p[i]) / rows)
			}
		},
	}
}
