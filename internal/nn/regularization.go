package nn

import (
	"math"

	"github.com/born-ml/strata/internal/tensor"
)

// Regularizer is implemented by layers that contribute a penalty term to
// the training loss.
type Regularizer interface {
	// Penalty returns the penalty accumulated since the last ResetPenalty.
	Penalty() float64
	ResetPenalty()
}

// ActivityRegularization passes elements through unchanged and penalizes
// their magnitude:
//
//	penalty = l1 * sum(|x|) + l2 * sum(x^2)
//
// The penalty gradient l1*sign(x) + 2*l2*x is added to the upstream gradient.
type ActivityRegularization[B tensor.Backend] struct {
	Base[B]
	l1, l2  float32
	penalty float64
}

// NewActivityRegularization creates a regularization layer.
func NewActivityRegularization[B tensor.Backend](l1, l2 float32, backend B) *ActivityRegularization[B] {
	r := &ActivityRegularization[B]{l1: l1, l2: l2}
	r.init(r, "activity_regularization", backend)
	return r
}

// Build keeps the input shape.
func (r *ActivityRegularization[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return err
	}
	r.setOutputShape(inputShape)
	return nil
}

// Forward returns x and, when training, adds its penalty to the running total.
func (r *ActivityRegularization[B]) Forward(x *tensor.Tensor[float32, B], training bool) (*tensor.Tensor[float32, B], error) {
	if err := r.checkInput(x, r.outputShape); err != nil {
		return nil, err
	}
	if training {
		var p float64
		for _, v := range x.Data() {
			p += float64(r.l1)*math.Abs(float64(v)) + float64(r.l2)*float64(v)*float64(v)
		}
		r.penalty += p
	}
	return x, nil
}

// Backward adds the penalty gradient to gradY.
func (r *ActivityRegularization[B]) Backward(x, _, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := r.checkInput(gradY, r.outputShape); err != nil {
		return nil, err
	}
	gradX := r.newLike(r.outputShape)
	in, g, dst := x.Data(), gradY.Data(), gradX.Data()
	for i := range dst {
		var sign float32
		switch {
		case in[i] > 0:
			sign = 1
		case in[i] < 0:
			sign = -1
		}
		dst[i] = g[i] + r.l1*sign + 2*r.l2*in[i]
	}
	return gradX, nil
}

// Penalty returns the penalty accumulated since the last reset.
func (r *ActivityRegularization[B]) Penalty() float64 {
	return r.penalty
}

// ResetPenalty zeroes the accumulated penalty.
func (r *ActivityRegularization[B]) ResetPenalty() {
	r.penalty = 0
}
