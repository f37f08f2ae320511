package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/strata/internal/tensor"
)

// Dropout zeroes a fraction rate of the inputs during training and scales the
// survivors by 1/(1-rate) (inverted dropout). Outside training it is the identity.
//
// The mask drawn for a forward call is remembered under the identity of the
// output tensor, so Backward applies exactly the mask its forward used.
type Dropout[B tensor.Backend] struct {
	Base[B]
	rate  float32
	rng   *rand.Rand
	masks map[uint64][]float32
}

// NewDropout creates a dropout layer. seed makes the masks reproducible.
// Panics if rate is outside [0, 1).
func NewDropout[B tensor.Backend](rate float32, seed int64, backend B) *Dropout[B] {
	if rate < 0 || rate >= 1 {
		panic(fmt.Sprintf("dropout: invalid rate %v", rate))
	}
	d := &Dropout[B]{
		rate: rate,
		//nolint:gosec // Using math/rand for dropout masks (not security-critical)
		rng:   rand.New(rand.NewSource(seed)),
		masks: make(map[uint64][]float32),
	}
	d.init(d, "dropout", backend)
	return d
}

// Build keeps the input shape.
func (d *Dropout[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return err
	}
	d.setOutputShape(inputShape)
	return nil
}

// Forward applies a fresh mask when training and returns x otherwise.
func (d *Dropout[B]) Forward(x *tensor.Tensor[float32, B], training bool) (*tensor.Tensor[float32, B], error) {
	if err := d.checkInput(x, d.outputShape); err != nil {
		return nil, err
	}
	if !training || d.rate == 0 {
		return x, nil
	}

	y := d.newLike(d.outputShape)
	src, dst := x.Data(), y.Data()
	mask := make([]float32, len(src))
	scale := 1 / (1 - d.rate)
	for i := range mask {
		if d.rng.Float32() >= d.rate {
			mask[i] = scale
		}
		dst[i] = src[i] * mask[i]
	}
	d.masks[y.ID()] = mask
	return y, nil
}

// Backward applies the mask remembered for y and forgets it.
// Without a mask (inference output) the gradient passes through.
func (d *Dropout[B]) Backward(_, y, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := d.checkInput(gradY, d.outputShape); err != nil {
		return nil, err
	}
	mask, ok := d.masks[y.ID()]
	if !ok {
		return gradY, nil
	}
	delete(d.masks, y.ID())

	gradX := d.newLike(d.outputShape)
	g, dst := gradY.Data(), gradX.Data()
	for i := range dst {
		dst[i] = g[i] * mask[i]
	}
	return gradX, nil
}

// Forgetter is implemented by layers that remember state between a
// training Forward and its Backward. Forget drops whatever a Backward did
// not consume.
type Forgetter interface {
	Forget()
}

// Forget drops every remembered mask, e.g. after forward-only passes in training mode.
func (d *Dropout[B]) Forget() {
	clear(d.masks)
}

// Pending returns the number of masks still waiting for their Backward.
func (d *Dropout[B]) Pending() int {
	return len(d.masks)
}

// GaussianNoise adds zero-mean noise with the given standard deviation during
// training. Outside training it is the identity; the gradient always passes through.
type GaussianNoise[B tensor.Backend] struct {
	Base[B]
	stddev float64
	rng    *rand.Rand
}

// NewGaussianNoise creates a noise layer. Panics if stddev < 0.
func NewGaussianNoise[B tensor.Backend](stddev float64, seed int64, backend B) *GaussianNoise[B] {
	if stddev < 0 {
		panic(fmt.Sprintf("gaussian noise: invalid stddev %v", stddev))
	}
	n := &GaussianNoise[B]{
		stddev: stddev,
		//nolint:gosec // Using math/rand for training noise (not security-critical)
		rng: rand.New(rand.NewSource(seed)),
	}
	n.init(n, "gaussian_noise", backend)
	return n
}

// Build keeps the input shape.
func (n *GaussianNoise[B]) Build(inputShape tensor.Shape) error {
	if err := inputShape.Validate(); err != nil {
		return err
	}
	n.setOutputShape(inputShape)
	return nil
}

// Forward adds noise when training.
func (n *GaussianNoise[B]) Forward(x *tensor.Tensor[float32, B], training bool) (*tensor.Tensor[float32, B], error) {
	if err := n.checkInput(x, n.outputShape); err != nil {
		return nil, err
	}
	if !training || n.stddev == 0 {
		return x, nil
	}
	y := n.newLike(n.outputShape)
	src, dst := x.Data(), y.Data()
	for i := range dst {
		dst[i] = src[i] + float32(n.rng.NormFloat64()*n.stddev)
	}
	return y, nil
}

// Backward returns gradY unchanged: the noise is additive.
func (n *GaussianNoise[B]) Backward(_, _, gradY *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if err := n.checkInput(gradY, n.outputShape); err != nil {
		return nil, err
	}
	return gradY, nil
}
