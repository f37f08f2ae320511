package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/strata/internal/tensor"
)

// Initializer fills a freshly built parameter. fanIn and fanOut are the
// number of input and output units the parameter connects.
type Initializer func(data []float32, fanIn, fanOut int)

// uniform draws from rng, or from the global source when rng is nil.
//
//nolint:gosec // Using math/rand for weight initialization (not security-critical)
func uniform(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}

//nolint:gosec // Using math/rand for weight initialization (not security-critical)
func normal(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.NormFloat64()
	}
	return rng.NormFloat64()
}

// XavierUniform (Glorot) draws weights from
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))).
//
// This initialization helps maintain variance of activations across layers.
// A nil rng uses the global math/rand source.
func XavierUniform(rng *rand.Rand) Initializer {
	return func(data []float32, fanIn, fanOut int) {
		bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
		for i := range data {
			data[i] = float32((uniform(rng)*2.0 - 1.0) * bound)
		}
	}
}

// HeNormal draws weights from N(0, 2/fan_in), suited to ReLU stacks.
func HeNormal(rng *rand.Rand) Initializer {
	return func(data []float32, fanIn, _ int) {
		std := math.Sqrt(2.0 / float64(fanIn))
		for i := range data {
			data[i] = float32(normal(rng) * std)
		}
	}
}

// Constant sets every weight to v.
func Constant(v float32) Initializer {
	return func(data []float32, _, _ int) {
		for i := range data {
			data[i] = v
		}
	}
}

// Xavier creates a tensor of shape initialized with XavierUniform.
//
// Parameters:
//   - fanIn: Number of input units
//   - fanOut: Number of output units
//   - shape: Shape of the weight tensor
//   - rng: Random source, nil for the global source
//   - backend: Backend to use for tensor creation
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return initialized(XavierUniform(rng), fanIn, fanOut, shape, backend)
}

// initialized allocates a tensor of shape and fills it with init.
func initialized[B tensor.Backend](init Initializer, fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	t := tensor.Zeros[float32](shape, backend)
	init(t.Data(), fanIn, fanOut)
	return t
}
