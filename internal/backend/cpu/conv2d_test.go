package cpu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i + 1)
	}
	return out
}

func filled(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// TestConv2D_BasicForward convolves
//
//	1 2 3
//	4 5 6
//	7 8 9
//
// with the diagonal kernel [[1, 0], [0, 1]].
func TestConv2D_BasicForward(t *testing.T) {
	input := rawF32(t, tensor.Shape{1, 3, 3}, seq(9)...)
	kernel := rawF32(t, tensor.Shape{1, 1, 2, 2}, 1, 0, 0, 1)

	out, err := New().Conv2D(input, kernel, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{6, 8, 12, 14}, out.AsFloat32())
}

func TestConv2D_WithPadding(t *testing.T) {
	input := rawF32(t, tensor.Shape{1, 3, 3}, filled(9, 1)...)
	kernel := rawF32(t, tensor.Shape{1, 1, 3, 3}, filled(9, 1)...)

	out, err := New().Conv2D(input, kernel, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3, 3}, out.Shape())
	// Corners see 4 ones, edges 6, the center all 9.
	assert.Equal(t, []float32{4, 6, 4, 6, 9, 6, 4, 6, 4}, out.AsFloat32())
}

func TestConv2D_WithStride(t *testing.T) {
	input := rawF32(t, tensor.Shape{1, 4, 4}, seq(16)...)
	kernel := rawF32(t, tensor.Shape{1, 1, 2, 2}, filled(4, 1)...)

	out, err := New().Conv2D(input, kernel, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{14, 22, 46, 54}, out.AsFloat32())
}

func TestConv2D_MultiChannel(t *testing.T) {
	// Two input channels, two filters: the first sums both channels at each
	// tap, the second reads only channel 1.
	input := rawF32(t, tensor.Shape{2, 2, 2}, 1, 2, 3, 4, 10, 20, 30, 40)
	kernel := rawF32(t, tensor.Shape{2, 2, 1, 1}, 1, 1, 0, 1)

	out, err := New().Conv2D(input, kernel, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 2}, out.Shape())
	assert.Equal(t, []float32{11, 22, 33, 44, 10, 20, 30, 40}, out.AsFloat32())
}

func TestConv2D_Backward(t *testing.T) {
	b := New()
	input := rawF32(t, tensor.Shape{1, 3, 3}, seq(9)...)
	kernel := rawF32(t, tensor.Shape{1, 1, 2, 2}, 1, 0, 0, 1)
	grad := rawF32(t, tensor.Shape{1, 2, 2}, filled(4, 1)...)

	dX, err := b.Conv2DInputBackward(input, kernel, grad, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, input.Shape(), dX.Shape())
	// Each output position sends 1 to its top-left and bottom-right tap.
	assert.Equal(t, []float32{1, 1, 0, 1, 2, 1, 0, 1, 1}, dX.AsFloat32())

	dW, err := b.Conv2DKernelBackward(input, kernel, grad, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, kernel.Shape(), dW.Shape())
	// Sums of the patch entries under each tap.
	assert.Equal(t, []float32{12, 16, 24, 28}, dW.AsFloat32())
}

// TestConv2D_Float64MatchesFloat32 runs a padded, strided, multi-channel
// convolution and its gradients in both float types.
func TestConv2D_Float64MatchesFloat32(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	random := func(shape tensor.Shape) (*tensor.RawTensor, *tensor.RawTensor) {
		f32 := rawF32(t, shape)
		for i := range f32.AsFloat32() {
			f32.AsFloat32()[i] = float32(rng.NormFloat64())
		}
		f64, err := New().Cast(f32, tensor.Float64)
		require.NoError(t, err)
		return f32, f64
	}
	in32, in64 := random(tensor.Shape{3, 7, 6})
	k32, k64 := random(tensor.Shape{4, 3, 3, 2})

	for _, b := range []*CPUBackend{New(), NewWithConfig(parallel.Sequential())} {
		out32, err := b.Conv2D(in32, k32, 2, 1)
		require.NoError(t, err)
		out64, err := b.Conv2D(in64, k64, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{4, 4, 4}, out32.Shape())
		assert.InDeltaSlice(t, out64.AsFloat64(), toFloat64(out32.AsFloat32()), 1e-4)

		dX32, err := b.Conv2DInputBackward(in32, k32, out32, 2, 1)
		require.NoError(t, err)
		dX64, err := b.Conv2DInputBackward(in64, k64, out64, 2, 1)
		require.NoError(t, err)
		assert.InDeltaSlice(t, dX64.AsFloat64(), toFloat64(dX32.AsFloat32()), 1e-3)

		dW32, err := b.Conv2DKernelBackward(in32, k32, out32, 2, 1)
		require.NoError(t, err)
		dW64, err := b.Conv2DKernelBackward(in64, k64, out64, 2, 1)
		require.NoError(t, err)
		assert.InDeltaSlice(t, dW64.AsFloat64(), toFloat64(dW32.AsFloat32()), 1e-3)
	}
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func TestConv2D_Errors(t *testing.T) {
	b := New()
	input := rawF32(t, tensor.Shape{2, 3, 3})

	_, err := b.Conv2D(input, rawF32(t, tensor.Shape{1, 1, 2, 2}), 1, 0)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch, "channel mismatch")
	_, err = b.Conv2D(rawF32(t, tensor.Shape{1, 2, 3, 3}), rawF32(t, tensor.Shape{1, 1, 2, 2}), 1, 0)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch, "batched input")
	_, err = b.Conv2D(input, rawF32(t, tensor.Shape{1, 2, 4, 4}), 1, 0)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument, "kernel larger than input")
	_, err = b.Conv2D(input, rawF32(t, tensor.Shape{1, 2, 2, 2}), 0, 0)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument, "zero stride")

	ints := rawI32(t, tensor.Shape{1, 2, 2})
	_, err = b.Conv2D(ints, rawI32(t, tensor.Shape{1, 1, 1, 1}), 1, 0)
	assert.ErrorIs(t, err, tensor.ErrUnsupportedDType)

	kernel := rawF32(t, tensor.Shape{1, 2, 2, 2})
	_, err = b.Conv2DInputBackward(input, kernel, rawF32(t, tensor.Shape{1, 3, 3}), 1, 0)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch, "gradient of the wrong shape")
	_, err = b.Conv2DKernelBackward(input, kernel, rawF32(t, tensor.Shape{2, 2, 2}), 1, 0)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}
