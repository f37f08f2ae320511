package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/strata/internal/tensor"
)

func TestMaxPool2D_BasicForward(t *testing.T) {
	input := rawF32(t, tensor.Shape{1, 4, 4}, seq(16)...)

	out, idx, err := New().MaxPool2D(input, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{6, 8, 14, 16}, out.AsFloat32())
	assert.Equal(t, []int{5, 7, 13, 15}, idx)
}

func TestMaxPool2D_MultiChannel(t *testing.T) {
	input := rawI32(t, tensor.Shape{2, 2, 2}, 4, 1, 2, 3, -1, -5, -2, -3)

	out, idx, err := New().MaxPool2D(input, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, -1}, out.AsInt32())
	assert.Equal(t, []int{0, 4}, idx, "indices are flat over the whole element")
}

func TestMaxPool2D_TiesTakeFirst(t *testing.T) {
	input := rawF32(t, tensor.Shape{1, 2, 2}, filled(4, 1)...)
	_, idx, err := New().MaxPool2D(input, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, idx)
}

func TestMaxPool2D_Backward(t *testing.T) {
	b := New()
	input := rawF32(t, tensor.Shape{1, 4, 4}, seq(16)...)
	_, idx, err := b.MaxPool2D(input, 2, 2)
	require.NoError(t, err)

	dX, err := b.MaxPool2DBackward(input, rawF32(t, tensor.Shape{1, 2, 2}, 1, 2, 3, 4), idx)
	require.NoError(t, err)
	want := make([]float32, 16)
	want[5], want[7], want[13], want[15] = 1, 2, 3, 4
	assert.Equal(t, want, dX.AsFloat32())
}

// TestMaxPool2D_OverlappingBackward pools a 3x3 plane whose center wins all
// four 2x2 windows, so it collects every gradient.
func TestMaxPool2D_OverlappingBackward(t *testing.T) {
	b := New()
	input := rawF32(t, tensor.Shape{1, 3, 3}, 0, 0, 0, 0, 9, 0, 0, 0, 0)
	out, idx, err := b.MaxPool2D(input, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9, 9, 9}, out.AsFloat32())

	dX, err := b.MaxPool2DBackward(input, rawF32(t, tensor.Shape{1, 2, 2}, filled(4, 1)...), idx)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0, 4, 0, 0, 0, 0}, dX.AsFloat32())
}

func TestMaxPool2D_Float64(t *testing.T) {
	input, err := New().Cast(rawF32(t, tensor.Shape{1, 4, 4}, seq(16)...), tensor.Float64)
	require.NoError(t, err)
	out, _, err := New().MaxPool2D(input, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 8, 14, 16}, out.AsFloat64())
}

func TestMaxPool2D_Errors(t *testing.T) {
	b := New()
	_, _, err := b.MaxPool2D(rawF32(t, tensor.Shape{1, 1, 4, 4}), 2, 2)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
	_, _, err = b.MaxPool2D(rawF32(t, tensor.Shape{1, 2, 2}), 3, 1)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
	_, _, err = b.MaxPool2D(rawF32(t, tensor.Shape{1, 2, 2}), 2, 0)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	input := rawF32(t, tensor.Shape{1, 2, 2})
	_, err = b.MaxPool2DBackward(input, rawF32(t, tensor.Shape{1, 1, 1}), []int{0, 1})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
	_, err = b.MaxPool2DBackward(input, rawF32(t, tensor.Shape{1, 1, 1}), []int{4})
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}
