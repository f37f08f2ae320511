package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/strata/internal/tensor"
)

func TestSoftmax_LastAxis(t *testing.T) {
	x := rawF32(t, tensor.Shape{2, 3}, 1, 2, 3, 0, 0, 0)

	y, err := New().Softmax(x, -1)
	require.NoError(t, err)
	got := y.AsFloat32()
	assert.InDeltaSlice(t, []float32{0.09003057, 0.24472847, 0.66524096}, got[:3], 1e-6)
	assert.InDeltaSlice(t, []float32{1.0 / 3, 1.0 / 3, 1.0 / 3}, got[3:], 1e-6)
}

func TestSoftmax_LeadingAxis(t *testing.T) {
	// Columns are normalized: column 0 holds equal values, column 1 does not.
	x := rawF32(t, tensor.Shape{2, 2}, 5, 0, 5, 1)

	y, err := New().Softmax(x, 0)
	require.NoError(t, err)
	got := y.AsFloat32()
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, 0.5, got[2], 1e-6)
	assert.InDelta(t, 1.0, got[1]+got[3], 1e-6)
	assert.Greater(t, got[3], got[1])
}

func TestSoftmax_LargeInputsStayFinite(t *testing.T) {
	x, err := New().Cast(rawF32(t, tensor.Shape{2}, 1000, 1000), tensor.Float64)
	require.NoError(t, err)

	y, err := New().Softmax(x, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, y.AsFloat64())
}

func TestSoftmax_Errors(t *testing.T) {
	_, err := New().Softmax(rawF32(t, tensor.Shape{2, 2}), 2)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
	_, err = New().Softmax(rawI32(t, tensor.Shape{2}), 0)
	assert.ErrorIs(t, err, tensor.ErrUnsupportedDType)
}
