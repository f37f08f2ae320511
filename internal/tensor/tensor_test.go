package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/strata/internal/backend/cpu"
	"github.com/born-ml/strata/internal/tensor"
)

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, float32(6), x.At(1, 2))
	assert.Equal(t, float32(2), x.At(0, 1))

	x.Set(10, 1, 0)
	assert.Equal(t, []float32{1, 2, 3, 10, 5, 6}, x.Data())

	_, err = tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestTensor_AtOutOfBoundsPanics(t *testing.T) {
	x := tensor.Zeros[float32](tensor.Shape{2, 2}, cpu.New())
	assert.Panics(t, func() { x.At(2, 0) })
	assert.Panics(t, func() { x.Item() })
}

func TestCreation(t *testing.T) {
	backend := cpu.New()

	assert.Equal(t, []int32{1, 1, 1}, tensor.Ones[int32](tensor.Shape{3}, backend).Data())
	assert.Equal(t, []float64{2.5, 2.5}, tensor.Full[float64](tensor.Shape{2}, 2.5, backend).Data())
	assert.Equal(t, []float32{0, 1, 2, 3}, tensor.Arange[float32](0, 4, backend).Data())
	assert.Equal(t, []float32{1, 0, 0, 1}, tensor.Eye[float32](2, backend).Data())
	assert.Equal(t, float16.Fromfloat32(1), tensor.Ones[float16.Float16](tensor.Shape{1}, backend).Item())

	rng := rand.New(rand.NewSource(7))
	u := tensor.Uniform[float64](tensor.Shape{100}, -1, 1, rng, backend)
	for _, v := range u.Data() {
		assert.GreaterOrEqual(t, v, -1.0)
		assert.Less(t, v, 1.0)
	}

	assert.Panics(t, func() { tensor.Zeros[float32](tensor.Shape{}, backend) })
}

func TestRandn_Deterministic(t *testing.T) {
	backend := cpu.New()
	a := tensor.Randn[float32](tensor.Shape{8}, rand.New(rand.NewSource(42)), backend)
	b := tensor.Randn[float32](tensor.Shape{8}, rand.New(rand.NewSource(42)), backend)
	assert.Equal(t, a.Data(), b.Data())
}

func TestTensor_ArithmeticIdentities(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))
	a := tensor.Randn[float64](tensor.Shape{4, 5}, rng, backend)
	b := tensor.Randn[float64](tensor.Shape{4, 5}, rng, backend)

	// (a + b) - b == a
	sum, err := a.Add(b)
	require.NoError(t, err)
	back, err := sum.Sub(b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, a.Data(), back.Data(), 1e-12)

	// a * 1 == a
	same, err := a.Mul(tensor.Ones[float64](a.Shape(), backend))
	require.NoError(t, err)
	assert.Equal(t, a.Data(), same.Data())

	// (a * b) / b == a away from zero
	prod, err := a.Mul(b)
	require.NoError(t, err)
	quot, err := prod.Div(b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, a.Data(), quot.Data(), 1e-9)
}

func TestTensor_ShapeMismatch(t *testing.T) {
	backend := cpu.New()
	a := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
	b := tensor.Zeros[float32](tensor.Shape{3, 2}, backend)

	_, err := a.Add(b)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
	assert.ErrorIs(t, a.AddInPlace(b), tensor.ErrShapeMismatch)
}

func TestTensor_InPlace(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{4, 5, 6}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	require.NoError(t, a.AddInPlace(b))
	assert.Equal(t, []float32{5, 7, 9}, a.Data())
	require.NoError(t, a.SubInPlace(b))
	assert.Equal(t, []float32{1, 2, 3}, a.Data())
	require.NoError(t, a.MulInPlace(b))
	assert.Equal(t, []float32{4, 10, 18}, a.Data())
	require.NoError(t, a.DivInPlace(b))
	assert.Equal(t, []float32{1, 2, 3}, a.Data())
}

func TestTensor_Scalar(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]int64{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	plus, err := a.AddScalar(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, plus.Data())

	times, err := a.MulScalar(3)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 6, 9}, times.Data())
}

func TestTensor_MatMul(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2}, backend)
	require.NoError(t, err)

	c, err := a.MatMul(b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, c.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, c.Data())

	_, err = a.MatMul(a)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestTensor_MatMulIdentity(t *testing.T) {
	backend := cpu.New()
	a := tensor.Randn[float64](tensor.Shape{3, 3}, rand.New(rand.NewSource(3)), backend)

	c, err := a.MatMul(tensor.Eye[float64](3, backend))
	require.NoError(t, err)
	assert.InDeltaSlice(t, a.Data(), c.Data(), 1e-12)
}

func TestTensor_Dot(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{4, 5, 6}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	d, err := a.Dot(b)
	require.NoError(t, err)
	assert.Equal(t, float32(32), d.Item())
}

func TestTensor_TransposeTwiceIsIdentity(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]int32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	at, err := a.Transpose()
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, at.Shape())
	assert.Equal(t, []int32{1, 4, 2, 5, 3, 6}, at.Data())

	att, err := at.Transpose()
	require.NoError(t, err)
	assert.Equal(t, a.Data(), att.Data())

	_, err = a.Transpose(0, 0)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}

func TestTensor_Reductions(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]float64{3, -1, 4, 1, 5}, tensor.Shape{5}, backend)
	require.NoError(t, err)

	sum, err := a.Sum()
	require.NoError(t, err)
	assert.Equal(t, 12.0, sum.Item())

	mean, err := a.Mean()
	require.NoError(t, err)
	assert.InDelta(t, 2.4, mean.Item(), 1e-12)

	maxV, err := a.Max()
	require.NoError(t, err)
	assert.Equal(t, 5.0, maxV.Item())

	minV, err := a.Min()
	require.NoError(t, err)
	assert.Equal(t, -1.0, minV.Item())
}

func TestTensor_IntegerMean(t *testing.T) {
	backend := cpu.New()
	even, err := tensor.FromSlice([]int32{4, 4, 4, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	mean, err := even.Mean()
	require.NoError(t, err)
	assert.Equal(t, int32(4), mean.Item())

	// 7 / 2 truncates toward zero.
	odd, err := tensor.FromSlice([]int64{3, 4}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	mean64, err := odd.Mean()
	require.NoError(t, err)
	assert.Equal(t, int64(3), mean64.Item())
	assert.Equal(t, tensor.Int64, mean64.DType())
}

func TestTensor_ReshapeCopies(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	r, err := a.Reshape(3, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, r.Shape())
	assert.Equal(t, a.Data(), r.Data())

	r.Data()[0] = 100
	assert.Equal(t, float32(1), a.Data()[0])

	_, err = a.Reshape(4, 2)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	assert.Equal(t, tensor.Shape{6}, a.Flatten().Shape())
}

func TestTensor_RowViewAliases(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	row, err := a.Row(1)
	require.NoError(t, err)
	row.Set(40, 1)
	assert.Equal(t, float32(40), a.At(1, 1))

	assert.ErrorIs(t, a.Release(), tensor.ErrOwnership)
	require.NoError(t, row.Release())
	require.NoError(t, a.Release())
}

func TestStack(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	s, err := tensor.Stack([]*tensor.Tensor[float32, *cpu.CPUBackend]{a, b})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, s.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4}, s.Data())

	appended, err := s.Append(s)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4}, appended.Shape())
	assert.Equal(t, []float32{1, 2, 1, 2, 3, 4, 3, 4}, appended.Data())
}

func TestCast(t *testing.T) {
	backend := cpu.New()
	a, err := tensor.FromSlice([]float32{1.5, -2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	half, err := tensor.Cast[float16.Float16](a)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float16, half.DType())

	back, err := tensor.Cast[float32](half)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), back.Data())

	ints, err := tensor.Cast[int32](a)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, -2, 3}, ints.Data())
}
