package nn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/born-ml/strata/internal/backend/cpu"
	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/tensor"
)

type (
	backendT = *cpu.CPUBackend
	tensorT  = tensor.Tensor[float32, backendT]
)

func fromSlice(t *testing.T, data []float32, shape ...int) *tensorT {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), cpu.New())
	require.NoError(t, err)
	return x
}

func randomTensor(shape tensor.Shape, seed int64) *tensorT {
	return tensor.Randn[float32](shape, rand.New(rand.NewSource(seed)), cpu.New())
}

// objective is f(y) = sum(w * y), so dF/dy = w.
func objective(y, w *tensorT) float64 {
	var s float64
	for i, v := range y.Data() {
		s += float64(v) * float64(w.Data()[i])
	}
	return s
}

// centralGradient differentiates the objective with respect to the values
// in data, which forward reads in place. data is restored afterwards.
func centralGradient(t *testing.T, data []float32, forward func() (*tensorT, error), w *tensorT) []float64 {
	t.Helper()
	orig := make([]float64, len(data))
	for i, v := range data {
		orig[i] = float64(v)
	}
	f := func(v []float64) float64 {
		for i := range data {
			data[i] = float32(v[i])
		}
		y, err := forward()
		require.NoError(t, err)
		return objective(y, w)
	}
	grad := fd.Gradient(nil, f, orig, &fd.Settings{Formula: fd.Central, Step: 1e-2})
	for i, v := range orig {
		data[i] = float32(v)
	}
	return grad
}

// checkInputGradient compares Backward's dF/dx against central differences.
func checkInputGradient(t *testing.T, layer nn.Layer[backendT], x *tensorT, tol float64) {
	t.Helper()
	y, err := layer.Forward(x, false)
	require.NoError(t, err)
	w := randomTensor(y.Shape(), 99)

	gradX, err := layer.Backward(x, y, w)
	require.NoError(t, err)
	require.True(t, gradX.Shape().Equal(x.Shape()))

	forward := func() (*tensorT, error) { return layer.Forward(x, false) }
	numeric := centralGradient(t, x.Data(), forward, w)
	for i, want := range numeric {
		assert.InDelta(t, want, float64(gradX.Data()[i]), tol, "d/dx[%d]", i)
	}
}

// checkParamGradient compares the gradient accumulated into p against central differences.
func checkParamGradient(t *testing.T, layer nn.Layer[backendT], p *nn.Parameter[backendT], x *tensorT, tol float64) {
	t.Helper()
	p.ZeroGrad()
	y, err := layer.Forward(x, false)
	require.NoError(t, err)
	w := randomTensor(y.Shape(), 7)
	_, err = layer.Backward(x, y, w)
	require.NoError(t, err)
	require.NotNil(t, p.Grad())

	forward := func() (*tensorT, error) { return layer.Forward(x, false) }
	numeric := centralGradient(t, p.Tensor().Data(), forward, w)
	for i, want := range numeric {
		assert.InDelta(t, want, float64(p.Grad().Data()[i]), tol, "d/d%s[%d]", p.Name(), i)
	}
}

func TestParameter(t *testing.T) {
	data := fromSlice(t, []float32{1, 2, 3}, 3)
	param := nn.NewParameter("test_param", data)

	assert.Equal(t, "test_param", param.Name())
	assert.Same(t, data, param.Tensor())
	assert.True(t, param.Trainable())
	assert.Nil(t, param.Grad())

	require.NoError(t, param.AccumulateGrad(fromSlice(t, []float32{0.1, 0.2, 0.3}, 3)))
	require.NoError(t, param.AccumulateGrad(fromSlice(t, []float32{0.1, 0.2, 0.3}, 3)))
	assert.InDeltaSlice(t, []float32{0.2, 0.4, 0.6}, param.Grad().Data(), 1e-6)

	err := param.AccumulateGrad(fromSlice(t, []float32{1, 2}, 2))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	param.ZeroGrad()
	assert.Nil(t, param.Grad())

	v := nn.NewVariable("moving_mean", fromSlice(t, []float32{0}, 1))
	assert.False(t, v.Trainable())
	assert.NotEqual(t, param.ID(), v.ID())
}

func TestParameter_Load(t *testing.T) {
	param := nn.NewParameter("kernel", fromSlice(t, []float32{0, 0}, 1, 2))

	require.NoError(t, param.Load(fromSlice(t, []float32{1, 1}, 1, 2).Raw()))
	assert.Equal(t, []float32{1, 1}, param.Tensor().Data())

	assert.ErrorIs(t, param.Load(fromSlice(t, []float32{1, 1}, 2).Raw()), tensor.ErrShapeMismatch)
}

func TestInput(t *testing.T) {
	backend := cpu.New()
	in := nn.NewInput(tensor.Shape{2}, backend)

	assert.True(t, in.Built())
	assert.Equal(t, tensor.Shape{2}, in.OutputShape())
	assert.ErrorIs(t, in.SetInputs(nn.NewInput(tensor.Shape{2}, backend)), tensor.ErrInvalidArgument)

	_, err := in.Forward(fromSlice(t, []float32{1, 2, 3}, 3), false)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestSetInputs_Errors(t *testing.T) {
	backend := cpu.New()
	a := nn.NewInput(tensor.Shape{2}, backend)
	b := nn.NewInput(tensor.Shape{2}, backend)

	dense := nn.NewDense(1, false, backend)
	assert.ErrorIs(t, dense.SetInputs(a, b), tensor.ErrInvalidArgument)
	assert.ErrorIs(t, dense.SetInputs(), tensor.ErrInvalidArgument)

	unbuilt := nn.NewDense(3, false, backend)
	assert.ErrorIs(t, dense.SetInputs(unbuilt), tensor.ErrInvalidArgument)
	assert.False(t, dense.Built())
}

func TestSetInputs_LinksGraph(t *testing.T) {
	backend := cpu.New()
	in := nn.NewInput(tensor.Shape{4}, backend)
	dense := nn.NewDense(3, true, backend)
	relu := nn.NewReLU(backend)

	out, err := nn.Connect[backendT](in, dense, relu)
	require.NoError(t, err)
	assert.Same(t, relu, out)

	require.Len(t, in.Outputs(), 1)
	assert.Same(t, dense, in.Outputs()[0])
	require.Len(t, relu.Inputs(), 1)
	assert.Same(t, dense, relu.Inputs()[0])
	assert.Equal(t, tensor.Shape{3}, relu.OutputShape())
}

// TestDense_FixedWeights pins the forward contract: [[1, 1]] · [3, 4] = [7].
func TestDense_FixedWeights(t *testing.T) {
	backend := cpu.New()
	in := nn.NewInput(tensor.Shape{2}, backend)
	dense := nn.NewDense(1, false, backend)
	require.NoError(t, dense.SetInputs(in))

	require.Equal(t, tensor.Shape{1, 2}, dense.Kernel().Tensor().Shape())
	copy(dense.Kernel().Tensor().Data(), []float32{1, 1})

	y, err := dense.Forward(fromSlice(t, []float32{3, 4}, 2), false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1}, y.Shape())
	assert.Equal(t, []float32{7}, y.Data())
}

func TestDense_BuildDeterminism(t *testing.T) {
	dense := nn.NewDense(5, true, cpu.New())

	require.NoError(t, dense.Build(tensor.Shape{3}))
	firstKernel, firstBias := dense.Kernel(), dense.Bias()

	require.NoError(t, dense.Build(tensor.Shape{3}))
	assert.Equal(t, firstKernel.Tensor().Shape(), dense.Kernel().Tensor().Shape())
	assert.Equal(t, firstBias.Tensor().Shape(), dense.Bias().Tensor().Shape())
	assert.NotEqual(t, firstKernel.ID(), dense.Kernel().ID(), "a rebuild issues new handles")
}

func TestDense_Initializer(t *testing.T) {
	dense := nn.NewDense(2, false, cpu.New()).SetInitializer(nn.Constant(0.5))
	require.NoError(t, dense.Build(tensor.Shape{3}))
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, dense.Kernel().Tensor().Data())
}

func TestDense_RowsInput(t *testing.T) {
	dense := nn.NewDense(2, true, cpu.New()).SetInitializer(nn.Constant(1))
	require.NoError(t, dense.Build(tensor.Shape{3, 4}))
	assert.Equal(t, tensor.Shape{3, 2}, dense.OutputShape())

	x := randomTensor(tensor.Shape{3, 4}, 1)
	y, err := dense.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, y.Shape())

	assert.ErrorIs(t, dense.Build(tensor.Shape{2, 3, 4}), tensor.ErrInvalidArgument)
}

func TestDense_Gradients(t *testing.T) {
	dense := nn.NewDense(3, true, cpu.New()).SetInitializer(nn.XavierUniform(rand.New(rand.NewSource(1))))
	require.NoError(t, dense.Build(tensor.Shape{4}))
	x := randomTensor(tensor.Shape{4}, 2)

	checkInputGradient(t, dense, x, 1e-2)
	checkParamGradient(t, dense, dense.Kernel(), x, 1e-2)
	checkParamGradient(t, dense, dense.Bias(), x, 1e-2)
}

func TestConv2D_OutputShape(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv2D(6, 5, 5, 1, 0, true, backend)
	require.NoError(t, conv.SetInputs(nn.NewInput(tensor.Shape{1, 28, 28}, backend)))
	assert.Equal(t, tensor.Shape{6, 24, 24}, conv.OutputShape())
	assert.Equal(t, tensor.Shape{6, 1, 5, 5}, conv.Kernel().Tensor().Shape())

	padded := nn.NewConv2D(2, 3, 3, 2, 1, false, backend)
	require.NoError(t, padded.Build(tensor.Shape{3, 8, 8}))
	assert.Equal(t, tensor.Shape{2, 4, 4}, padded.OutputShape())

	tooBig := nn.NewConv2D(1, 5, 5, 1, 0, false, backend)
	assert.ErrorIs(t, tooBig.Build(tensor.Shape{1, 3, 3}), tensor.ErrInvalidArgument)
}

func TestConv2D_KnownValues(t *testing.T) {
	conv := nn.NewConv2D(1, 2, 2, 1, 0, true, cpu.New()).SetInitializer(nn.Constant(1))
	require.NoError(t, conv.Build(tensor.Shape{1, 3, 3}))
	conv.Bias().Tensor().Data()[0] = 0.5

	x := fromSlice(t, []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, 1, 3, 3)
	y, err := conv.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2}, y.Shape())
	assert.Equal(t, []float32{12.5, 16.5, 24.5, 28.5}, y.Data())
}

func TestConv2D_Gradients(t *testing.T) {
	conv := nn.NewConv2D(2, 3, 3, 2, 1, true, cpu.New()).SetInitializer(nn.HeNormal(rand.New(rand.NewSource(3))))
	require.NoError(t, conv.Build(tensor.Shape{2, 5, 5}))
	x := randomTensor(tensor.Shape{2, 5, 5}, 4)

	checkInputGradient(t, conv, x, 2e-2)
	checkParamGradient(t, conv, conv.Kernel(), x, 2e-2)
	checkParamGradient(t, conv, conv.Bias(), x, 2e-2)
}

func TestMaxPool2D(t *testing.T) {
	pool := nn.NewMaxPool2D(2, 2, cpu.New())
	require.NoError(t, pool.Build(tensor.Shape{1, 4, 4}))
	assert.Equal(t, tensor.Shape{1, 2, 2}, pool.OutputShape())

	x := fromSlice(t, []float32{
		1, 2, 5, 6,
		3, 4, 7, 8,
		9, 10, 13, 14,
		11, 12, 15, 16,
	}, 1, 4, 4)
	y, err := pool.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 8, 12, 16}, y.Data())

	gradX, err := pool.Backward(x, y, fromSlice(t, []float32{1, 2, 3, 4}, 1, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, []float32{
		0, 0, 0, 0,
		0, 1, 0, 2,
		0, 0, 0, 0,
		0, 3, 0, 4,
	}, gradX.Data())

	assert.ErrorIs(t, nn.NewMaxPool2D(3, 1, cpu.New()).Build(tensor.Shape{1, 2, 2}), tensor.ErrInvalidArgument)
}

func TestActivation_Forward(t *testing.T) {
	backend := cpu.New()
	x := fromSlice(t, []float32{-2, 0, 3}, 3)

	tests := []struct {
		name  string
		layer *nn.Activation[backendT]
		want  []float32
	}{
		{"relu", nn.NewReLU(backend), []float32{0, 0, 3}},
		{"leaky_relu", nn.NewLeakyReLU(0.1, backend), []float32{-0.2, 0, 3}},
		{"linear", nn.NewActivation(nn.Linear, backend), []float32{-2, 0, 3}},
		{"sigmoid", nn.NewSigmoid(backend), []float32{0.11920292, 0.5, 0.95257413}},
		{"tanh", nn.NewTanh(backend), []float32{-0.96402758, 0, 0.99505475}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.layer.Build(tensor.Shape{3}))
			y, err := tt.layer.Forward(x, false)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, y.Data(), 1e-6)
		})
	}
}

func TestActivation_SoftmaxRows(t *testing.T) {
	softmax := nn.NewSoftmax(cpu.New())
	require.NoError(t, softmax.Build(tensor.Shape{2, 3}))

	y, err := softmax.Forward(fromSlice(t, []float32{1, 2, 3, 0, 0, 0}, 2, 3), false)
	require.NoError(t, err)

	data := y.Data()
	assert.InDelta(t, 1.0, float64(data[0]+data[1]+data[2]), 1e-6)
	assert.InDelta(t, 1.0/3, float64(data[3]), 1e-6)
	assert.Greater(t, data[2], data[1])
}

func TestActivation_Gradients(t *testing.T) {
	backend := cpu.New()
	// Inputs kept away from the ReLU kink.
	x := fromSlice(t, []float32{-1.5, -0.4, 0.3, 0.9, 2.2, -2.5}, 2, 3)

	layers := []*nn.Activation[backendT]{
		nn.NewReLU(backend),
		nn.NewLeakyReLU(0.2, backend),
		nn.NewSigmoid(backend),
		nn.NewTanh(backend),
		nn.NewSoftmax(backend),
	}
	for _, l := range layers {
		t.Run(l.Function().String(), func(t *testing.T) {
			require.NoError(t, l.Build(tensor.Shape{2, 3}))
			checkInputGradient(t, l, x, 1e-2)
		})
	}
}

func TestBatchNormalization(t *testing.T) {
	bn := nn.NewBatchNormalizationWith(0.5, 1e-3, cpu.New())
	require.NoError(t, bn.Build(tensor.Shape{2, 2}))
	require.Len(t, bn.TrainableWeights(), 2)
	require.Len(t, bn.Variables(), 2)

	x := fromSlice(t, []float32{1, 3, 10, 10}, 2, 2)

	// Inference uses the initial statistics (mean 0, variance 1).
	y, err := bn.Forward(x, false)
	require.NoError(t, err)
	inv := float32(1 / math.Sqrt(1+1e-3))
	assert.InDeltaSlice(t, []float32{1 * inv, 3 * inv, 10 * inv, 10 * inv}, y.Data(), 1e-5)

	// Training moves the statistics towards the element.
	_, err = bn.Forward(x, true)
	require.NoError(t, err)
	mean := bn.Variables()[0].Tensor().Data()
	assert.InDeltaSlice(t, []float32{1, 5}, mean, 1e-6)

	checkInputGradient(t, bn, x, 1e-2)
	checkParamGradient(t, bn, bn.TrainableWeights()[0], x, 1e-2)
}

func TestReshapeAndFlatten(t *testing.T) {
	backend := cpu.New()

	flatten := nn.NewFlatten(backend)
	require.NoError(t, flatten.Build(tensor.Shape{2, 3, 4}))
	assert.Equal(t, tensor.Shape{24}, flatten.OutputShape())

	reshape := nn.NewReshape(tensor.Shape{4, 6}, backend)
	require.NoError(t, reshape.Build(tensor.Shape{2, 3, 4}))
	assert.Equal(t, tensor.Shape{4, 6}, reshape.OutputShape())

	bad := nn.NewReshape(tensor.Shape{5, 5}, backend)
	assert.ErrorIs(t, bad.Build(tensor.Shape{2, 3, 4}), tensor.ErrShapeMismatch)

	x := randomTensor(tensor.Shape{2, 3, 4}, 5)
	y, err := reshape.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, x.Data(), y.Data())

	gradX, err := reshape.Backward(x, y, y)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3, 4}, gradX.Shape())
}

func TestDropout(t *testing.T) {
	dropout := nn.NewDropout(0.5, 1, cpu.New())
	require.NoError(t, dropout.Build(tensor.Shape{100}))
	x := tensor.Ones[float32](tensor.Shape{100}, cpu.New())

	same, err := dropout.Forward(x, false)
	require.NoError(t, err)
	assert.Same(t, x, same, "inference is the identity")

	y, err := dropout.Forward(x, true)
	require.NoError(t, err)
	zeros := 0
	for _, v := range y.Data() {
		if v == 0 {
			zeros++
		} else {
			assert.Equal(t, float32(2), v, "survivors are scaled by 1/(1-rate)")
		}
	}
	assert.Greater(t, zeros, 20)
	assert.Less(t, zeros, 80)

	gradX, err := dropout.Backward(x, y, tensor.Ones[float32](tensor.Shape{100}, cpu.New()))
	require.NoError(t, err)
	assert.Equal(t, y.Data(), gradX.Data(), "backward applies the forward mask")
	assert.Zero(t, dropout.Pending())

	_, err = dropout.Forward(x, true)
	require.NoError(t, err)
	_, err = dropout.Forward(x, true)
	require.NoError(t, err)
	assert.Equal(t, 2, dropout.Pending())
	dropout.Forget()
	assert.Zero(t, dropout.Pending())
}

func TestGaussianNoise(t *testing.T) {
	noise := nn.NewGaussianNoise(0.1, 3, cpu.New())
	require.NoError(t, noise.Build(tensor.Shape{50}))
	x := tensor.Zeros[float32](tensor.Shape{50}, cpu.New())

	y, err := noise.Forward(x, true)
	require.NoError(t, err)
	assert.NotEqual(t, x.Data(), y.Data())

	same, err := noise.Forward(x, false)
	require.NoError(t, err)
	assert.Same(t, x, same)
}

func TestActivityRegularization(t *testing.T) {
	reg := nn.NewActivityRegularization(0.1, 0.5, cpu.New())
	require.NoError(t, reg.Build(tensor.Shape{2}))
	x := fromSlice(t, []float32{-1, 2}, 2)

	y, err := reg.Forward(x, true)
	require.NoError(t, err)
	assert.Equal(t, x.Data(), y.Data())
	// 0.1*(1+2) + 0.5*(1+4)
	assert.InDelta(t, 2.8, reg.Penalty(), 1e-6)

	gradX, err := reg.Backward(x, y, fromSlice(t, []float32{0, 0}, 2))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{-0.1 - 1, 0.1 + 2}, gradX.Data(), 1e-6)

	reg.ResetPenalty()
	assert.Zero(t, reg.Penalty())
}

func TestCast(t *testing.T) {
	backend := cpu.New()
	cast := nn.NewCast(tensor.Float16, backend)
	require.NoError(t, cast.Build(tensor.Shape{2}))

	x := fromSlice(t, []float32{1.0001, 65504}, 2)
	y, err := cast.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{float16.Fromfloat32(1.0001).Float32(), 65504}, y.Data())
	assert.Equal(t, float32(1), y.Data()[0])

	g := fromSlice(t, []float32{0.5, 0.25}, 2)
	gradX, err := cast.Backward(x, y, g)
	require.NoError(t, err)
	assert.Equal(t, g.Data(), gradX.Data())

	assert.ErrorIs(t, nn.NewCast(tensor.Bool, backend).Build(tensor.Shape{2}), tensor.ErrUnsupportedDType)
}
