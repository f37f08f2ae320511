package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

// float is the set of element types the convolution and softmax kernels run on.
type float interface {
	float32 | float64
}

// convGeometry holds the sizes of one convolution:
// input [c, h, w], kernel [f, c, kh, kw], output [f, hOut, wOut].
type convGeometry struct {
	c, h, w         int
	f, kh, kw       int
	hOut, wOut      int
	stride, padding int
}

// patch is the length of one im2col row.
func (g convGeometry) patch() int { return g.c * g.kh * g.kw }

// positions is the number of output positions per filter.
func (g convGeometry) positions() int { return g.hOut * g.wOut }

// convGeometryOf validates the operands of a convolution and derives its sizes.
func convGeometryOf(op string, input, kernel *tensor.RawTensor, stride, padding int) (convGeometry, error) {
	in, k := input.Shape(), kernel.Shape()
	if len(in) != 3 {
		return convGeometry{}, errors.Wrapf(tensor.ErrShapeMismatch, "%s: input must be [C, H, W], got %v", op, in)
	}
	if len(k) != 4 {
		return convGeometry{}, errors.Wrapf(tensor.ErrShapeMismatch, "%s: kernel must be [F, C, KH, KW], got %v", op, k)
	}
	if in[0] != k[1] {
		return convGeometry{}, errors.Wrapf(tensor.ErrShapeMismatch, "%s: input channels %d != kernel channels %d", op, in[0], k[1])
	}
	if stride <= 0 || padding < 0 {
		return convGeometry{}, errors.Wrapf(tensor.ErrInvalidArgument, "%s: stride %d, padding %d", op, stride, padding)
	}
	if input.DType() != kernel.DType() {
		return convGeometry{}, errors.Wrapf(tensor.ErrInvalidArgument, "%s: dtype %s vs %s", op, input.DType(), kernel.DType())
	}

	g := convGeometry{
		c: in[0], h: in[1], w: in[2],
		f: k[0], kh: k[2], kw: k[3],
		stride: stride, padding: padding,
	}
	if in[1]+2*padding < k[2] || in[2]+2*padding < k[3] {
		return convGeometry{}, errors.Wrapf(tensor.ErrInvalidArgument, "%s: kernel %v does not fit input %v", op, k, in)
	}
	g.hOut = (g.h+2*padding-g.kh)/stride + 1
	g.wOut = (g.w+2*padding-g.kw)/stride + 1
	return g, nil
}

// checkGrad validates an output gradient against the geometry.
func (g convGeometry) checkGrad(op string, input, grad *tensor.RawTensor) error {
	want := tensor.Shape{g.f, g.hOut, g.wOut}
	if !grad.Shape().Equal(want) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: gradient %v, want %v", op, grad.Shape(), want)
	}
	if grad.DType() != input.DType() {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: dtype %s vs %s", op, grad.DType(), input.DType())
	}
	return nil
}

// Conv2D performs 2D convolution of one element using the im2col algorithm.
//
// Algorithm: Im2col
//  1. Transform input patches into rows: [C, H, W] -> [H_out * W_out, C * K_h * K_w]
//  2. The kernel is already [F, C * K_h * K_w] in row-major order
//  3. GEMM: kernel @ col^T -> [F, H_out * W_out], which is the output layout
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) (*tensor.RawTensor, error) {
	g, err := convGeometryOf("conv2d", input, kernel, stride, padding)
	if err != nil {
		return nil, err
	}
	output, err := tensor.NewRaw(tensor.Shape{g.f, g.hOut, g.wOut}, input.DType())
	if err != nil {
		return nil, errors.Wrap(err, "conv2d: failed to create output tensor")
	}

	switch input.DType() {
	case tensor.Float32:
		conv2d(output.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(), g, cpu.cfg)
	case tensor.Float64:
		conv2d(output.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(), g, cpu.cfg)
	default:
		return nil, unsupported("conv2d", input.DType())
	}
	return output, nil
}

func conv2d[T float](out, in, kernel []T, g convGeometry, cfg parallel.Config) {
	col := make([]T, g.positions()*g.patch())
	im2col(col, in, g, cfg)
	gemm(blas.NoTrans, blas.Trans, g.f, g.positions(), g.patch(), kernel, col, out)
}

// Conv2DInputBackward computes the gradient with respect to the input.
//
//	dCol = grad^T @ kernel     [H_out*W_out, C*K_h*K_w]
//	dX   = col2im(dCol)        [C, H, W]
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) (*tensor.RawTensor, error) {
	const op = "conv2d input backward"
	g, err := convGeometryOf(op, input, kernel, stride, padding)
	if err != nil {
		return nil, err
	}
	if err := g.checkGrad(op, input, grad); err != nil {
		return nil, err
	}
	inputGrad, err := tensor.NewRaw(input.Shape(), input.DType())
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to create gradient tensor", op)
	}

	switch input.DType() {
	case tensor.Float32:
		conv2dInputBackward(inputGrad.AsFloat32(), grad.AsFloat32(), kernel.AsFloat32(), g, cpu.cfg)
	case tensor.Float64:
		conv2dInputBackward(inputGrad.AsFloat64(), grad.AsFloat64(), kernel.AsFloat64(), g, cpu.cfg)
	default:
		return nil, unsupported(op, input.DType())
	}
	return inputGrad, nil
}

func conv2dInputBackward[T float](inputGrad, grad, kernel []T, g convGeometry, cfg parallel.Config) {
	dCol := make([]T, g.positions()*g.patch())
	gemm(blas.Trans, blas.NoTrans, g.positions(), g.patch(), g.f, grad, kernel, dCol)
	col2im(inputGrad, dCol, g, cfg)
}

// Conv2DKernelBackward computes the gradient with respect to the kernel.
//
//	dW = grad @ col            [F, C*K_h*K_w]
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) (*tensor.RawTensor, error) {
	const op = "conv2d kernel backward"
	g, err := convGeometryOf(op, input, kernel, stride, padding)
	if err != nil {
		return nil, err
	}
	if err := g.checkGrad(op, input, grad); err != nil {
		return nil, err
	}
	kernelGrad, err := tensor.NewRaw(kernel.Shape(), kernel.DType())
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to create gradient tensor", op)
	}

	switch input.DType() {
	case tensor.Float32:
		conv2dKernelBackward(kernelGrad.AsFloat32(), grad.AsFloat32(), input.AsFloat32(), g, cpu.cfg)
	case tensor.Float64:
		conv2dKernelBackward(kernelGrad.AsFloat64(), grad.AsFloat64(), input.AsFloat64(), g, cpu.cfg)
	default:
		return nil, unsupported(op, input.DType())
	}
	return kernelGrad, nil
}

func conv2dKernelBackward[T float](kernelGrad, grad, in []T, g convGeometry, cfg parallel.Config) {
	col := make([]T, g.positions()*g.patch())
	im2col(col, in, g, cfg)
	gemm(blas.NoTrans, blas.NoTrans, g.f, g.patch(), g.positions(), grad, col, kernelGrad)
}

// im2col fills one row of col per output position with the input patch under
// the kernel at that position. Out-of-bounds taps read zero.
func im2col[T float](col, in []T, g convGeometry, cfg parallel.Config) {
	width := g.patch()
	parallel.For(g.positions(), func(p int) {
		hStart := (p/g.wOut)*g.stride - g.padding
		wStart := (p%g.wOut)*g.stride - g.padding
		row := col[p*width : (p+1)*width]
		idx := 0
		for ci := 0; ci < g.c; ci++ {
			plane := in[ci*g.h*g.w : (ci+1)*g.h*g.w]
			for i := 0; i < g.kh; i++ {
				for j := 0; j < g.kw; j++ {
					hh, ww := hStart+i, wStart+j
					if hh >= 0 && hh < g.h && ww >= 0 && ww < g.w {
						row[idx] = plane[hh*g.w+ww]
					} else {
						row[idx] = 0
					}
					idx++
				}
			}
		}
	}, cfg)
}

// col2im scatters a column-matrix gradient back onto [C, H, W], summing
// overlapping taps. Channels write disjoint planes, so they run in parallel.
func col2im[T float](dst, dCol []T, g convGeometry, cfg parallel.Config) {
	width := g.patch()
	parallel.For(g.c, func(ci int) {
		plane := dst[ci*g.h*g.w : (ci+1)*g.h*g.w]
		clear(plane)
		for p := 0; p < g.positions(); p++ {
			hStart := (p/g.wOut)*g.stride - g.padding
			wStart := (p%g.wOut)*g.stride - g.padding
			taps := dCol[p*width+ci*g.kh*g.kw : p*width+(ci+1)*g.kh*g.kw]
			for i := 0; i < g.kh; i++ {
				for j := 0; j < g.kw; j++ {
					hh, ww := hStart+i, wStart+j
					if hh >= 0 && hh < g.h && ww >= 0 && ww < g.w {
						plane[hh*g.w+ww] += taps[i*g.kw+j]
					}
				}
			}
		}
	}, cfg)
}

// gemm computes c = op(a) @ op(b) for row-major operands, where op(a) is
// [m, k] and op(b) is [k, n].
func gemm[T float](tA, tB blas.Transpose, m, n, k int, a, b, c []T) {
	aRows, aCols := m, k
	if tA == blas.Trans {
		aRows, aCols = k, m
	}
	bRows, bCols := k, n
	if tB == blas.Trans {
		bRows, bCols = n, k
	}

	switch c := any(c).(type) {
	case []float32:
		blas32.Gemm(tA, tB, 1,
			blas32.General{Rows: aRows, Cols: aCols, Stride: aCols, Data: any(a).([]float32)},
			blas32.General{Rows: bRows, Cols: bCols, Stride: bCols, Data: any(b).([]float32)},
			0,
			blas32.General{Rows: m, Cols: n, Stride: n, Data: c})
	case []float64:
		blas64.Gemm(tA, tB, 1,
			blas64.General{Rows: aRows, Cols: aCols, Stride: aCols, Data: any(a).([]float64)},
			blas64.General{Rows: bRows, Cols: bCols, Stride: bCols, Data: any(b).([]float64)},
			0,
			blas64.General{Rows: m, Cols: n, Stride: n, Data: c})
	}
}
