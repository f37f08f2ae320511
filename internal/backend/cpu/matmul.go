package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

// MatMul performs matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Only rank-2 operands are accepted; callers fan out over batch axes themselves.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "matmul: only 2D tensors supported, got %v and %v", aShape, bShape)
	}
	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "matmul: [%d,%d] @ [%d,%d]", m, k, kAlt, n)
	}
	if a.DType() != b.DType() {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "matmul: dtype %s vs %s", a.DType(), b.DType())
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType())
	if err != nil {
		return nil, errors.Wrap(err, "matmul: failed to create result tensor")
	}

	switch a.DType() {
	case tensor.Float32:
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas32.General{Rows: m, Cols: k, Stride: k, Data: a.AsFloat32()},
			blas32.General{Rows: k, Cols: n, Stride: n, Data: b.AsFloat32()},
			0,
			blas32.General{Rows: m, Cols: n, Stride: n, Data: result.AsFloat32()})
	case tensor.Float64:
		out := mat.NewDense(m, n, result.AsFloat64())
		out.Mul(mat.NewDense(m, k, a.AsFloat64()), mat.NewDense(k, n, b.AsFloat64()))
	case tensor.Int32:
		matmulNaive(result.AsInt32(), a.AsInt32(), b.AsInt32(), m, k, n, cpu.cfg)
	case tensor.Int64:
		matmulNaive(result.AsInt64(), a.AsInt64(), b.AsInt64(), m, k, n, cpu.cfg)
	default:
		return nil, unsupported("matmul", a.DType())
	}
	return result, nil
}

// matmulNaive computes C[i,j] = sum_k A[i,k] * B[k,j], one goroutine chunk per row range.
func matmulNaive[T numeric](c, a, b []T, m, k, n int, cfg parallel.Config) {
	parallel.For(m, func(i int) {
		for j := 0; j < n; j++ {
			var sum T
			for p := 0; p < k; p++ {
				sum += a[i*k+p] * b[p*n+j]
			}
			c[i*n+j] = sum
		}
	}, cfg)
}

// Dot returns the inner product of two tensors holding the same number of elements.
func (cpu *CPUBackend) Dot(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if a.NumElements() != b.NumElements() {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "dot: %v vs %v", a.Shape(), b.Shape())
	}
	if a.DType() != b.DType() {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "dot: dtype %s vs %s", a.DType(), b.DType())
	}
	result, err := tensor.NewRaw(tensor.Shape{1}, a.DType())
	if err != nil {
		return nil, err
	}

	n := a.NumElements()
	switch a.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = blas32.Dot(
			blas32.Vector{N: n, Inc: 1, Data: a.AsFloat32()},
			blas32.Vector{N: n, Inc: 1, Data: b.AsFloat32()})
	case tensor.Float64:
		result.AsFloat64()[0] = floats.Dot(a.AsFloat64(), b.AsFloat64())
	case tensor.Int32:
		result.AsInt32()[0] = dotNaive(a.AsInt32(), b.AsInt32())
	case tensor.Int64:
		result.AsInt64()[0] = dotNaive(a.AsInt64(), b.AsInt64())
	default:
		return nil, unsupported("dot", a.DType())
	}
	return result, nil
}

func dotNaive[T numeric](a, b []T) T {
	var sum T
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
