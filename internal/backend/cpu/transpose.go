package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

// Transpose permutes the axes of x. With no axes the order is reversed,
// which for a matrix is the usual transpose.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) (*tensor.RawTensor, error) {
	shape := x.Shape()
	rank := len(shape)
	if len(axes) == 0 {
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = rank - 1 - i
		}
	}
	if err := validatePermutation(axes, rank); err != nil {
		return nil, err
	}

	outShape := make(tensor.Shape, rank)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}
	result, err := tensor.NewRaw(outShape, x.DType())
	if err != nil {
		return nil, errors.Wrap(err, "transpose: failed to create result tensor")
	}

	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	size := x.DType().Size()
	src, dst := x.Data(), result.Data()

	parallel.Range(x.NumElements(), cpu.cfg, func(start, end int) {
		for o := start; o < end; o++ {
			// Decompose the output index and map each output axis back to its input axis.
			rem, in := o, 0
			for i := 0; i < rank; i++ {
				coord := rem / outStrides[i]
				rem %= outStrides[i]
				in += coord * inStrides[axes[i]]
			}
			copy(dst[o*size:(o+1)*size], src[in*size:(in+1)*size])
		}
	})
	return result, nil
}

func validatePermutation(axes []int, rank int) error {
	if len(axes) != rank {
		return errors.Wrapf(tensor.ErrInvalidArgument, "transpose: %d axes for rank %d", len(axes), rank)
	}
	seen := make([]bool, rank)
	for _, ax := range axes {
		if ax < 0 || ax >= rank || seen[ax] {
			return errors.Wrapf(tensor.ErrInvalidArgument, "transpose: %v is not a permutation of %d axes", axes, rank)
		}
		seen[ax] = true
	}
	return nil
}
