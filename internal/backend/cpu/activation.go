package cpu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

// Softmax computes softmax along the specified dimension.
// Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)) for all j in dimension.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "softmax: dimension %d out of range for rank %d", dim, len(shape))
	}
	result, err := tensor.NewRaw(shape, x.DType())
	if err != nil {
		return nil, errors.Wrap(err, "softmax: failed to create result tensor")
	}

	// Rows are the groups of elements normalized together: size elements
	// spaced inner apart, one group per (outer, inner) coordinate.
	size := shape[dim]
	inner := shape[dim+1:].NumElements()
	switch x.DType() {
	case tensor.Float32:
		softmax(result.AsFloat32(), x.AsFloat32(), size, inner, cpu.cfg)
	case tensor.Float64:
		softmax(result.AsFloat64(), x.AsFloat64(), size, inner, cpu.cfg)
	default:
		return nil, unsupported("softmax", x.DType())
	}
	return result, nil
}

func softmax[T float](dst, src []T, size, inner int, cfg parallel.Config) {
	if len(src) == 0 {
		return
	}
	rows := len(src) / size
	parallel.For(rows, func(r int) {
		base := (r/inner)*size*inner + r%inner

		maxVal := math.Inf(-1)
		for i := 0; i < size; i++ {
			maxVal = math.Max(maxVal, float64(src[base+i*inner]))
		}
		var sum float64
		for i := 0; i < size; i++ {
			e := math.Exp(float64(src[base+i*inner]) - maxVal)
			dst[base+i*inner] = T(e)
			sum += e
		}
		for i := 0; i < size; i++ {
			dst[base+i*inner] = T(float64(dst[base+i*inner]) / sum)
		}
	}, cfg)
}
