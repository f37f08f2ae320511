package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

// Cast converts x to dtype, one independent element per iteration.
// Casting to the same data type returns a copy.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) (*tensor.RawTensor, error) {
	result, err := tensor.NewRaw(x.Shape(), dtype)
	if err != nil {
		return nil, errors.Wrap(err, "cast: failed to create result tensor")
	}
	parallel.Range(x.NumElements(), cpu.cfg, func(start, end int) {
		tensor.ConvertRange(result, x, start, end)
	})
	return result, nil
}
