// Package cpu implements the CPU backend: data-parallel element-wise kernels
// and gonum-backed matrix contractions.
package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	cfg parallel.Config
}

// New creates a new CPU backend with parallel.DefaultConfig.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallelism config.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{cfg: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Config returns the parallelism config used by the kernels.
func (cpu *CPUBackend) Config() parallel.Config {
	return cpu.cfg
}

// numeric is the set of element types arithmetic kernels are defined for.
type numeric interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8
}

// sameLayout checks that two operands share shape and data type.
func sameLayout(op string, a, b *tensor.RawTensor) error {
	if !a.Shape().Equal(b.Shape()) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: %v vs %v", op, a.Shape(), b.Shape())
	}
	if a.DType() != b.DType() {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: dtype %s vs %s", op, a.DType(), b.DType())
	}
	return nil
}

// unsupported reports a data type without a kernel for op.
func unsupported(op string, dt tensor.DataType) error {
	return errors.Wrapf(tensor.ErrUnsupportedDType, "%s: %s", op, dt)
}
