package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

// binOp selects the arithmetic of an element-wise kernel.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

func (op binOp) String() string {
	switch op {
	case opAdd:
		return "add"
	case opSub:
		return "sub"
	case opMul:
		return "mul"
	default:
		return "div"
	}
}

// Add performs element-wise addition.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary(opAdd, a, b)
}

// Sub performs element-wise subtraction.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary(opSub, a, b)
}

// Mul performs element-wise multiplication.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary(opMul, a, b)
}

// Div performs element-wise division. Integer division by zero is rejected.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary(opDiv, a, b)
}

// AddInPlace adds src into dst.
func (cpu *CPUBackend) AddInPlace(dst, src *tensor.RawTensor) error {
	return cpu.inPlace(opAdd, dst, src)
}

// SubInPlace subtracts src from dst.
func (cpu *CPUBackend) SubInPlace(dst, src *tensor.RawTensor) error {
	return cpu.inPlace(opSub, dst, src)
}

// MulInPlace multiplies dst by src.
func (cpu *CPUBackend) MulInPlace(dst, src *tensor.RawTensor) error {
	return cpu.inPlace(opMul, dst, src)
}

// DivInPlace divides dst by src.
func (cpu *CPUBackend) DivInPlace(dst, src *tensor.RawTensor) error {
	return cpu.inPlace(opDiv, dst, src)
}

func (cpu *CPUBackend) binary(op binOp, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := sameLayout(op.String(), a, b); err != nil {
		return nil, err
	}
	result, err := tensor.NewRaw(a.Shape(), a.DType())
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to create result tensor", op)
	}
	if err := cpu.apply(op, result, a, b); err != nil {
		return nil, err
	}
	return result, nil
}

func (cpu *CPUBackend) inPlace(op binOp, dst, src *tensor.RawTensor) error {
	if err := sameLayout(op.String()+" in place", dst, src); err != nil {
		return err
	}
	return cpu.apply(op, dst, dst, src)
}

// apply dispatches dst = a op b to the typed kernel.
func (cpu *CPUBackend) apply(op binOp, dst, a, b *tensor.RawTensor) error {
	switch dst.DType() {
	case tensor.Float32:
		binaryKernel(op, dst.AsFloat32(), a.AsFloat32(), b.AsFloat32(), cpu.cfg)
	case tensor.Float64:
		binaryKernel(op, dst.AsFloat64(), a.AsFloat64(), b.AsFloat64(), cpu.cfg)
	case tensor.Int32:
		if err := checkDivisor(op, b.AsInt32(), cpu.cfg); err != nil {
			return err
		}
		binaryKernel(op, dst.AsInt32(), a.AsInt32(), b.AsInt32(), cpu.cfg)
	case tensor.Int64:
		if err := checkDivisor(op, b.AsInt64(), cpu.cfg); err != nil {
			return err
		}
		binaryKernel(op, dst.AsInt64(), a.AsInt64(), b.AsInt64(), cpu.cfg)
	case tensor.Uint8:
		if err := checkDivisor(op, b.AsUint8(), cpu.cfg); err != nil {
			return err
		}
		binaryKernel(op, dst.AsUint8(), a.AsUint8(), b.AsUint8(), cpu.cfg)
	default:
		return unsupported(op.String(), dst.DType())
	}
	return nil
}

// checkDivisor rejects integer division by zero before any element is written.
// Chunks scan concurrently; the reported element is the first zero of some chunk.
func checkDivisor[T numeric](op binOp, b []T, cfg parallel.Config) error {
	if op != opDiv {
		return nil
	}
	var zero T
	return parallel.Chunks(len(b), cfg, func(start, end int) error {
		for i := start; i < end; i++ {
			if b[i] == zero {
				return errors.Wrapf(tensor.ErrInvalidArgument, "div: integer division by zero at element %d", i)
			}
		}
		return nil
	})
}

// binaryKernel computes dst[i] = a[i] op b[i]. dst may alias a.
func binaryKernel[T numeric](op binOp, dst, a, b []T, cfg parallel.Config) {
	parallel.Range(len(dst), cfg, func(start, end int) {
		switch op {
		case opAdd:
			for i := start; i < end; i++ {
				dst[i] = a[i] + b[i]
			}
		case opSub:
			for i := start; i < end; i++ {
				dst[i] = a[i] - b[i]
			}
		case opMul:
			for i := start; i < end; i++ {
				dst[i] = a[i] * b[i]
			}
		case opDiv:
			for i := start; i < end; i++ {
				dst[i] = a[i] / b[i]
			}
		}
	})
}

// AddScalar adds scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) (*tensor.RawTensor, error) {
	return cpu.scalar(opAdd, x, scalar)
}

// MulScalar multiplies every element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) (*tensor.RawTensor, error) {
	return cpu.scalar(opMul, x, scalar)
}

func (cpu *CPUBackend) scalar(op binOp, x *tensor.RawTensor, s float64) (*tensor.RawTensor, error) {
	result, err := tensor.NewRaw(x.Shape(), x.DType())
	if err != nil {
		return nil, errors.Wrapf(err, "%s scalar: failed to create result tensor", op)
	}
	switch x.DType() {
	case tensor.Float32:
		scalarKernel(op, result.AsFloat32(), x.AsFloat32(), float32(s), cpu.cfg)
	case tensor.Float64:
		scalarKernel(op, result.AsFloat64(), x.AsFloat64(), s, cpu.cfg)
	case tensor.Int32:
		scalarKernel(op, result.AsInt32(), x.AsInt32(), int32(s), cpu.cfg)
	case tensor.Int64:
		scalarKernel(op, result.AsInt64(), x.AsInt64(), int64(s), cpu.cfg)
	case tensor.Uint8:
		scalarKernel(op, result.AsUint8(), x.AsUint8(), uint8(s), cpu.cfg)
	default:
		return nil, unsupported(op.String()+" scalar", x.DType())
	}
	return result, nil
}

func scalarKernel[T numeric](op binOp, dst, x []T, s T, cfg parallel.Config) {
	parallel.Range(len(dst), cfg, func(start, end int) {
		switch op {
		case opAdd:
			for i := start; i < end; i++ {
				dst[i] = x[i] + s
			}
		case opMul:
			for i := start; i < end; i++ {
				dst[i] = x[i] * s
			}
		}
	})
}
