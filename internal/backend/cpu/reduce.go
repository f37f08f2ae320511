package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

// Sum returns the sum of all elements as Shape{1}.
// Float sums are accumulated in float64 per chunk and combined in chunk order.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	result, err := tensor.NewRaw(tensor.Shape{1}, x.DType())
	if err != nil {
		return nil, err
	}

	switch x.DType() {
	case tensor.Float32:
		data := x.AsFloat32()
		result.AsFloat32()[0] = float32(parallel.Sum(len(data), cpu.cfg, func(start, end int) float64 {
			var s float64
			for _, v := range data[start:end] {
				s += float64(v)
			}
			return s
		}))
	case tensor.Float64:
		data := x.AsFloat64()
		result.AsFloat64()[0] = parallel.Sum(len(data), cpu.cfg, func(start, end int) float64 {
			return floats.Sum(data[start:end])
		})
	case tensor.Int32:
		result.AsInt32()[0] = sumExact(x.AsInt32())
	case tensor.Int64:
		result.AsInt64()[0] = sumExact(x.AsInt64())
	case tensor.Uint8:
		result.AsUint8()[0] = sumExact(x.AsUint8())
	default:
		return nil, unsupported("sum", x.DType())
	}
	return result, nil
}

func sumExact[T numeric](data []T) T {
	var s T
	for _, v := range data {
		s += v
	}
	return s
}

// Max returns the largest element as Shape{1}.
func (cpu *CPUBackend) Max(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return extreme("max", x, func(a, b float64) bool { return a > b })
}

// Min returns the smallest element as Shape{1}.
func (cpu *CPUBackend) Min(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return extreme("min", x, func(a, b float64) bool { return a < b })
}

// extreme scans x for the element that beats every other under better.
func extreme(op string, x *tensor.RawTensor, better func(a, b float64) bool) (*tensor.RawTensor, error) {
	if x.DType() == tensor.Bool {
		return nil, unsupported(op, x.DType())
	}
	if x.NumElements() == 0 {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "%s: empty tensor", op)
	}
	result, err := tensor.NewRaw(tensor.Shape{1}, x.DType())
	if err != nil {
		return nil, err
	}

	best := 0
	bestVal := elementAt(x, 0)
	for i := 1; i < x.NumElements(); i++ {
		if v := elementAt(x, i); better(v, bestVal) {
			best, bestVal = i, v
		}
	}
	size := x.DType().Size()
	copy(result.Data(), x.Data()[best*size:(best+1)*size])
	return result, nil
}

// elementAt reads element i of a numeric tensor as float64.
func elementAt(x *tensor.RawTensor, i int) float64 {
	switch x.DType() {
	case tensor.Float32:
		return float64(x.AsFloat32()[i])
	case tensor.Float64:
		return x.AsFloat64()[i]
	case tensor.Int32:
		return float64(x.AsInt32()[i])
	case tensor.Int64:
		return float64(x.AsInt64()[i])
	case tensor.Uint8:
		return float64(x.AsUint8()[i])
	case tensor.Float16:
		return float64(x.AsFloat16()[i].Float32())
	default:
		panic("elementAt: unsupported dtype " + x.DType().String())
	}
}
