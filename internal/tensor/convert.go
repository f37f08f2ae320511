package tensor

import "github.com/x448/float16"

// ConvertRange writes src[start:end] into dst[start:end], converting each
// element from src's data type to dst's. Both tensors must hold at least end
// elements. Float to integer conversion truncates toward zero; any non-zero
// value converts to true.
func ConvertRange(dst, src *RawTensor, start, end int) {
	if src.DType() == dst.DType() {
		size := src.DType().Size()
		copy(dst.Data()[start*size:end*size], src.Data()[start*size:end*size])
		return
	}
	load := loader(src)
	store := storer(dst)
	for i := start; i < end; i++ {
		store(i, load(i))
	}
}

// loader returns an accessor reading element i of r as float64.
func loader(r *RawTensor) func(i int) float64 {
	switch r.DType() {
	case Float32:
		d := r.AsFloat32()
		return func(i int) float64 { return float64(d[i]) }
	case Float64:
		d := r.AsFloat64()
		return func(i int) float64 { return d[i] }
	case Int32:
		d := r.AsInt32()
		return func(i int) float64 { return float64(d[i]) }
	case Int64:
		d := r.AsInt64()
		return func(i int) float64 { return float64(d[i]) }
	case Uint8:
		d := r.AsUint8()
		return func(i int) float64 { return float64(d[i]) }
	case Bool:
		d := r.AsBool()
		return func(i int) float64 {
			if d[i] {
				return 1
			}
			return 0
		}
	case Float16:
		d := r.AsFloat16()
		return func(i int) float64 { return float64(d[i].Float32()) }
	default:
		panic("unknown data type")
	}
}

// storer returns an accessor writing a float64 into element i of r.
func storer(r *RawTensor) func(i int, v float64) {
	switch r.DType() {
	case Float32:
		d := r.AsFloat32()
		return func(i int, v float64) { d[i] = float32(v) }
	case Float64:
		d := r.AsFloat64()
		return func(i int, v float64) { d[i] = v }
	case Int32:
		d := r.AsInt32()
		return func(i int, v float64) { d[i] = int32(v) }
	case Int64:
		d := r.AsInt64()
		return func(i int, v float64) { d[i] = int64(v) }
	case Uint8:
		d := r.AsUint8()
		return func(i int, v float64) { d[i] = uint8(v) }
	case Bool:
		d := r.AsBool()
		return func(i int, v float64) { d[i] = v != 0 }
	case Float16:
		d := r.AsFloat16()
		return func(i int, v float64) { d[i] = float16.Fromfloat32(float32(v)) }
	default:
		panic("unknown data type")
	}
}
