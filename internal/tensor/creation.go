package tensor

import (
	"math"
	"math/rand"

	"github.com/x448/float16"
)

// Zeros creates a tensor filled with zeros.
// Panics if the shape is invalid.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	raw, err := NewRaw(shape, DataTypeOf[T]())
	if err != nil {
		panic(err)
	}

	// Data is already zero-initialized by make()
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
//
// Example:
//
//	t := tensor.Ones[float64](Shape{2, 3}, backend)
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, one[T](), b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full[float32](Shape{3, 3}, 3.14, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// one returns the multiplicative identity of T.
func one[T DType]() T {
	var v T
	switch p := any(&v).(type) {
	case *float32:
		*p = 1
	case *float64:
		*p = 1
	case *int32:
		*p = 1
	case *int64:
		*p = 1
	case *uint8:
		*p = 1
	case *bool:
		*p = true
	case *float16.Float16:
		*p = float16.Fromfloat32(1)
	}
	return v
}

// Randn creates a tensor with values from a normal distribution (mean=0, std=1)
// drawn from rng. Uses the Box-Muller transform. Only works with float32 and float64.
// Note: Uses math/rand (not crypto/rand) - appropriate for ML/statistical purposes.
//
// Example:
//
//	t := tensor.Randn[float32](Shape{100, 100}, rand.New(rand.NewSource(1)), backend)
func Randn[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	fillFloat(t, func(int) float64 { return rng.NormFloat64() })
	return t
}

// Uniform creates a tensor with values uniformly distributed in [low, high).
// Only works with float32 and float64.
func Uniform[T DType, B Backend](shape Shape, low, high float64, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	fillFloat(t, func(int) float64 { return low + rng.Float64()*(high-low) })
	return t
}

// Arange creates a 1D float tensor with values start, start+1, ... below end.
//
// Example:
//
//	t := tensor.Arange[float32](0, 10, backend) // [0, 1, 2, ..., 9]
func Arange[T DType, B Backend](start, end float64, b B) *Tensor[T, B] {
	n := int(math.Ceil(end - start))
	if n <= 0 {
		panic("end must be greater than start")
	}
	t := Zeros[T, B](Shape{n}, b)
	fillFloat(t, func(i int) float64 { return start + float64(i) })
	return t
}

// Eye creates a 2D identity matrix.
//
// Example:
//
//	t := tensor.Eye[float32](3, backend) // 3x3 identity matrix
func Eye[T DType, B Backend](n int, b B) *Tensor[T, B] {
	t := Zeros[T, B](Shape{n, n}, b)
	data := t.Data()
	for i := 0; i < n; i++ {
		data[i*n+i] = one[T]()
	}
	return t
}

// fillFloat sets every element of a float tensor to gen(i).
func fillFloat[T DType, B Backend](t *Tensor[T, B], gen func(i int) float64) {
	switch data := any(t.Data()).(type) {
	case []float32:
		for i := range data {
			data[i] = float32(gen(i))
		}
	case []float64:
		for i := range data {
			data[i] = gen(i)
		}
	default:
		panic("only float32 and float64 tensors can be filled with generated values")
	}
}
