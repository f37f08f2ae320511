package tensor

// Backend defines the interface that compute backends implement.
// Backends handle the actual computation for tensor operations; structural
// operations that only touch metadata or copy bytes (reshape, subset, append,
// stack) live on RawTensor itself.
//
// Every operation checks its operands first and returns an error wrapping
// ErrShapeMismatch, ErrInvalidArgument or ErrUnsupportedDType instead of
// producing a partial result.
type Backend interface {
	// Element-wise binary operations on equally shaped operands.
	Add(a, b *RawTensor) (*RawTensor, error)
	Sub(a, b *RawTensor) (*RawTensor, error)
	Mul(a, b *RawTensor) (*RawTensor, error)
	Div(a, b *RawTensor) (*RawTensor, error)

	// In-place variants mutate dst.
	AddInPlace(dst, src *RawTensor) error
	SubInPlace(dst, src *RawTensor) error
	MulInPlace(dst, src *RawTensor) error
	DivInPlace(dst, src *RawTensor) error

	// Scalar operations apply the scalar to every element.
	AddScalar(x *RawTensor, scalar float64) (*RawTensor, error)
	MulScalar(x *RawTensor, scalar float64) (*RawTensor, error)

	// Contractions. MatMul is rank-2 only: [m,k] @ [k,n] -> [m,n].
	// Dot contracts two tensors with the same element count to Shape{1}.
	MatMul(a, b *RawTensor) (*RawTensor, error)
	Dot(a, b *RawTensor) (*RawTensor, error)

	// Transpose permutes the axes; with no axes it reverses them.
	Transpose(x *RawTensor, axes ...int) (*RawTensor, error)

	// Reductions over all elements, returning Shape{1}.
	Sum(x *RawTensor) (*RawTensor, error)
	Max(x *RawTensor) (*RawTensor, error)
	Min(x *RawTensor) (*RawTensor, error)

	// Convolution of one channels-first element. input is [C, H, W] and
	// kernel is [F, C, KH, KW]; the output is [F, HOut, WOut] with
	// HOut = (H + 2*padding - KH) / stride + 1, likewise WOut.
	Conv2D(input, kernel *RawTensor, stride, padding int) (*RawTensor, error)
	// Conv2DInputBackward maps an output gradient [F, HOut, WOut] back onto
	// the input shape [C, H, W], summing overlapping taps.
	Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) (*RawTensor, error)
	// Conv2DKernelBackward returns the kernel gradient [F, C, KH, KW].
	Conv2DKernelBackward(input, kernel, grad *RawTensor, stride, padding int) (*RawTensor, error)

	// MaxPool2D pools square windows of one [C, H, W] element. Alongside the
	// output [C, HOut, WOut] it returns, per output position, the flat input
	// index that won the window (first maximum in row-major order).
	MaxPool2D(input *RawTensor, kernelSize, stride int) (*RawTensor, []int, error)
	// MaxPool2DBackward routes each output gradient to its winning input index.
	MaxPool2DBackward(input, grad *RawTensor, maxIndices []int) (*RawTensor, error)

	// Softmax normalizes exp(x) along axis dim; negative dims count from the end.
	Softmax(x *RawTensor, dim int) (*RawTensor, error)

	// Cast converts to a different data type.
	Cast(x *RawTensor, dtype DataType) (*RawTensor, error)

	// Name returns the backend name.
	Name() string
}
