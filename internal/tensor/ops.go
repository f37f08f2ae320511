package tensor

// wrap turns a backend result into a typed tensor, passing errors through.
func (t *Tensor[T, B]) wrap(raw *RawTensor, err error) (*Tensor[T, B], error) {
	if err != nil {
		return nil, err
	}
	return &Tensor[T, B]{raw: raw, backend: t.backend}, nil
}

// Add returns t + other element-wise. Shapes must be identical.
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Add(t.raw, other.raw))
}

// Sub returns t - other element-wise. Shapes must be identical.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Sub(t.raw, other.raw))
}

// Mul returns t * other element-wise. Shapes must be identical.
func (t *Tensor[T, B]) Mul(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Mul(t.raw, other.raw))
}

// Div returns t / other element-wise. Shapes must be identical.
func (t *Tensor[T, B]) Div(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Div(t.raw, other.raw))
}

// AddInPlace adds other into t.
func (t *Tensor[T, B]) AddInPlace(other *Tensor[T, B]) error {
	return t.backend.AddInPlace(t.raw, other.raw)
}

// SubInPlace subtracts other from t.
func (t *Tensor[T, B]) SubInPlace(other *Tensor[T, B]) error {
	return t.backend.SubInPlace(t.raw, other.raw)
}

// MulInPlace multiplies t by other element-wise.
func (t *Tensor[T, B]) MulInPlace(other *Tensor[T, B]) error {
	return t.backend.MulInPlace(t.raw, other.raw)
}

// DivInPlace divides t by other element-wise.
func (t *Tensor[T, B]) DivInPlace(other *Tensor[T, B]) error {
	return t.backend.DivInPlace(t.raw, other.raw)
}

// AddScalar returns t + s for every element.
func (t *Tensor[T, B]) AddScalar(s float64) (*Tensor[T, B], error) {
	return t.wrap(t.backend.AddScalar(t.raw, s))
}

// MulScalar returns t * s for every element.
func (t *Tensor[T, B]) MulScalar(s float64) (*Tensor[T, B], error) {
	return t.wrap(t.backend.MulScalar(t.raw, s))
}

// MatMul returns the rank-2 product t @ other.
func (t *Tensor[T, B]) MatMul(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return t.wrap(t.backend.MatMul(t.raw, other.raw))
}

// Dot returns the inner product of two tensors with equal element counts.
func (t *Tensor[T, B]) Dot(other *Tensor[T, B]) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Dot(t.raw, other.raw))
}

// Transpose permutes the axes (reverses them when axes is empty).
func (t *Tensor[T, B]) Transpose(axes ...int) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Transpose(t.raw, axes...))
}

// Sum returns the sum of all elements as Shape{1}.
func (t *Tensor[T, B]) Sum() (*Tensor[T, B], error) {
	return t.wrap(t.backend.Sum(t.raw))
}

// Mean returns the arithmetic mean of all elements as Shape{1}.
// The division happens in float64; integer tensors truncate the result once.
func (t *Tensor[T, B]) Mean() (*Tensor[T, B], error) {
	s, err := t.backend.Sum(t.raw)
	if err != nil {
		return nil, err
	}
	wide, err := t.backend.Cast(s, Float64)
	if err != nil {
		return nil, err
	}
	wide.AsFloat64()[0] /= float64(t.NumElements())
	return t.wrap(t.backend.Cast(wide, t.raw.DType()))
}

// Max returns the largest element as Shape{1}.
func (t *Tensor[T, B]) Max() (*Tensor[T, B], error) {
	return t.wrap(t.backend.Max(t.raw))
}

// Min returns the smallest element as Shape{1}.
func (t *Tensor[T, B]) Min() (*Tensor[T, B], error) {
	return t.wrap(t.backend.Min(t.raw))
}

// Conv2D convolves a [C, H, W] element with a [F, C, KH, KW] kernel.
func (t *Tensor[T, B]) Conv2D(kernel *Tensor[T, B], stride, padding int) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Conv2D(t.raw, kernel.raw, stride, padding))
}

// Conv2DInputBackward returns the gradient of Conv2D with respect to t.
func (t *Tensor[T, B]) Conv2DInputBackward(kernel, grad *Tensor[T, B], stride, padding int) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Conv2DInputBackward(t.raw, kernel.raw, grad.raw, stride, padding))
}

// Conv2DKernelBackward returns the gradient of Conv2D with respect to kernel.
func (t *Tensor[T, B]) Conv2DKernelBackward(kernel, grad *Tensor[T, B], stride, padding int) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Conv2DKernelBackward(t.raw, kernel.raw, grad.raw, stride, padding))
}

// MaxPool2D pools a [C, H, W] element and returns the winning input indices.
func (t *Tensor[T, B]) MaxPool2D(kernelSize, stride int) (*Tensor[T, B], []int, error) {
	raw, idx, err := t.backend.MaxPool2D(t.raw, kernelSize, stride)
	if err != nil {
		return nil, nil, err
	}
	return &Tensor[T, B]{raw: raw, backend: t.backend}, idx, nil
}

// MaxPool2DBackward scatters grad onto t's shape at the winning indices.
func (t *Tensor[T, B]) MaxPool2DBackward(grad *Tensor[T, B], maxIndices []int) (*Tensor[T, B], error) {
	return t.wrap(t.backend.MaxPool2DBackward(t.raw, grad.raw, maxIndices))
}

// Softmax normalizes along axis dim.
func (t *Tensor[T, B]) Softmax(dim int) (*Tensor[T, B], error) {
	return t.wrap(t.backend.Softmax(t.raw, dim))
}

// Cast converts t to element type U.
//
// Example:
//
//	half, err := tensor.Cast[float16.Float16](weights)
func Cast[U, T DType, B Backend](t *Tensor[T, B]) (*Tensor[U, B], error) {
	raw, err := t.backend.Cast(t.raw, DataTypeOf[U]())
	if err != nil {
		return nil, err
	}
	return New[U](raw, t.backend), nil
}
