package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/parallel"
	"github.com/born-ml/strata/internal/tensor"
)

// MaxPool2D applies max pooling with square windows to one [C, H, W] element.
//
//	out_h = (H - kernelSize) / stride + 1
//	out_w = (W - kernelSize) / stride + 1
//
// The returned indices hold, per output position, the flat input index of
// the window maximum; ties go to the first position in row-major order.
// MaxPool2DBackward consumes them.
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) (*tensor.RawTensor, []int, error) {
	shape := input.Shape()
	if len(shape) != 3 {
		return nil, nil, errors.Wrapf(tensor.ErrShapeMismatch, "maxpool2d: expected [C, H, W] input, got %v", shape)
	}
	if kernelSize <= 0 || stride <= 0 {
		return nil, nil, errors.Wrapf(tensor.ErrInvalidArgument, "maxpool2d: kernel size %d, stride %d", kernelSize, stride)
	}
	c, h, w := shape[0], shape[1], shape[2]
	if kernelSize > h || kernelSize > w {
		return nil, nil, errors.Wrapf(tensor.ErrInvalidArgument, "maxpool2d: kernel size %d too large for input %dx%d", kernelSize, h, w)
	}
	hOut := (h-kernelSize)/stride + 1
	wOut := (w-kernelSize)/stride + 1

	output, err := tensor.NewRaw(tensor.Shape{c, hOut, wOut}, input.DType())
	if err != nil {
		return nil, nil, errors.Wrap(err, "maxpool2d: failed to create output")
	}
	p := pool{c: c, h: h, w: w, hOut: hOut, wOut: wOut, size: kernelSize, stride: stride}
	idx := make([]int, c*hOut*wOut)

	switch input.DType() {
	case tensor.Float32:
		maxpool2d(output.AsFloat32(), input.AsFloat32(), idx, p, cpu.cfg)
	case tensor.Float64:
		maxpool2d(output.AsFloat64(), input.AsFloat64(), idx, p, cpu.cfg)
	case tensor.Int32:
		maxpool2d(output.AsInt32(), input.AsInt32(), idx, p, cpu.cfg)
	case tensor.Int64:
		maxpool2d(output.AsInt64(), input.AsInt64(), idx, p, cpu.cfg)
	case tensor.Uint8:
		maxpool2d(output.AsUint8(), input.AsUint8(), idx, p, cpu.cfg)
	default:
		return nil, nil, unsupported("maxpool2d", input.DType())
	}
	return output, idx, nil
}

type pool struct {
	c, h, w      int
	hOut, wOut   int
	size, stride int
}

// maxpool2d scans every window. Each (channel, output row) pair writes its
// own output row, so the pairs run in parallel.
func maxpool2d[T numeric](out, in []T, idx []int, p pool, cfg parallel.Config) {
	parallel.ForBatch(p.c, p.hOut, func(ch, oh int) {
		base := ch * p.h * p.w
		for ow := 0; ow < p.wOut; ow++ {
			best := base + oh*p.stride*p.w + ow*p.stride
			for kh := 0; kh < p.size; kh++ {
				row := base + (oh*p.stride+kh)*p.w + ow*p.stride
				for kw := 0; kw < p.size; kw++ {
					if in[row+kw] > in[best] {
						best = row + kw
					}
				}
			}
			o := (ch*p.hOut+oh)*p.wOut + ow
			idx[o] = best
			out[o] = in[best]
		}
	}, cfg)
}

// MaxPool2DBackward routes each output gradient to the input position that
// won its window; positions that won several windows sum their gradients.
func (cpu *CPUBackend) MaxPool2DBackward(input, grad *tensor.RawTensor, maxIndices []int) (*tensor.RawTensor, error) {
	const op = "maxpool2d backward"
	if grad.NumElements() != len(maxIndices) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s: %d gradients for %d indices", op, grad.NumElements(), len(maxIndices))
	}
	if grad.DType() != input.DType() {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "%s: dtype %s vs %s", op, grad.DType(), input.DType())
	}
	n := input.NumElements()
	for _, i := range maxIndices {
		if i < 0 || i >= n {
			return nil, errors.Wrapf(tensor.ErrInvalidArgument, "%s: index %d out of range [0, %d)", op, i, n)
		}
	}
	inputGrad, err := tensor.NewRaw(input.Shape(), grad.DType())
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to create gradient tensor", op)
	}

	switch grad.DType() {
	case tensor.Float32:
		scatterAdd(inputGrad.AsFloat32(), grad.AsFloat32(), maxIndices)
	case tensor.Float64:
		scatterAdd(inputGrad.AsFloat64(), grad.AsFloat64(), maxIndices)
	case tensor.Int32:
		scatterAdd(inputGrad.AsInt32(), grad.AsInt32(), maxIndices)
	case tensor.Int64:
		scatterAdd(inputGrad.AsInt64(), grad.AsInt64(), maxIndices)
	case tensor.Uint8:
		scatterAdd(inputGrad.AsUint8(), grad.AsUint8(), maxIndices)
	default:
		return nil, unsupported(op, grad.DType())
	}
	return inputGrad, nil
}

func scatterAdd[T numeric](dst, src []T, idx []int) {
	clear(dst)
	for o, i := range idx {
		dst[i] += src[o]
	}
}
