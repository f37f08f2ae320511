package model

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Predict runs the forward pass over x in batches of batchSize (default 1)
// and returns the stacked outputs, shaped [N] ++ output layer shape.
// A final partial batch is included.
func (m *Model[B]) Predict(x *tensor.Tensor[float32, B], batchSize int) (*tensor.Tensor[float32, B], error) {
	if !m.built {
		return nil, ErrNotBuilt
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if x == nil {
		return nil, errors.Wrap(tensor.ErrInvalidArgument, "nil samples")
	}
	n := x.Shape()[0]
	x, err := withSampleAxis(x, n, m.input.OutputShape())
	if err != nil {
		return nil, errors.Wrap(err, "inputs")
	}

	all := make([]*tensor.Tensor[float32, B], 0, n)
	for start := 0; start < n; start += batchSize {
		xb, err := x.Rows(start, min(start+batchSize, n))
		if err != nil {
			return nil, err
		}
		outputs, err := m.forwardPropagation(xb, false)
		_ = xb.Release()
		if err != nil {
			return nil, err
		}
		all = append(all, outputs...)
	}
	return tensor.Stack(all)
}

// Evaluate computes the loss and metrics over x and y without training.
// Batches of batchSize (default 1) cover every sample, and the loss is the
// per-sample mean whatever the batch size. The result is keyed like the
// training history ("loss" and metric names).
func (m *Model[B]) Evaluate(x, y *tensor.Tensor[float32, B], batchSize int) (map[string]float64, error) {
	if !m.built {
		return nil, ErrNotBuilt
	}
	if !m.compiled {
		return nil, ErrNotCompiled
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	x, y, n, err := m.samples(x, y)
	if err != nil {
		return nil, err
	}

	m.resetMetrics()
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		xb, yb, err := batch(x, y, start, end, nil)
		if err != nil {
			return nil, err
		}
		err = m.testBatch(xb, yb)
		releaseAll(xb, yb)
		if err != nil {
			return nil, err
		}
	}
	logs, _ := m.results("")
	return logs, nil
}

// LayerOutput returns the outputs of the named layer for every element of
// the last batch passed forward, stacked along a leading batch axis.
func (m *Model[B]) LayerOutput(name string) (*tensor.Tensor[float32, B], error) {
	if !m.built {
		return nil, ErrNotBuilt
	}
	i, ok := m.index[name]
	if !ok {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "no layer named %q", name)
	}
	if len(m.cache[i]) == 0 {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "layer %q has no cached output yet", name)
	}
	return tensor.Stack(m.cache[i])
}
