package model

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/tensor"
)

// FitConfig controls a training run.
type FitConfig struct {
	Epochs          int     // Passes over the training batches (default: 1)
	BatchSize       int     // Samples per batch (default: 32)
	ValidationSplit float64 // Fraction of the batches held out for validation, in [0, 1)
	Shuffle         bool    // Draw a fresh permutation of the training samples every epoch
	Seed            uint64  // Seed of the shuffling permutation
}

func (c *FitConfig) defaults() {
	if c.Epochs == 0 {
		c.Epochs = 1
	}
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
}

// Fit trains the model on samples x with targets y.
//
// The leading axis of x and y is the sample axis. Only whole batches are
// used: there are floor(N / BatchSize) of them, and the last
// floor(batches * ValidationSplit) are held out for validation after every
// epoch. Per training batch the model runs the forward pass element by
// element, computes the loss and metrics, back-propagates the batch-mean
// gradient through the layers in reverse order and applies one optimizer
// step per trainable parameter.
//
// Results are appended to the model history ("loss", metric names, and
// "val_" prefixed keys when validating). On error the partially filled
// history is returned with it.
func (m *Model[B]) Fit(x, y *tensor.Tensor[float32, B], config FitConfig) (*History, error) {
	if !m.built {
		return m.history, ErrNotBuilt
	}
	if !m.compiled {
		return m.history, ErrNotCompiled
	}
	config.defaults()
	if config.Epochs < 0 || config.BatchSize < 0 {
		return m.history, errors.Wrapf(tensor.ErrInvalidArgument, "epochs %d, batch size %d",
			config.Epochs, config.BatchSize)
	}
	if config.ValidationSplit < 0 || config.ValidationSplit >= 1 {
		return m.history, errors.Wrapf(tensor.ErrInvalidArgument, "validation split %v outside [0, 1)",
			config.ValidationSplit)
	}

	x, y, n, err := m.samples(x, y)
	if err != nil {
		return m.history, err
	}
	batches := n / config.BatchSize
	validationBatches := int(float64(batches) * config.ValidationSplit)
	trainBatches := batches - validationBatches
	if trainBatches <= 0 {
		return m.history, errors.Wrapf(tensor.ErrInvalidArgument,
			"%d samples leave no training batch of size %d", n, config.BatchSize)
	}
	trainSamples := trainBatches * config.BatchSize

	//nolint:gosec // Using math/rand for shuffling (not security-critical)
	rng := rand.New(rand.NewPCG(config.Seed, config.Seed))
	first := len(m.history.Epochs)

	for epoch := first; epoch < first+config.Epochs; epoch++ {
		var perm []int
		if config.Shuffle {
			perm = rng.Perm(trainSamples)
		}

		m.resetMetrics()
		for b := 0; b < trainBatches; b++ {
			start := b * config.BatchSize
			xb, yb, err := batch(x, y, start, start+config.BatchSize, perm)
			if err != nil {
				return m.history, err
			}
			err = m.trainBatch(xb, yb)
			releaseAll(xb, yb)
			if err != nil {
				return m.history, errors.Wrapf(err, "epoch %d, batch %d", epoch, b)
			}
		}
		logs, order := m.results("")

		if validationBatches > 0 {
			m.resetMetrics()
			for b := trainBatches; b < batches; b++ {
				start := b * config.BatchSize
				xb, yb, err := batch(x, y, start, start+config.BatchSize, nil)
				if err != nil {
					return m.history, err
				}
				err = m.testBatch(xb, yb)
				releaseAll(xb, yb)
				if err != nil {
					return m.history, errors.Wrapf(err, "epoch %d, validation batch %d", epoch, b)
				}
			}
			valLogs, valOrder := m.results("val_")
			for _, k := range valOrder {
				logs[k] = valLogs[k]
			}
			order = append(order, valOrder...)
		}

		m.history.Record(epoch, logs, order)
		level := slog.LevelDebug
		if m.config.Verbose {
			level = slog.LevelInfo
		}
		attrs := []any{"epoch", epoch}
		for _, k := range order {
			attrs = append(attrs, k, logs[k])
		}
		m.logger.Log(context.Background(), level, "epoch finished", attrs...)
	}
	return m.history, nil
}

// samples checks x and y against the input and output shapes and returns
// them with a leading sample axis, reshaping rank-1 data when the element
// shape is [1].
func (m *Model[B]) samples(x, y *tensor.Tensor[float32, B]) (xs, ys *tensor.Tensor[float32, B], n int, err error) {
	if x == nil || y == nil {
		return nil, nil, 0, errors.Wrap(tensor.ErrInvalidArgument, "nil samples")
	}
	n = x.Shape()[0]
	if y.Shape()[0] != n {
		return nil, nil, 0, errors.Wrapf(tensor.ErrShapeMismatch, "%d inputs, %d targets", n, y.Shape()[0])
	}
	if xs, err = withSampleAxis(x, n, m.input.OutputShape()); err != nil {
		return nil, nil, 0, errors.Wrap(err, "inputs")
	}
	if ys, err = withSampleAxis(y, n, m.output.OutputShape()); err != nil {
		return nil, nil, 0, errors.Wrap(err, "targets")
	}
	return xs, ys, n, nil
}

// withSampleAxis returns t shaped [n] ++ elem, reshaping a copy when only
// the layout differs.
func withSampleAxis[B tensor.Backend](t *tensor.Tensor[float32, B], n int, elem tensor.Shape) (*tensor.Tensor[float32, B], error) {
	want := append(tensor.Shape{n}, elem...)
	if t.Shape().Equal(want) {
		return t, nil
	}
	if t.NumElements() != want.NumElements() {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "got %v, want %v", t.Shape(), want)
	}
	return t.Reshape(want...)
}

// batch extracts samples [start, end): views when contiguous, gathered
// copies when perm reorders them.
func batch[B tensor.Backend](x, y *tensor.Tensor[float32, B], start, end int, perm []int) (xb, yb *tensor.Tensor[float32, B], err error) {
	if perm == nil {
		if xb, err = x.Rows(start, end); err != nil {
			return nil, nil, err
		}
		if yb, err = y.Rows(start, end); err != nil {
			_ = xb.Release()
			return nil, nil, err
		}
		return xb, yb, nil
	}
	if xb, err = x.GatherRows(perm[start:end]); err != nil {
		return nil, nil, err
	}
	if yb, err = y.GatherRows(perm[start:end]); err != nil {
		return nil, nil, err
	}
	return xb, yb, nil
}

// releaseAll returns the borrows of batch views; gathered copies are
// released as owners.
func releaseAll[B tensor.Backend](ts ...*tensor.Tensor[float32, B]) {
	for _, t := range ts {
		_ = t.Release()
	}
}

// trainBatch runs one optimization step on a batch.
func (m *Model[B]) trainBatch(xb, yb *tensor.Tensor[float32, B]) error {
	for _, l := range m.layers {
		if r, ok := l.(nn.Regularizer); ok {
			r.ResetPenalty()
		}
		// Masks of a batch that failed before its backward pass.
		if f, ok := l.(nn.Forgetter); ok {
			f.Forget()
		}
	}

	outputs, err := m.forwardPropagation(xb, true)
	if err != nil {
		return err
	}
	predicted, err := tensor.Stack(outputs)
	if err != nil {
		return err
	}
	if err := m.updateMetrics(yb, predicted, m.penalty()); err != nil {
		return err
	}
	if err := m.backPropagation(yb, outputs); err != nil {
		return err
	}
	m.logger.Debug("batch trained", "samples", len(outputs))
	return nil
}

// testBatch runs the forward pass of a batch and updates loss and metrics.
func (m *Model[B]) testBatch(xb, yb *tensor.Tensor[float32, B]) error {
	outputs, err := m.forwardPropagation(xb, false)
	if err != nil {
		return err
	}
	predicted, err := tensor.Stack(outputs)
	if err != nil {
		return err
	}
	return m.updateMetrics(yb, predicted, 0)
}

// penalty sums the penalties reported by regularizing layers.
func (m *Model[B]) penalty() float64 {
	var total float64
	for _, l := range m.layers {
		if r, ok := l.(nn.Regularizer); ok {
			total += r.Penalty()
		}
	}
	return total
}

// updateMetrics folds the batch loss (plus penalty) and the metrics in.
// The loss is weighted by the batch's sample count, so the epoch loss is a
// per-sample mean whatever the batch size.
func (m *Model[B]) updateMetrics(expected, predicted *tensor.Tensor[float32, B], penalty float64) error {
	loss, err := m.loss.Compute(expected, predicted)
	if err != nil {
		return err
	}
	value := float64(loss.Data()[0]) + penalty
	if err := m.lossMean.UpdateWeighted(value, float64(expected.Shape()[0])); err != nil {
		return err
	}
	for _, metric := range m.metrics {
		if err := metric.UpdateState(expected, predicted); err != nil {
			return errors.Wrap(err, metric.Name())
		}
	}
	return nil
}

func (m *Model[B]) resetMetrics() {
	m.lossMean.ResetState()
	for _, metric := range m.metrics {
		metric.ResetState()
	}
}

// results reads the loss and metric results under prefix.
func (m *Model[B]) results(prefix string) (map[string]float64, []string) {
	logs := make(map[string]float64, len(m.metrics)+1)
	order := make([]string, 0, len(m.metrics)+1)
	add := func(name string, value float32) {
		logs[prefix+name] = float64(value)
		order = append(order, prefix+name)
	}
	add("loss", m.lossMean.Result().Data()[0])
	for _, metric := range m.metrics {
		add(metric.Name(), metric.Result().Data()[0])
	}
	return logs, order
}

// forwardPropagation runs every batch element through the layer arena and
// caches each layer's outputs. It returns the output layer's outputs.
func (m *Model[B]) forwardPropagation(xb *tensor.Tensor[float32, B], training bool) ([]*tensor.Tensor[float32, B], error) {
	size := xb.Shape()[0]
	for l := range m.cache {
		m.cache[l] = make([]*tensor.Tensor[float32, B], size)
	}

	for i := 0; i < size; i++ {
		row, err := xb.Row(i)
		if err != nil {
			return nil, err
		}
		// The cache outlives the batch, so it holds a copy rather than a view.
		act := row.Clone()
		_ = row.Release()

		for l, layer := range m.layers {
			if act, err = layer.Forward(act, training); err != nil {
				return nil, errors.Wrapf(err, "forward %s", layer.Name())
			}
			m.cache[l][i] = act
		}
	}
	return m.cache[len(m.layers)-1], nil
}

// backPropagation chains the batch-mean loss gradient of every element
// backwards through the layers, then applies the optimizer.
func (m *Model[B]) backPropagation(yb *tensor.Tensor[float32, B], outputs []*tensor.Tensor[float32, B]) error {
	for _, l := range m.layers {
		for _, p := range l.TrainableWeights() {
			p.ZeroGrad()
		}
	}

	scale := 1 / float64(len(outputs))
	for i, out := range outputs {
		expected, err := yb.Row(i)
		if err != nil {
			return err
		}
		grad, err := m.loss.Derivative(expected, out)
		_ = expected.Release()
		if err != nil {
			return err
		}
		if grad, err = grad.MulScalar(scale); err != nil {
			return err
		}

		for l := len(m.layers) - 1; l > 0; l-- {
			layer := m.layers[l]
			if grad, err = layer.Backward(m.cache[l-1][i], m.cache[l][i], grad); err != nil {
				return errors.Wrapf(err, "backward %s", layer.Name())
			}
		}
	}

	for _, l := range m.layers {
		for _, p := range l.TrainableWeights() {
			if err := m.optimizer.UpdateStep(p.Grad(), p); err != nil {
				return errors.Wrapf(err, "update %s/%s", l.Name(), p.Name())
			}
		}
	}
	return nil
}
