// Package metrics implements stateful training and evaluation metrics.
//
// A Metric accumulates state over batches through UpdateState and reports
// the aggregate through Result. The model driver resets every metric at the
// start of each epoch and of each validation or evaluation pass.
//
// Available metrics:
//   - Mean: running mean of arbitrary values (the driver tracks the loss with it)
//   - MeanSquaredError, MeanAbsoluteError: regression error between expected and predicted
//   - BinaryAccuracy: thresholded agreement of probabilities with 0/1 labels
//   - CategoricalAccuracy: argmax agreement along the class axis
package metrics

import (
	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Metric is a stateful aggregate over batches.
type Metric[B tensor.Backend] interface {
	// Name returns the key the metric is recorded under in a history.
	Name() string

	// UpdateState folds one batch into the metric state.
	// Comparison metrics take (expected, predicted); Mean takes any number of tensors.
	UpdateState(tensors ...*tensor.Tensor[float32, B]) error

	// Result returns the current aggregate with shape [1].
	Result() *tensor.Tensor[float32, B]

	// ResetState clears the accumulated state.
	ResetState()
}

// meanState accumulates a sum and a count; every metric here reports total/count.
type meanState[B tensor.Backend] struct {
	name    string
	backend B
	total   float64
	count   float64
}

func (m *meanState[B]) Name() string { return m.name }

func (m *meanState[B]) Result() *tensor.Tensor[float32, B] {
	out := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
	if m.count > 0 {
		out.Data()[0] = float32(m.total / m.count)
	}
	return out
}

func (m *meanState[B]) ResetState() {
	m.total = 0
	m.count = 0
}

// pair validates the (expected, predicted) arguments of a comparison metric.
func pair[B tensor.Backend](name string, tensors []*tensor.Tensor[float32, B]) (e, p []float32, err error) {
	if len(tensors) != 2 {
		return nil, nil, errors.Wrapf(tensor.ErrInvalidArgument, "%s: expects (expected, predicted), got %d tensors",
			name, len(tensors))
	}
	expected, predicted := tensors[0], tensors[1]
	if !expected.Shape().Equal(predicted.Shape()) {
		return nil, nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s: expected %v, predicted %v",
			name, expected.Shape(), predicted.Shape())
	}
	return expected.Data(), predicted.Data(), nil
}
