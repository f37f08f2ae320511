package metrics

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// Mean is the running mean of every element passed to UpdateState.
type Mean[B tensor.Backend] struct {
	meanState[B]
}

// NewMean creates a running mean recorded under name.
func NewMean[B tensor.Backend](name string, backend B) *Mean[B] {
	return &Mean[B]{meanState[B]{name: name, backend: backend}}
}

// UpdateState adds all elements of the given tensors.
func (m *Mean[B]) UpdateState(tensors ...*tensor.Tensor[float32, B]) error {
	for _, t := range tensors {
		for _, v := range t.Data() {
			m.total += float64(v)
		}
		m.count += float64(t.NumElements())
	}
	return nil
}

// UpdateWeighted adds value as if it had been seen weight times. A batch
// loss folded in with its sample count keeps the mean independent of the
// batch size.
func (m *Mean[B]) UpdateWeighted(value, weight float64) error {
	if weight < 0 || math.IsNaN(weight) {
		return errors.Wrapf(tensor.ErrInvalidArgument, "%s: weight %v", m.name, weight)
	}
	m.total += value * weight
	m.count += weight
	return nil
}

// MeanSquaredError is the mean of (predicted - expected)² over all elements seen.
type MeanSquaredError[B tensor.Backend] struct {
	meanState[B]
}

// NewMeanSquaredError creates an MSE metric named "mean_squared_error".
func NewMeanSquaredError[B tensor.Backend](backend B) *MeanSquaredError[B] {
	return &MeanSquaredError[B]{meanState[B]{name: "mean_squared_error", backend: backend}}
}

// UpdateState takes (expected, predicted).
func (m *MeanSquaredError[B]) UpdateState(tensors ...*tensor.Tensor[float32, B]) error {
	e, p, err := pair(m.name, tensors)
	if err != nil {
		return err
	}
	for i := range p {
		d := float64(p[i] - e[i])
		m.total += d * d
	}
	m.count += float64(len(p))
	return nil
}

// MeanAbsoluteError is the mean of |predicted - expected| over all elements seen.
type MeanAbsoluteError[B tensor.Backend] struct {
	meanState[B]
}

// NewMeanAbsoluteError creates an MAE metric named "mean_absolute_error".
func NewMeanAbsoluteError[B tensor.Backend](backend B) *MeanAbsoluteError[B] {
	return &MeanAbsoluteError[B]{meanState[B]{name: "mean_absolute_error", backend: backend}}
}

// UpdateState takes (expected, predicted).
func (m *MeanAbsoluteError[B]) UpdateState(tensors ...*tensor.Tensor[float32, B]) error {
	e, p, err := pair(m.name, tensors)
	if err != nil {
		return err
	}
	for i := range p {
		m.total += math.Abs(float64(p[i] - e[i]))
	}
	m.count += float64(len(p))
	return nil
}

// BinaryAccuracy is the fraction of elements whose prediction lands on the
// same side of the threshold as the label.
type BinaryAccuracy[B tensor.Backend] struct {
	meanState[B]
	threshold float32
}

// NewBinaryAccuracy creates a binary accuracy metric with threshold 0.5.
func NewBinaryAccuracy[B tensor.Backend](backend B) *BinaryAccuracy[B] {
	return NewBinaryAccuracyWith(0.5, backend)
}

// NewBinaryAccuracyWith creates a binary accuracy metric with an explicit threshold.
func NewBinaryAccuracyWith[B tensor.Backend](threshold float32, backend B) *BinaryAccuracy[B] {
	return &BinaryAccuracy[B]{
		meanState: meanState[B]{name: "binary_accuracy", backend: backend},
		threshold: threshold,
	}
}

// UpdateState takes (expected, predicted).
func (m *BinaryAccuracy[B]) UpdateState(tensors ...*tensor.Tensor[float32, B]) error {
	e, p, err := pair(m.name, tensors)
	if err != nil {
		return err
	}
	for i := range p {
		if (p[i] > m.threshold) == (e[i] > m.threshold) {
			m.total++
		}
	}
	m.count += float64(len(p))
	return nil
}

// CategoricalAccuracy is the fraction of class distributions (rows of
// width classes) whose argmax matches the argmax of the one-hot label.
type CategoricalAccuracy[B tensor.Backend] struct {
	meanState[B]
	classes int
}

// NewCategoricalAccuracy creates a categorical accuracy metric.
// Panics if classes is not positive.
func NewCategoricalAccuracy[B tensor.Backend](classes int, backend B) *CategoricalAccuracy[B] {
	if classes <= 0 {
		panic(fmt.Sprintf("categorical accuracy: invalid class count %d", classes))
	}
	return &CategoricalAccuracy[B]{
		meanState: meanState[B]{name: "categorical_accuracy", backend: backend},
		classes:   classes,
	}
}

// UpdateState takes (expected, predicted); their element count must be a
// multiple of the class count.
func (m *CategoricalAccuracy[B]) UpdateState(tensors ...*tensor.Tensor[float32, B]) error {
	e, p, err := pair(m.name, tensors)
	if err != nil {
		return err
	}
	if len(p)%m.classes != 0 {
		return errors.Wrapf(tensor.ErrShapeMismatch, "%s: %d elements do not split into rows of %d classes",
			m.name, len(p), m.classes)
	}
	for row := 0; row < len(p); row += m.classes {
		if argmax(e[row:row+m.classes]) == argmax(p[row:row+m.classes]) {
			m.total++
		}
		m.count++
	}
	return nil
}

// argmax returns the index of the first maximum.
func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
