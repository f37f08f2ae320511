// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package metrics provides stateful metrics reported during training and evaluation.
//
// Pass metrics to model.Compile; their results are recorded in the training
// history under Name(), and under "val_" + Name() for validation.
//
// Example:
//
//	err := m.Compile(opt, nn.NewCategoricalCrossEntropyLoss[*cpu.Backend](10),
//	    metrics.NewCategoricalAccuracy(10, backend))
package metrics

import (
	"github.com/born-ml/strata/internal/metrics"
	"github.com/born-ml/strata/internal/tensor"
)

// Metric is a stateful aggregate over batches.
type Metric[B tensor.Backend] = metrics.Metric[B]

// Mean is the running mean of every value passed to it.
type Mean[B tensor.Backend] = metrics.Mean[B]

// NewMean creates a running mean recorded under name.
func NewMean[B tensor.Backend](name string, backend B) *Mean[B] {
	return metrics.NewMean(name, backend)
}

// MeanSquaredError is the mean of (predicted - expected)².
type MeanSquaredError[B tensor.Backend] = metrics.MeanSquaredError[B]

// NewMeanSquaredError creates a "mean_squared_error" metric.
func NewMeanSquaredError[B tensor.Backend](backend B) *MeanSquaredError[B] {
	return metrics.NewMeanSquaredError(backend)
}

// MeanAbsoluteError is the mean of |predicted - expected|.
type MeanAbsoluteError[B tensor.Backend] = metrics.MeanAbsoluteError[B]

// NewMeanAbsoluteError creates a "mean_absolute_error" metric.
func NewMeanAbsoluteError[B tensor.Backend](backend B) *MeanAbsoluteError[B] {
	return metrics.NewMeanAbsoluteError(backend)
}

// BinaryAccuracy is the fraction of thresholded predictions equal to 0/1 labels.
type BinaryAccuracy[B tensor.Backend] = metrics.BinaryAccuracy[B]

// NewBinaryAccuracy creates a "binary_accuracy" metric with threshold 0.5.
func NewBinaryAccuracy[B tensor.Backend](backend B) *BinaryAccuracy[B] {
	return metrics.NewBinaryAccuracy(backend)
}

// NewBinaryAccuracyWith creates a "binary_accuracy" metric with an explicit threshold.
func NewBinaryAccuracyWith[B tensor.Backend](threshold float32, backend B) *BinaryAccuracy[B] {
	return metrics.NewBinaryAccuracyWith(threshold, backend)
}

// CategoricalAccuracy is the fraction of rows whose argmax matches the target's.
type CategoricalAccuracy[B tensor.Backend] = metrics.CategoricalAccuracy[B]

// NewCategoricalAccuracy creates a "categorical_accuracy" metric over classes.
func NewCategoricalAccuracy[B tensor.Backend](classes int, backend B) *CategoricalAccuracy[B] {
	return metrics.NewCategoricalAccuracy(classes, backend)
}
