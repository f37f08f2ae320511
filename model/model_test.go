// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package model_test

import (
	"errors"
	"testing"

	"github.com/born-ml/strata/backend/cpu"
	"github.com/born-ml/strata/metrics"
	"github.com/born-ml/strata/model"
	"github.com/born-ml/strata/nn"
	"github.com/born-ml/strata/optim"
	"github.com/born-ml/strata/tensor"
)

// TestPublicWorkflow builds, compiles and trains a model through the public packages only.
func TestPublicWorkflow(t *testing.T) {
	backend := cpu.New()
	in := nn.NewInput(tensor.Shape{2}, backend)
	out, err := nn.Connect[*cpu.Backend](in, nn.NewDense(1, true, backend))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	m := model.New[*cpu.Backend](in, out, model.Config{Name: "adder"})
	x, _ := tensor.FromSlice([]float32{0, 1, 1, 0, 1, 1, 0, 0}, tensor.Shape{4, 2}, backend)
	y, _ := tensor.FromSlice([]float32{1, 1, 2, 0}, tensor.Shape{4, 1}, backend)

	if _, err := m.Fit(x, y, model.FitConfig{}); !errors.Is(err, model.ErrNotBuilt) {
		t.Errorf("Fit before Build = %v, want ErrNotBuilt", err)
	}
	if err := m.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := m.Compile(
		optim.NewAdam[*cpu.Backend](optim.AdamConfig{LR: 0.01}),
		nn.NewMSELoss[*cpu.Backend](),
		metrics.NewMeanAbsoluteError(backend),
	); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	history, err := m.Fit(x, y, model.FitConfig{Epochs: 3, BatchSize: 2})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if got := len(history.Get("mean_absolute_error")); got != 3 {
		t.Errorf("recorded %d epochs, want 3", got)
	}

	pred, err := m.Predict(x, 4)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if !pred.Shape().Equal(tensor.Shape{4, 1}) {
		t.Errorf("Predict shape = %v, want [4 1]", pred.Shape())
	}
}
