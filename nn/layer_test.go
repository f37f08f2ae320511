// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"testing"

	"github.com/born-ml/strata/internal/backend/cpu"
	"github.com/born-ml/strata/nn"
	"github.com/born-ml/strata/tensor"
)

// TestLayerInterface verifies that the concrete layers implement Layer and
// report the expected output shapes once connected.
func TestLayerInterface(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name  string
		input tensor.Shape
		layer nn.Layer[*cpu.CPUBackend]
		want  tensor.Shape
	}{
		{name: "Dense", input: tensor.Shape{10}, layer: nn.NewDense(5, true, backend), want: tensor.Shape{5}},
		{name: "Conv2D", input: tensor.Shape{1, 28, 28}, layer: nn.NewConv2D(6, 5, 5, 1, 0, true, backend), want: tensor.Shape{6, 24, 24}},
		{name: "MaxPool2D", input: tensor.Shape{6, 24, 24}, layer: nn.NewMaxPool2D(2, 2, backend), want: tensor.Shape{6, 12, 12}},
		{name: "Flatten", input: tensor.Shape{2, 3}, layer: nn.NewFlatten(backend), want: tensor.Shape{6}},
		{name: "ReLU", input: tensor.Shape{4}, layer: nn.NewReLU(backend), want: tensor.Shape{4}},
		{name: "BatchNormalization", input: tensor.Shape{3, 2}, layer: nn.NewBatchNormalization(backend), want: tensor.Shape{3, 2}},
		{name: "Dropout", input: tensor.Shape{4}, layer: nn.NewDropout(0.5, 1, backend), want: tensor.Shape{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := nn.NewInput(tt.input, backend)
			out, err := nn.Connect[*cpu.CPUBackend](in, tt.layer)
			if err != nil {
				t.Fatalf("Connect failed: %v", err)
			}
			if !out.OutputShape().Equal(tt.want) {
				t.Errorf("OutputShape() = %v, want %v", out.OutputShape(), tt.want)
			}

			x := tensor.Ones[float32](tt.input, backend)
			y, err := out.Forward(x, false)
			if err != nil {
				t.Fatalf("Forward failed: %v", err)
			}
			if !y.Shape().Equal(tt.want) {
				t.Errorf("Forward shape = %v, want %v", y.Shape(), tt.want)
			}
		})
	}
}

// TestLossAPI verifies the loss constructors through the public package.
func TestLossAPI(t *testing.T) {
	backend := cpu.New()
	expected, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2, 1}, backend)
	predicted, _ := tensor.FromSlice([]float32{2, 4}, tensor.Shape{2, 1}, backend)

	loss, err := nn.NewMSELoss[*cpu.CPUBackend]().Compute(expected, predicted)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// ((2-1)^2 + (4-2)^2) / 2
	if got := loss.Data()[0]; got != 2.5 {
		t.Errorf("MSE = %v, want 2.5", got)
	}
}
