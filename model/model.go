// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package model trains and runs chains of nn layers.
//
// # Overview
//
// A Model spans a chain of connected layers from an input to an output
// layer. Build orders and validates the chain, Compile attaches an
// optimizer, a loss and metrics, and Fit trains on batches of samples.
//
// # Basic Usage
//
//	backend := cpu.New()
//	in := nn.NewInput(tensor.Shape{2}, backend)
//	out, err := nn.Connect[*cpu.Backend](in, nn.NewDense(1, true, backend))
//
//	m := model.New[*cpu.Backend](in, out, model.Config{Name: "adder"})
//	if err := m.Build(); err != nil {
//	    log.Fatal(err)
//	}
//	err = m.Compile(optim.NewSGD[*cpu.Backend](optim.SGDConfig{LR: 0.05}), nn.NewMSELoss[*cpu.Backend]())
//
//	history, err := m.Fit(x, y, model.FitConfig{Epochs: 20, BatchSize: 8})
//	predictions, err := m.Predict(x, 32)
//
// # Checkpoints
//
// SaveWeights and LoadWeights store the parameters as SafeTensors, keyed
// "<layer name>/<parameter name>".
package model

import (
	"github.com/born-ml/strata/internal/model"
	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/tensor"
)

// Model is a built chain of layers with its training state.
type Model[B tensor.Backend] = model.Model[B]

// Config configures a model.
type Config = model.Config

// FitConfig controls a training run.
type FitConfig = model.FitConfig

// History records per-epoch training results.
type History = model.History

// Errors returned before a model is ready.
var (
	ErrNotBuilt    = model.ErrNotBuilt
	ErrNotCompiled = model.ErrNotCompiled
)

// New creates a model spanning the chain from input to output.
func New[B tensor.Backend](input, output nn.Layer[B], config Config) *Model[B] {
	return model.New(input, output, config)
}
