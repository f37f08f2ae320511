// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training neural networks.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum and Nesterov momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - RMSProp and Adagrad: adaptive per-element learning rates
//   - Optimizer interface for custom optimizers
//
// An optimizer keeps its state per parameter, so one instance serves a
// whole model.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/strata/backend/cpu"
//	    "github.com/born-ml/strata/model"
//	    "github.com/born-ml/strata/nn"
//	    "github.com/born-ml/strata/optim"
//	)
//
//	opt := optim.NewAdam[*cpu.Backend](optim.AdamConfig{LR: 0.001})
//	err := m.Compile(opt, nn.NewMSELoss[*cpu.Backend]())
package optim
