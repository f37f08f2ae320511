// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/strata/internal/optim"
	"github.com/born-ml/strata/internal/tensor"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer[B tensor.Backend] = optim.Optimizer[B]

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	optimizer := optim.NewSGD[*cpu.Backend](optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
func NewSGD[B tensor.Backend](config SGDConfig) *SGD[B] {
	return optim.NewSGD[B](config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	optimizer := optim.NewAdam[*cpu.Backend](optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float32{0.9, 0.999},
//	})
func NewAdam[B tensor.Backend](config AdamConfig) *Adam[B] {
	return optim.NewAdam[B](config)
}

// RMSProp

// RMSProp represents the RMSProp optimizer.
type RMSProp[B tensor.Backend] = optim.RMSProp[B]

// RMSPropConfig contains configuration for RMSProp optimizer.
type RMSPropConfig = optim.RMSPropConfig

// NewRMSProp creates a new RMSProp optimizer.
func NewRMSProp[B tensor.Backend](config RMSPropConfig) *RMSProp[B] {
	return optim.NewRMSProp[B](config)
}

// Adagrad

// Adagrad represents the Adagrad optimizer.
type Adagrad[B tensor.Backend] = optim.Adagrad[B]

// AdagradConfig contains configuration for Adagrad optimizer.
type AdagradConfig = optim.AdagradConfig

// NewAdagrad creates a new Adagrad optimizer.
func NewAdagrad[B tensor.Backend](config AdagradConfig) *Adagrad[B] {
	return optim.NewAdagrad[B](config)
}
