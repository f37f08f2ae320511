// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers, losses and initializers.
//
// # Overview
//
// This package contains:
//   - Layers: Input, Dense, Conv2D, MaxPool2D, Reshape/Flatten
//   - Activations: Linear, ReLU, LeakyReLU, Sigmoid, Tanh, Softmax
//   - Normalization and noise: BatchNormalization, Dropout, GaussianNoise
//   - Regularization: ActivityRegularization
//   - Loss functions: MSE, MAE, Huber, binary and categorical cross-entropy
//   - Initialization: XavierUniform, HeNormal, Constant
//
// Layers process one batch element at a time. Each layer is bound to its
// predecessor with SetInputs (or Connect for a chain), which builds it for the
// predecessor's output shape.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/strata/backend/cpu"
//	    "github.com/born-ml/strata/nn"
//	    "github.com/born-ml/strata/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    in := nn.NewInput(tensor.Shape{1, 28, 28}, backend)
//	    out, err := nn.Connect[*cpu.Backend](in,
//	        nn.NewConv2D(6, 5, 5, 1, 0, true, backend),
//	        nn.NewReLU(backend),
//	        nn.NewMaxPool2D(2, 2, backend),
//	        nn.NewFlatten(backend),
//	        nn.NewDense(10, true, backend),
//	        nn.NewSoftmax(backend),
//	    )
//	}
//
// Pass the input and output layers to model.New to train the chain.
package nn
