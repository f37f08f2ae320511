// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - BLAS matrix multiplication (gonum)
//   - Float32, Float64 and Float16 element-wise kernels
//   - Chunked parallel loops for large tensors
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
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	    z, err := x.Add(y)
//
//	    dense := nn.NewDense(10, true, backend)
//	}
//
// # Thread Safety
//
// The CPU backend holds no mutable state and is safe for concurrent use.
// Tensors themselves are not synchronized.
package cpu
