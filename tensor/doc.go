// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor API of strata.
//
// # Overview
//
// A tensor is a shape plus a flat, row-major buffer. This package provides:
//   - Tensor[T, B]: typed tensor bound to a compute backend
//   - RawTensor: untyped buffer owner used by serialization and backends
//   - Shape and DataType: metadata shared by every layer
//   - Views: Row, Rows and Subset alias the owner's buffer without copying
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/strata/backend/cpu"
//	    "github.com/born-ml/strata/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    y := tensor.Ones[float32](tensor.Shape{2, 2}, backend)
//
//	    z, err := x.Add(y) // [[2, 3], [4, 5]]
//	}
//
// # Ownership
//
// Every buffer has exactly one owner. Views borrow it and must be released
// before the owner can be released, resized or moved; violations return
// ErrOwnership.
//
// # Errors
//
// Operations return errors wrapping one of the exported sentinels
// (ErrShapeMismatch, ErrInvalidArgument, ErrAllocation, ErrOwnership,
// ErrUnsupportedDType). Classify them with errors.Is.
package tensor
