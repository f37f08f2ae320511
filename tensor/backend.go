// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/strata/internal/tensor"

// Backend defines the interface that all compute backends implement.
//
// Implementations:
//   - backend/cpu: pure Go, with BLAS contractions and chunked parallel loops
//
// Example:
//
//	import (
//	    "github.com/born-ml/strata/backend/cpu"
//	    "github.com/born-ml/strata/tensor"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z, err := x.Add(y) // uses backend.Add under the hood
type Backend = tensor.Backend

// RawTensor is the untyped, buffer-owning tensor that typed tensors wrap.
type RawTensor = tensor.RawTensor

// MaxAllocBytes caps a single tensor buffer.
const MaxAllocBytes = tensor.MaxAllocBytes

// NewRaw allocates a zeroed raw tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromBytes wraps caller-supplied memory without copying it.
// The caller keeps data alive; the tensor never frees or resizes it.
func FromBytes(data []byte, shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.FromBytes(data, shape, dtype)
}

// StackRaw copies items into a new tensor shaped [len(items)] ++ item shape.
func StackRaw(items []*RawTensor) (*RawTensor, error) {
	return tensor.StackRaw(items)
}
