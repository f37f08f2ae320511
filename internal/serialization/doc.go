// Package serialization reads and writes tensors in the SafeTensors format.
//
// The model driver stores its parameters through this package:
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON object, tensor name -> {dtype, shape, data_offsets}]
//	  [Tensor data: raw little-endian bytes, tensors in name order]
//
// The optional "__metadata__" header entry holds string pairs. The writer
// records a SHA-256 checksum of the data section there and the reader
// verifies it when present.
//
// Example usage:
//
//	err := serialization.WriteSafeTensors("weights.safetensors", stateDict, nil)
//
//	stateDict, metadata, err := serialization.ReadSafeTensors("weights.safetensors")
package serialization
