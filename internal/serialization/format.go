package serialization

import (
	"github.com/born-ml/strata/internal/tensor"
)

// metadataKey is the reserved header entry for string metadata.
const metadataKey = "__metadata__"

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// TensorMeta describes a tensor's byte range in the data section.
type TensorMeta struct {
	Name   string // Tensor name (e.g., "dense/kernel")
	Offset int64  // Offset in the data section
	Size   int64  // Size in bytes
}

// dtypeToSafeTensors converts tensor.DataType to SafeTensors dtype string.
func dtypeToSafeTensors(dt tensor.DataType) (string, bool) {
	switch dt {
	case tensor.Float32:
		return "F32", true
	case tensor.Float64:
		return "F64", true
	case tensor.Float16:
		return "F16", true
	case tensor.Int32:
		return "I32", true
	case tensor.Int64:
		return "I64", true
	case tensor.Uint8:
		return "U8", true
	case tensor.Bool:
		return "BOOL", true
	default:
		return "", false
	}
}

// safeTensorsToDtype converts a SafeTensors dtype string to tensor.DataType.
func safeTensorsToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case "F32":
		return tensor.Float32, true
	case "F64":
		return tensor.Float64, true
	case "F16":
		return tensor.Float16, true
	case "I32":
		return tensor.Int32, true
	case "I64":
		return tensor.Int64, true
	case "U8":
		return tensor.Uint8, true
	case "BOOL":
		return tensor.Bool, true
	default:
		return 0, false
	}
}
