package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/tensor"
)

// ReadSafeTensors loads every tensor of a SafeTensors file into owning tensors.
func ReadSafeTensors(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open file")
	}
	defer func() {
		_ = file.Close()
	}()
	return ReadFrom(file)
}

// ReadFrom decodes a SafeTensors stream.
//
// Offsets are validated before any tensor is materialized; if the metadata
// carries a checksum, the data section must match it.
func ReadFrom(r io.Reader) (map[string]*tensor.RawTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read header size")
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read header")
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &entries); err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse header")
	}

	var metadata map[string]string
	if raw, ok := entries[metadataKey]; ok {
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil, nil, errors.Wrap(err, "failed to parse metadata")
		}
		delete(entries, metadataKey)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read tensor data")
	}
	if sum, ok := metadata[ChecksumKey]; ok {
		if err := ValidateChecksum(data, sum); err != nil {
			return nil, nil, err
		}
	}

	headers := make(map[string]SafeTensorHeader, len(entries))
	metas := make([]TensorMeta, 0, len(entries))
	for name, raw := range entries {
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		var h SafeTensorHeader
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to parse tensor %s", name)
		}
		headers[name] = h
		metas = append(metas, TensorMeta{
			Name:   name,
			Offset: h.DataOffsets[0],
			Size:   h.DataOffsets[1] - h.DataOffsets[0],
		})
	}
	if err := ValidateTensorOffsets(metas, int64(len(data))); err != nil {
		return nil, nil, err
	}

	tensors := make(map[string]*tensor.RawTensor, len(headers))
	for _, meta := range metas {
		raw, err := decodeTensor(meta, headers[meta.Name], data)
		if err != nil {
			return nil, nil, err
		}
		tensors[meta.Name] = raw
	}
	return tensors, metadata, nil
}

// decodeTensor copies one tensor's bytes into a fresh owning tensor.
func decodeTensor(meta TensorMeta, h SafeTensorHeader, data []byte) (*tensor.RawTensor, error) {
	dtype, ok := safeTensorsToDtype(h.DType)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDType, "tensor %s: %q", meta.Name, h.DType)
	}
	shape := make(tensor.Shape, len(h.Shape))
	for i, dim := range h.Shape {
		shape[i] = int(dim)
	}
	if len(shape) == 0 {
		shape = tensor.Shape{1}
	}
	if want := int64(shape.NumElements() * dtype.Size()); want != meta.Size {
		return nil, &ValidationError{
			Kind:    ErrOutOfBounds,
			Tensor:  meta.Name,
			Details: "byte range does not match shape and dtype",
		}
	}

	raw, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		return nil, errors.Wrapf(err, "tensor %s", meta.Name)
	}
	copy(raw.Data(), data[meta.Offset:meta.Offset+meta.Size])
	return raw, nil
}
