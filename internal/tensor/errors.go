package tensor

import "github.com/pkg/errors"

// Error classes returned by tensor, layer and model operations.
// Callers classify failures with errors.Is; the returned errors carry
// the offending shapes or identities as context.
var (
	// ErrShapeMismatch reports operands or parameters that disagree in shape
	// where equality or a compatible contraction is required.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidArgument reports a malformed request, e.g. a non-positive
	// dimension or a layer bound to more predecessors than it supports.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAllocation reports that a buffer of the requested size could not be obtained.
	ErrAllocation = errors.New("allocation failure")

	// ErrOwnership reports a buffer operation attempted by a tensor that does
	// not own the buffer, or on a buffer that is still borrowed by views.
	ErrOwnership = errors.New("ownership violation")

	// ErrUnsupportedDType reports an operation that has no kernel for the data type.
	ErrUnsupportedDType = errors.New("unsupported data type")
)

// shapeMismatch wraps ErrShapeMismatch with the operation name and both shapes.
func shapeMismatch(op string, a, b Shape) error {
	return errors.Wrapf(ErrShapeMismatch, "%s: %v vs %v", op, a, b)
}
