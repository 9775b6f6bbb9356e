package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrType reports an argument of the wrong kind, such as a handle that
	// does not belong to the model.
	ErrType = errors.New("scheduling: wrong argument type")

	// ErrValue reports structurally invalid input: inverted bounds,
	// mismatched lengths, negative cardinalities and the like.
	ErrValue = errors.New("scheduling: invalid value")

	// ErrUnsupported reports a constraint shape that cannot be compiled,
	// for example a cumulative decomposition over too many time points.
	ErrUnsupported = errors.New("scheduling: unsupported")
)

// ValueError describes which argument was rejected and why. It unwraps to
// ErrValue.
type ValueError struct {
	Op     string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ValueError) Unwrap() error { return ErrValue }

func valueErrorf(op, format string, args ...any) error {
	return &ValueError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func typeErrorf(op, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrType)
}

func unsupportedf(op, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrUnsupported)
}
