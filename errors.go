package topoplot

import (
	"errors"
	"fmt"
)

var (
	ErrShapeMismatch        = errors.New("shape mismatch")
	ErrDegenerateInput      = errors.New("degenerate input")
	ErrInsufficientSamples  = errors.New("insufficient samples")
	ErrConvergence          = errors.New("did not converge")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrUnknownChannel       = errors.New("unknown channel")
	ErrTooManySamples       = errors.New("too many samples")
	ErrUnknownInterpolator  = errors.New("unknown interpolator")
)

// A ConvergenceError is returned when an iterative solver does not reach its
// tolerance within its iteration limit.
type ConvergenceError struct {
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s after %d iterations (residual %g)", ErrConvergence, e.Iterations, e.Residual)
}

func (e *ConvergenceError) Unwrap() error {
	return ErrConvergence
}

// An UnknownChannelError is returned when a channel label is not in any
// supported montage.
type UnknownChannelError struct {
	Label string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownChannel, e.Label)
}

func (e *UnknownChannelError) Unwrap() error {
	return ErrUnknownChannel
}
