package graph

import (
	"errors"
	"fmt"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

var (
	// ErrNoKernel is wrapped by UnsupportedError.
	ErrNoKernel = errors.New("no registered kernel")
	// ErrInvalidArgument is raised for bad operand types, shapes or values.
	ErrInvalidArgument = errors.New("invalid argument")
)

// UnsupportedError reports an op without a kernel for a dtype on a device.
type UnsupportedError struct {
	Op     string
	DType  dtype.DType
	Device string
	Detail string
}

func (e *UnsupportedError) Error() string {
	msg := fmt.Sprintf("graph: no registered '%s' kernel for %s on %s", e.Op, e.DType, e.Device)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	return msg
}

func (e *UnsupportedError) Unwrap() error { return ErrNoKernel }

func invalidf(op, format string, args ...any) error {
	return fmt.Errorf("graph: %s: %w: %s", op, ErrInvalidArgument, fmt.Sprintf(format, args...))
}
