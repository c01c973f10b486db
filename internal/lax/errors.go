package lax

import (
	"errors"
	"fmt"
)

// Error classes raised by primitives. Match with errors.Is.
var (
	// ErrShape is raised for operand type or shape errors.
	ErrShape = errors.New("type error")
	// ErrValue is raised for invalid static parameter values.
	ErrValue = errors.New("value error")
	// ErrUnimplemented is raised for operand kinds a kernel does not cover.
	ErrUnimplemented = errors.New("not implemented")
	// ErrNoImpl is raised when a primitive has no eager kernel.
	ErrNoImpl = errors.New("no implementation registered")
)

// Error is a primitive failure with its class.
type Error struct {
	Kind      error
	Primitive string
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lax: %s: %s: %s", e.Primitive, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func errorf(kind error, p *Primitive, format string, args ...any) error {
	return &Error{Kind: kind, Primitive: p.Name(), Msg: fmt.Sprintf(format, args...)}
}
