package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when a payload is read through the wrong
	// tag or type token.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrOutOfBounds is returned when an index or offset falls outside the
	// storage it addresses.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrNullObject is returned when accessing the fields of the null object.
	ErrNullObject = errors.New("null object")

	// ErrReleased is returned when reading a foreign object whose payload
	// has already been released.
	ErrReleased = errors.New("foreign object released")

	// ErrTypeSpaceExhausted is returned when no more user TypeIDs are left.
	ErrTypeSpaceExhausted = errors.New("type id space exhausted")
)

// TypeMismatchError describes a read through the wrong tag or type token.
// It unwraps to ErrTypeMismatch.
type TypeMismatchError struct {
	Op   string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: %v: want %s, got %s", e.Op, ErrTypeMismatch, e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

func mismatch(op string, want, got fmt.Stringer) *TypeMismatchError {
	return &TypeMismatchError{Op: op, Want: want.String(), Got: got.String()}
}
