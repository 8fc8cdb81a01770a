package bytecode

import (
	"errors"

	"github.com/liquid600pgm/rod/vm"
)

var (
	// ErrOutOfBounds is returned when a decode or patch offset falls outside
	// the chunk's code. It is the same sentinel as vm.ErrOutOfBounds.
	ErrOutOfBounds = vm.ErrOutOfBounds

	// ErrInvalidPatch is returned when patching an offset that was not
	// reserved, or with a width different from the reserved one.
	ErrInvalidPatch = errors.New("invalid patch")

	// ErrNotEmbeddable is returned when emitting a Value that cannot be
	// encoded inline as a constant.
	ErrNotEmbeddable = errors.New("value is not embeddable as a constant")

	// ErrUnknownOpcode is returned when decoding a byte that is not part of
	// the opcode catalog.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrInvalidJump is returned by validation for jump targets outside the
	// code, off instruction boundaries, or in the wrong direction.
	ErrInvalidJump = errors.New("invalid jump target")

	// ErrInvalidCall is returned by validation for direct calls to procs
	// outside the script's proc table.
	ErrInvalidCall = errors.New("invalid call target")

	// ErrInvalidString is returned by validation for string ids outside the
	// chunk's string table.
	ErrInvalidString = errors.New("invalid string id")

	// ErrUnpatchedHole is returned by validation for reserved spans that
	// were never patched.
	ErrUnpatchedHole = errors.New("unpatched hole")

	// ErrNotForeign is returned when invoking a native proc as a host function.
	ErrNotForeign = errors.New("proc is not foreign")

	// ErrUnbound is returned when invoking a foreign proc with no host function.
	ErrUnbound = errors.New("foreign proc is unbound")

	// ErrArity is returned when a foreign proc receives the wrong number of
	// arguments.
	ErrArity = errors.New("wrong number of arguments")
)
