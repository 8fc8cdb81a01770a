package bytecode

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/tliron/commonlog"

	"github.com/liquid600pgm/rod/vm"
)

var log = commonlog.GetLogger("rod.bytecode")

// Validate checks every chunk in the script and returns all problems found,
// aggregated into one error, or nil if the script is well formed.
func (s *Script) Validate() error {
	var result *multierror.Error

	if s.main == nil {
		result = multierror.Append(result, fmt.Errorf("script has no entry chunk"))
	} else if err := ValidateChunk(s.main, len(s.procs)); err != nil {
		result = multierror.Append(result, prefixErrors("main", err)...)
	}

	seen := make(map[string]int, len(s.procs))
	for i, p := range s.procs {
		if p == nil {
			result = multierror.Append(result, fmt.Errorf("proc %d is nil", i))
			continue
		}
		if first, dup := seen[p.Name()]; dup {
			result = multierror.Append(result, fmt.Errorf("proc %d: name %q already used by proc %d", i, p.Name(), first))
		} else {
			seen[p.Name()] = i
		}
		if !p.IsNative() {
			continue
		}
		if p.Chunk() == nil {
			result = multierror.Append(result, fmt.Errorf("proc %d (%s): native proc has no chunk", i, p.Name()))
			continue
		}
		if err := ValidateChunk(p.Chunk(), len(s.procs)); err != nil {
			result = multierror.Append(result, prefixErrors(fmt.Sprintf("proc %d (%s)", i, p.Name()), err)...)
		}
	}

	err := result.ErrorOrNil()
	if err != nil {
		log.Debugf("script %s: %d problems", s.id, len(result.Errors))
	} else {
		log.Debugf("script %s: valid, %d procs", s.id, len(s.procs))
	}
	return err
}

// ValidateChunk decodes c and checks its operands. procCount bounds direct
// call targets. Decoding stops at the first unknown opcode or truncated
// instruction since the stream cannot be resynchronised after it; all other
// problems are collected.
func ValidateChunk(c *Chunk, procCount int) error {
	var result *multierror.Error

	instrs, err := Instructions(c)
	if err != nil {
		result = multierror.Append(result, err)
	}

	boundaries := make(map[int]bool, len(instrs)+1)
	for _, in := range instrs {
		boundaries[in.Offset] = true
	}
	boundaries[c.Len()] = true

	for _, in := range instrs {
		switch {
		case in.Op.IsJump():
			if err := checkJump(in, boundaries); err != nil {
				result = multierror.Append(result, err)
			}
		case in.Op == OpCallD:
			if in.Args[0] >= procCount {
				result = multierror.Append(result, fmt.Errorf("offset %d: call to proc %d, table has %d: %w",
					in.Offset, in.Args[0], procCount, ErrInvalidCall))
			}
		case in.Op == OpPushString:
			if in.Args[0] >= c.StringCount() {
				result = multierror.Append(result, fmt.Errorf("offset %d: string %d, table has %d: %w",
					in.Offset, in.Args[0], c.StringCount(), ErrInvalidString))
			}
		case in.Op == OpConstrObj:
			if vm.TypeID(in.Args[0]) < vm.FirstUserType || in.Args[0] > int(vm.MaxTypeID) {
				result = multierror.Append(result, &vm.TypeMismatchError{
					Op:   fmt.Sprintf("offset %d: %s", in.Offset, in.Op),
					Want: "user type",
					Got:  fmt.Sprintf("type %d", in.Args[0]),
				})
			}
		}
	}

	for _, offset := range c.Holes() {
		result = multierror.Append(result, fmt.Errorf("offset %d: %w", offset, ErrUnpatchedHole))
	}

	return result.ErrorOrNil()
}

func checkJump(in Instruction, boundaries map[int]bool) error {
	target, _ := in.Target()
	if !boundaries[target] {
		return fmt.Errorf("offset %d: %s to %d is not an instruction boundary: %w", in.Offset, in.Op, target, ErrInvalidJump)
	}
	if in.Op.IsForwardJump() && target <= in.Offset {
		return fmt.Errorf("offset %d: %s to %d does not go forward: %w", in.Offset, in.Op, target, ErrInvalidJump)
	}
	if in.Op == OpJumpBack && target > in.Offset {
		return fmt.Errorf("offset %d: %s to %d does not go back: %w", in.Offset, in.Op, target, ErrInvalidJump)
	}
	return nil
}

// prefixErrors flattens a chunk's aggregated errors and labels each one with
// the chunk it came from, keeping the wrapped sentinels reachable.
func prefixErrors(label string, err error) []error {
	var errs []error
	if merr, ok := err.(*multierror.Error); ok {
		errs = merr.Errors
	} else {
		errs = []error{err}
	}
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = fmt.Errorf("%s: %w", label, e)
	}
	return out
}
