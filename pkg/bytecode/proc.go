package bytecode

import (
	"fmt"

	"github.com/liquid600pgm/rod/vm"
)

// ProcKind tells a native proc from a foreign one.
type ProcKind uint8

const (
	NativeProc  ProcKind = iota + 1 // compiled to bytecode
	ForeignProc                     // implemented by the host
)

// String returns the kind name.
func (k ProcKind) String() string {
	switch k {
	case NativeProc:
		return "native"
	case ForeignProc:
		return "foreign"
	default:
		return fmt.Sprintf("ProcKind(%d)", k)
	}
}

// ForeignFunc is the calling convention of host functions: it receives a
// view over its arguments on the runtime stack and returns exactly one
// Value. There is no error channel; a host function that fails reports it
// as a value.
type ForeignFunc func(args []vm.Value) vm.Value

// Proc is a procedure in a script's proc table. A native proc owns the
// chunk it was compiled to; a foreign proc names a host function that may
// be bound at construction time. Procs are immutable once built.
type Proc struct {
	name       string
	kind       ProcKind
	paramCount int

	// Native
	chunk     *Chunk
	stackSize int

	// Foreign
	fn ForeignFunc
}

// NewNativeProc creates a proc backed by chunk. stackSize is the stack
// depth the proc needs beyond its parameters.
func NewNativeProc(name string, paramCount int, chunk *Chunk, stackSize int) *Proc {
	return &Proc{
		name:       name,
		kind:       NativeProc,
		paramCount: paramCount,
		chunk:      chunk,
		stackSize:  stackSize,
	}
}

// NewForeignProc creates a proc implemented by the host. fn may be nil for
// a proc that is declared but not bound yet.
func NewForeignProc(name string, paramCount int, fn ForeignFunc) *Proc {
	return &Proc{
		name:       name,
		kind:       ForeignProc,
		paramCount: paramCount,
		fn:         fn,
	}
}

func (p *Proc) Name() string      { return p.name }
func (p *Proc) Kind() ProcKind    { return p.kind }
func (p *Proc) ParamCount() int   { return p.paramCount }
func (p *Proc) IsNative() bool    { return p.kind == NativeProc }
func (p *Proc) IsForeign() bool   { return p.kind == ForeignProc }
func (p *Proc) Chunk() *Chunk     { return p.chunk }
func (p *Proc) StackSize() int    { return p.stackSize }
func (p *Proc) IsBound() bool     { return p.fn != nil }
func (p *Proc) String() string    { return fmt.Sprintf("%s proc %s/%d", p.kind, p.name, p.paramCount) }
func (p *Proc) Func() ForeignFunc { return p.fn }

// Invoke calls a foreign proc's host function with args.
//
// Native procs cannot be invoked here; they run on the executor.
func (p *Proc) Invoke(args []vm.Value) (vm.Value, error) {
	if p.kind != ForeignProc {
		return vm.Nil(), fmt.Errorf("invoke %s: %w", p.name, ErrNotForeign)
	}
	if p.fn == nil {
		return vm.Nil(), fmt.Errorf("invoke %s: %w", p.name, ErrUnbound)
	}
	if len(args) != p.paramCount {
		return vm.Nil(), fmt.Errorf("invoke %s: want %d arguments, got %d: %w", p.name, p.paramCount, len(args), ErrArity)
	}
	return p.fn(args), nil
}
