// Package asm assembles textual bytecode listings into scripts.
//
// A listing is line oriented:
//
//	.type Point               ; register a user type
//	.foreign print 1          ; declare a host proc
//	.proc add 2 4             ; native proc: name, params, stack size
//	    push_local 0
//	    push_local 1
//	    add_n
//	    return_val
//	.end
//	.main
//	    push_number 10
//	    push_number 20
//	    call_d add
//	    jump_fwd_f done
//	    push_string "big"
//	done:
//	    halt
//	.end
//
// Mnemonics are the lower-case opcode names. Jump operands name a label in
// the same block; forward references are reserved and patched when the
// label is defined. call_d takes a proc name, constr_obj a type name, and
// push_string a quoted literal; all of them also accept a plain number.
// Source positions are recorded from the line and column of each
// instruction unless overridden with ".line L C" (".line auto" restores).
package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/tliron/commonlog"

	"github.com/liquid600pgm/rod/pkg/bytecode"
	"github.com/liquid600pgm/rod/vm"
)

var log = commonlog.GetLogger("rod.asm")

var (
	ErrSyntax         = errors.New("syntax error")
	ErrUnknownOpcode  = errors.New("unknown mnemonic")
	ErrUndefinedLabel = errors.New("undefined label")
	ErrDuplicate      = errors.New("duplicate definition")
	ErrUnknownProc    = errors.New("unknown proc")
	ErrUnknownType    = errors.New("unknown type")
	ErrRange          = errors.New("operand out of range")
)

// Error is an assembly problem at a source line.
type Error struct {
	File string
	Line int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options configures an assembly.
type Options struct {
	// Types resolves and receives .type names. A private registry is used
	// when nil.
	Types *vm.TypeRegistry

	// DefaultStack is the stack size of .proc blocks that omit one.
	DefaultStack int
}

// Assemble assembles src, named name in positions and errors, into a script.
func Assemble(name, src string, reg *vm.TypeRegistry) (*bytecode.Script, error) {
	return AssembleWith(name, src, Options{Types: reg})
}

// AssembleWith is Assemble with explicit options. All problems in the
// listing are reported together.
func AssembleWith(name, src string, opts Options) (*bytecode.Script, error) {
	if opts.Types == nil {
		opts.Types = vm.NewTypeRegistry()
	}
	a := &assembler{
		file:    name,
		opts:    opts,
		procIDs: make(map[string]int),
	}

	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	a.declareProcs(lines)
	for i, line := range lines {
		a.line = i + 1
		if err := a.assembleLine(line); err != nil {
			a.fail(err)
		}
	}
	a.line = len(lines)
	if a.cur != nil {
		a.fail(fmt.Errorf("block %s is not closed with .end: %w", a.cur.name, ErrSyntax))
	}
	if a.main == nil {
		a.fail(fmt.Errorf("no .main block: %w", ErrSyntax))
	}

	if err := a.errs.ErrorOrNil(); err != nil {
		log.Debugf("%s: %d errors", name, len(a.errs.Errors))
		return nil, err
	}
	log.Debugf("%s: assembled %d procs, main is %d bytes", name, len(a.procs), a.main.Len())
	return bytecode.NewScript(a.main, a.procs), nil
}

// ---------------------------------------------------------------------------
// Assembler state
// ---------------------------------------------------------------------------

type assembler struct {
	file string
	opts Options
	line int

	procIDs map[string]int
	procs   []*bytecode.Proc
	main    *bytecode.Chunk

	cur  *block
	errs *multierror.Error
}

// block is a .proc or .main body being assembled.
type block struct {
	name   string
	isMain bool
	params int
	stack  int
	chunk  *bytecode.Chunk

	labels  map[string]int
	pending map[string][]fixup

	// Fixed position from .line, or nil to track the source.
	fixed *[2]int
}

// fixup is a reserved jump operand waiting for its label.
type fixup struct {
	hole int
	line int
}

func (a *assembler) fail(err error) {
	a.errs = multierror.Append(a.errs, &Error{File: a.file, Line: a.line, Err: err})
}

// declareProcs assigns proc ids in declaration order so calls can name procs
// defined further down.
func (a *assembler) declareProcs(lines []string) {
	for i, line := range lines {
		toks, err := tokenize(line)
		if err != nil || len(toks) < 2 {
			continue
		}
		if toks[0].text != ".proc" && toks[0].text != ".foreign" {
			continue
		}
		name := toks[1].text
		if _, dup := a.procIDs[name]; dup {
			a.line = i + 1
			a.fail(fmt.Errorf("proc %s: %w", name, ErrDuplicate))
			continue
		}
		a.procIDs[name] = len(a.procIDs)
	}
	a.procs = make([]*bytecode.Proc, len(a.procIDs))
}

func (a *assembler) assembleLine(line string) error {
	toks, err := tokenize(line)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		return nil
	}

	if strings.HasPrefix(toks[0].text, ".") {
		return a.directive(toks)
	}

	if label, ok := strings.CutSuffix(toks[0].text, ":"); ok {
		if err := a.defineLabel(label); err != nil {
			return err
		}
		toks = toks[1:]
		if len(toks) == 0 {
			return nil
		}
	}
	return a.instruction(toks)
}

// ---------------------------------------------------------------------------
// Directives
// ---------------------------------------------------------------------------

func (a *assembler) directive(toks []token) error {
	dir, args := toks[0].text, toks[1:]
	switch dir {
	case ".type":
		if len(args) != 1 {
			return fmt.Errorf(".type wants a name: %w", ErrSyntax)
		}
		id, err := a.opts.Types.Register(args[0].text, nil)
		if err != nil {
			return err
		}
		log.Debugf("type %s = %d", args[0].text, id)
		return nil

	case ".proc":
		if a.cur != nil {
			return fmt.Errorf(".proc inside %s: %w", a.cur.name, ErrSyntax)
		}
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf(".proc wants name, params and optional stack size: %w", ErrSyntax)
		}
		params, err := parseInt(args[1].text, 0xFF)
		if err != nil {
			return err
		}
		stack := a.opts.DefaultStack
		if len(args) == 3 {
			if stack, err = parseInt(args[2].text, 0xFFFF); err != nil {
				return err
			}
		}
		a.open(args[0].text, false, params, stack)
		return nil

	case ".foreign":
		if a.cur != nil {
			return fmt.Errorf(".foreign inside %s: %w", a.cur.name, ErrSyntax)
		}
		if len(args) != 2 {
			return fmt.Errorf(".foreign wants name and params: %w", ErrSyntax)
		}
		params, err := parseInt(args[1].text, 0xFF)
		if err != nil {
			return err
		}
		if id, ok := a.procIDs[args[0].text]; ok && a.procs[id] == nil {
			a.procs[id] = bytecode.NewForeignProc(args[0].text, params, nil)
		}
		return nil

	case ".main":
		if a.cur != nil {
			return fmt.Errorf(".main inside %s: %w", a.cur.name, ErrSyntax)
		}
		if a.main != nil {
			return fmt.Errorf(".main: %w", ErrDuplicate)
		}
		a.open("main", true, 0, 0)
		return nil

	case ".end":
		if a.cur == nil {
			return fmt.Errorf(".end outside a block: %w", ErrSyntax)
		}
		return a.close()

	case ".line":
		if a.cur == nil {
			return fmt.Errorf(".line outside a block: %w", ErrSyntax)
		}
		if len(args) == 1 && args[0].text == "auto" {
			a.cur.fixed = nil
			return nil
		}
		if len(args) != 2 {
			return fmt.Errorf(".line wants line and column, or auto: %w", ErrSyntax)
		}
		l, err := parseInt(args[0].text, 1<<31-1)
		if err != nil {
			return err
		}
		c, err := parseInt(args[1].text, 1<<31-1)
		if err != nil {
			return err
		}
		a.cur.fixed = &[2]int{l, c}
		return nil

	default:
		return fmt.Errorf("unknown directive %s: %w", dir, ErrSyntax)
	}
}

func (a *assembler) open(name string, isMain bool, params, stack int) {
	a.cur = &block{
		name:    name,
		isMain:  isMain,
		params:  params,
		stack:   stack,
		chunk:   bytecode.NewChunk(a.file),
		labels:  make(map[string]int),
		pending: make(map[string][]fixup),
	}
}

func (a *assembler) close() error {
	b := a.cur
	a.cur = nil

	if len(b.pending) > 0 {
		var missing []string
		for label := range b.pending {
			missing = append(missing, label)
		}
		for _, label := range sortedStrings(missing) {
			a.errs = multierror.Append(a.errs, &Error{
				File: a.file,
				Line: b.pending[label][0].line,
				Err:  fmt.Errorf("%s: %s: %w", b.name, label, ErrUndefinedLabel),
			})
		}
		return nil
	}

	if b.isMain {
		a.main = b.chunk
	} else if id, ok := a.procIDs[b.name]; ok && a.procs[id] == nil {
		a.procs[id] = bytecode.NewNativeProc(b.name, b.params, b.chunk, b.stack)
	}
	log.Debugf("%s: %d bytes, %d labels", b.name, b.chunk.Len(), len(b.labels))
	return nil
}

// ---------------------------------------------------------------------------
// Labels and instructions
// ---------------------------------------------------------------------------

func (a *assembler) defineLabel(label string) error {
	b := a.cur
	if b == nil {
		return fmt.Errorf("label %s outside a block: %w", label, ErrSyntax)
	}
	if !isIdent(label) {
		return fmt.Errorf("bad label %q: %w", label, ErrSyntax)
	}
	if _, dup := b.labels[label]; dup {
		return fmt.Errorf("label %s: %w", label, ErrDuplicate)
	}

	target := b.chunk.Len()
	if target > 0xFFFF {
		return fmt.Errorf("label %s at %d: %w", label, target, ErrRange)
	}
	b.labels[label] = target
	for _, f := range b.pending[label] {
		if err := b.chunk.PatchU16(f.hole, uint16(target)); err != nil {
			return err
		}
	}
	delete(b.pending, label)
	return nil
}

func (a *assembler) instruction(toks []token) error {
	b := a.cur
	if b == nil {
		return fmt.Errorf("instruction %s outside a block: %w", toks[0].text, ErrSyntax)
	}

	op, ok := bytecode.LookupMnemonic(toks[0].text)
	if !ok {
		return fmt.Errorf("%s: %w", toks[0].text, ErrUnknownOpcode)
	}
	info := bytecode.GetOpcodeInfo(op)
	args := toks[1:]
	if len(args) != len(info.Operands) {
		return fmt.Errorf("%s wants %d operands, got %d: %w", toks[0].text, len(info.Operands), len(args), ErrSyntax)
	}

	if b.fixed != nil {
		b.chunk.SetPosition(b.fixed[0], b.fixed[1])
	} else {
		b.chunk.SetPosition(a.line, toks[0].col)
	}

	b.chunk.Emit(op)
	for i, shape := range info.Operands {
		if err := a.operand(op, i, shape, args[i].text); err != nil {
			return fmt.Errorf("%s operand %d: %w", toks[0].text, i+1, err)
		}
	}
	return nil
}

func (a *assembler) operand(op bytecode.Opcode, i int, shape bytecode.Operand, text string) error {
	c := a.cur.chunk

	switch shape {
	case bytecode.OperandValue:
		v, err := parseConstant(text)
		if err != nil {
			return err
		}
		_, err = c.EmitValue(v)
		return err

	case bytecode.OperandU8:
		n, err := parseInt(text, 0xFF)
		if err != nil {
			return err
		}
		c.EmitU8(uint8(n))
		return nil
	}

	// u16 operands may be symbolic depending on the opcode.
	switch {
	case op.IsJump() && isIdent(text):
		return a.jumpTarget(text)

	case op == bytecode.OpCallD && isIdent(text):
		id, ok := a.procIDs[text]
		if !ok {
			return fmt.Errorf("%s: %w", text, ErrUnknownProc)
		}
		c.EmitU16(uint16(id))
		return nil

	case op == bytecode.OpPushString && strings.HasPrefix(text, `"`):
		s, err := strconv.Unquote(text)
		if err != nil {
			return fmt.Errorf("string %s: %w", text, ErrSyntax)
		}
		id := c.InternString(s)
		if id > 0xFFFF {
			return fmt.Errorf("string table full: %w", ErrRange)
		}
		c.EmitU16(uint16(id))
		return nil

	case op == bytecode.OpConstrObj && i == 0 && isIdent(text):
		info, ok := a.opts.Types.LookupName(text)
		if !ok {
			return fmt.Errorf("%s: %w", text, ErrUnknownType)
		}
		c.EmitU16(uint16(info.ID))
		return nil
	}

	n, err := parseInt(text, 0xFFFF)
	if err != nil {
		return err
	}
	c.EmitU16(uint16(n))
	return nil
}

// jumpTarget emits a label reference: directly when the label is already
// defined, as a reserved hole otherwise.
func (a *assembler) jumpTarget(label string) error {
	b := a.cur
	if target, ok := b.labels[label]; ok {
		b.chunk.EmitU16(uint16(target))
		return nil
	}
	hole, err := b.chunk.Reserve(2)
	if err != nil {
		return err
	}
	b.pending[label] = append(b.pending[label], fixup{hole: hole, line: a.line})
	return nil
}
