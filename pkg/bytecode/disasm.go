package bytecode

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/liquid600pgm/rod/vm"
)

// DisasmOptions controls the disassembly listing.
type DisasmOptions struct {
	Name  string           // header name, omitted when empty
	Color bool             // colourise opcodes, operands and comments
	Lines bool             // annotate each instruction with its source position
	Types *vm.TypeRegistry // resolves CONSTR_OBJ type names when set
}

// palette holds the colours of one listing. Each listing builds its own so
// the Color option does not depend on the process-wide color.NoColor.
type palette struct {
	offset, opcode, operand, comment *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		offset:  color.New(color.FgHiBlack),
		opcode:  color.New(color.FgCyan, color.Bold),
		operand: color.New(color.FgYellow),
		comment: color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.offset, p.opcode, p.operand, p.comment} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Disassemble returns a human-readable listing of the chunk.
func Disassemble(c *Chunk, opts DisasmOptions) string {
	var sb strings.Builder
	disassembleChunk(&sb, c, nil, opts, newPalette(opts.Color))
	return sb.String()
}

// Disassemble returns a listing of the entry chunk followed by every proc
// in table order.
func (s *Script) Disassemble(opts DisasmOptions) string {
	pal := newPalette(opts.Color)
	var sb strings.Builder

	mainOpts := opts
	if mainOpts.Name == "" {
		mainOpts.Name = "main"
	}
	if s.main != nil {
		disassembleChunk(&sb, s.main, s, mainOpts, pal)
	}

	for i, p := range s.procs {
		if p == nil {
			continue
		}
		sb.WriteString("\n")
		if p.IsForeign() {
			fmt.Fprintf(&sb, "; === proc %d: %s (foreign, %d params) ===\n", i, p.Name(), p.ParamCount())
			continue
		}
		procOpts := opts
		procOpts.Name = fmt.Sprintf("proc %d: %s (%d params, stack %d)", i, p.Name(), p.ParamCount(), p.StackSize())
		if p.Chunk() != nil {
			disassembleChunk(&sb, p.Chunk(), s, procOpts, pal)
		}
	}
	return sb.String()
}

func disassembleChunk(sb *strings.Builder, c *Chunk, s *Script, opts DisasmOptions, pal palette) {
	if opts.Name != "" {
		fmt.Fprintf(sb, "; === %s ===\n", opts.Name)
	}
	if c.Filename() != "" {
		fmt.Fprintf(sb, "; File: %s\n", c.Filename())
	}

	if c.StringCount() > 0 {
		sb.WriteString("; Strings:\n")
		for i := 0; i < c.StringCount(); i++ {
			str, _ := c.StringAt(i)
			fmt.Fprintf(sb, ";   [%3d] %s\n", i, vm.StringOf(vm.FromString(truncate(str, 40))))
		}
	}

	sb.WriteString("; Code:\n")
	for offset := 0; offset < c.Len(); {
		in, err := Decode(c, offset)
		if err != nil {
			fmt.Fprintf(sb, "%s  %s\n", pal.offset.Sprintf("%04X", offset), pal.comment.Sprintf("; %v", err))
			return
		}

		text, comment := formatInstruction(c, s, in, opts)
		line := pal.opcode.Sprint(in.Op.String())
		width := len(in.Op.String())
		if text != "" {
			line += " " + pal.operand.Sprint(text)
			width += 1 + len(text)
		}
		if opts.Lines {
			pos := c.GetLineInfo(in.Offset)
			if comment != "" {
				comment += ", "
			}
			comment += "line " + pos.String()
		}
		if comment != "" {
			if width < 30 {
				line += strings.Repeat(" ", 30-width)
			}
			line += " " + pal.comment.Sprint("; "+comment)
		}
		fmt.Fprintf(sb, "%s  %s\n", pal.offset.Sprintf("%04X", in.Offset), line)
		offset = in.Next()
	}
}

// formatInstruction renders the operands of in and an optional comment.
func formatInstruction(c *Chunk, s *Script, in Instruction, opts DisasmOptions) (string, string) {
	switch in.Op {
	case OpPushNumber:
		return in.Const.String(), ""

	case OpPushString:
		str, err := c.StringAt(in.Args[0])
		if err != nil {
			return strconv.Itoa(in.Args[0]), "<bad string>"
		}
		return strconv.Itoa(in.Args[0]), vm.StringOf(vm.FromString(truncate(str, 20)))

	case OpJumpFwd, OpJumpFwdT, OpJumpFwdF, OpJumpBack:
		return fmt.Sprintf("-> %04X", in.Args[0]), ""

	case OpCallD:
		if s != nil {
			if p, ok := s.ProcAt(in.Args[0]); ok && p != nil {
				return strconv.Itoa(in.Args[0]), p.Name()
			}
			return strconv.Itoa(in.Args[0]), "<bad proc>"
		}
		return strconv.Itoa(in.Args[0]), ""

	case OpCallI:
		return fmt.Sprintf("argc=%d", in.Args[0]), ""

	case OpConstrObj:
		text := fmt.Sprintf("%d fields=%d", in.Args[0], in.Args[1])
		if opts.Types != nil {
			return text, opts.Types.Name(vm.TypeID(in.Args[0]))
		}
		return text, ""
	}

	if len(in.Args) == 0 {
		return "", ""
	}
	parts := make([]string, len(in.Args))
	for i, a := range in.Args {
		parts[i] = strconv.Itoa(a)
	}
	return strings.Join(parts, " "), ""
}

// truncate shortens s to at most n bytes, cutting on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// DisassembleInstruction returns the listing line of the instruction at
// offset, without offset or comment.
func DisassembleInstruction(c *Chunk, offset int) (string, error) {
	in, err := Decode(c, offset)
	if err != nil {
		return "", err
	}
	text, _ := formatInstruction(c, nil, in, DisasmOptions{})
	if text == "" {
		return in.Op.String(), nil
	}
	return in.Op.String() + " " + text, nil
}
