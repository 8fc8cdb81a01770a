package bytecode

import (
	"fmt"

	"github.com/liquid600pgm/rod/vm"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Offset int      // offset of the opcode byte
	Op     Opcode   // the opcode
	Args   []int    // integer operands, in stream order
	Const  vm.Value // the constant, for opcodes with a value operand
	Len    int      // total length in bytes
}

// Next returns the offset of the following instruction.
func (in Instruction) Next() int {
	return in.Offset + in.Len
}

// Target returns the jump target of a jump instruction.
func (in Instruction) Target() (int, bool) {
	if !in.Op.IsJump() || len(in.Args) == 0 {
		return 0, false
	}
	return in.Args[0], true
}

// Decode decodes the instruction at offset.
func Decode(c *Chunk, offset int) (Instruction, error) {
	op, err := c.GetOpcode(offset)
	if err != nil {
		return Instruction{}, err
	}
	if !op.IsValid() {
		return Instruction{}, fmt.Errorf("offset %d: 0x%02X: %w", offset, byte(op), ErrUnknownOpcode)
	}

	info := GetOpcodeInfo(op)
	in := Instruction{Offset: offset, Op: op, Len: 1 + info.OperandLen()}
	if offset+in.Len > c.Len() {
		return Instruction{}, fmt.Errorf("offset %d: %s operands truncated: %w", offset, op, ErrOutOfBounds)
	}

	pos := offset + 1
	for _, shape := range info.Operands {
		switch shape {
		case OperandU8:
			b, _ := c.GetU8(pos)
			in.Args = append(in.Args, int(b))
		case OperandU16:
			v, _ := c.GetU16(pos)
			in.Args = append(in.Args, int(v))
		case OperandValue:
			v, err := c.GetValue(pos)
			if err != nil {
				return Instruction{}, fmt.Errorf("offset %d: %s constant: %w", offset, op, err)
			}
			in.Const = v
		}
		pos += shape.Width()
	}
	return in, nil
}

// Instructions decodes the whole chunk from offset 0. Decoding stops at the
// first error, which is returned along with the instructions decoded so far.
func Instructions(c *Chunk) ([]Instruction, error) {
	var out []Instruction
	for offset := 0; offset < c.Len(); {
		in, err := Decode(c, offset)
		if err != nil {
			return out, err
		}
		out = append(out, in)
		offset = in.Next()
	}
	return out, nil
}
