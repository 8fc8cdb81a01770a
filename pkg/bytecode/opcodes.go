package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category. The numeric codes are
// written inline into chunks and must never be renumbered.
type Opcode byte

const (
	// ========================================================================
	// Stack and constants (0x00-0x1F)
	// ========================================================================

	OpPushNil    Opcode = 0x00 // Push nil
	OpPushTrue   Opcode = 0x01 // Push true
	OpPushFalse  Opcode = 0x02 // Push false
	OpPushNumber Opcode = 0x03 // Push constant: OpPushNumber <value:ValueSize>
	OpPushString Opcode = 0x04 // Push interned string: OpPushString <id:u16>
	OpPushGlobal Opcode = 0x05 // Push global: OpPushGlobal <index:u16>
	OpPopGlobal  Opcode = 0x06 // Pop into global: OpPopGlobal <index:u16>
	OpPushLocal  Opcode = 0x07 // Push local: OpPushLocal <index:u16>
	OpPopLocal   Opcode = 0x08 // Pop into local: OpPopLocal <index:u16>
	OpConstrObj  Opcode = 0x09 // Construct object: OpConstrObj <type:u16> <fields:u8>
	OpPushField  Opcode = 0x0A // Replace object on TOS with field: OpPushField <index:u16>
	OpPopField   Opcode = 0x0B // Pop value into field of object below: OpPopField <index:u16>
	OpDiscard    Opcode = 0x0C // Pop N values: OpDiscard <count:u8>
	OpNDiscard   Opcode = 0x0D // Pop N values: OpNDiscard <count:u16>

	// ========================================================================
	// Arithmetic on numbers (0x20-0x2F)
	// ========================================================================

	OpNegN  Opcode = 0x20 // Negate TOS
	OpAddN  Opcode = 0x21 // Pop two, push sum
	OpSubN  Opcode = 0x22 // Pop two, push difference (a - b where b is TOS)
	OpMultN Opcode = 0x23 // Pop two, push product
	OpDivN  Opcode = 0x24 // Pop two, push quotient

	// ========================================================================
	// Logic (0x30-0x3F)
	// ========================================================================

	OpInvB Opcode = 0x30 // Invert bool on TOS

	// ========================================================================
	// Relational (0x40-0x4F)
	// ========================================================================

	OpEqB        Opcode = 0x40 // Pop two bools, push equality
	OpEqN        Opcode = 0x41 // Pop two numbers, push a == b
	OpLessN      Opcode = 0x42 // Pop two numbers, push a < b
	OpLessEqN    Opcode = 0x43 // Pop two numbers, push a <= b
	OpGreaterN   Opcode = 0x44 // Pop two numbers, push a > b
	OpGreaterEqN Opcode = 0x45 // Pop two numbers, push a >= b

	// ========================================================================
	// Control flow (0x50-0x5F)
	// ========================================================================

	OpJumpFwd    Opcode = 0x50 // Unconditional jump: OpJumpFwd <target:u16>
	OpJumpFwdT   Opcode = 0x51 // Jump if TOS is true: OpJumpFwdT <target:u16>
	OpJumpFwdF   Opcode = 0x52 // Jump if TOS is false: OpJumpFwdF <target:u16>
	OpJumpBack   Opcode = 0x53 // Backward jump: OpJumpBack <target:u16>
	OpCallD      Opcode = 0x54 // Direct call: OpCallD <proc:u16>
	OpCallI      Opcode = 0x55 // Indirect call of proc on stack: OpCallI <argc:u8>
	OpReturnVal  Opcode = 0x56 // Return TOS from the current proc
	OpReturnVoid Opcode = 0x57 // Return nothing from the current proc
	OpHalt       Opcode = 0x5F // Stop execution
)

// Operand describes the fixed-width encoding of one instruction operand.
type Operand uint8

const (
	OperandU8    Operand = 1 // 1 byte
	OperandU16   Operand = 2 // 2 bytes, little-endian
	OperandValue Operand = 3 // ValueSize bytes, see Chunk.EmitValue
)

// Width returns the number of bytes the operand occupies in the stream.
func (o Operand) Width() int {
	switch o {
	case OperandU8:
		return 1
	case OperandU16:
		return 2
	case OperandValue:
		return ValueSize
	default:
		return 0
	}
}

// String returns the operand shape name.
func (o Operand) String() string {
	switch o {
	case OperandU8:
		return "u8"
	case OperandU16:
		return "u16"
	case OperandValue:
		return "value"
	default:
		return fmt.Sprintf("Operand(%d)", o)
	}
}

// Category groups opcodes the way the executor dispatches on them.
type Category uint8

const (
	CategoryStack Category = iota + 1
	CategoryArithmetic
	CategoryLogic
	CategoryRelational
	CategoryControl
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryStack:
		return "stack"
	case CategoryArithmetic:
		return "arithmetic"
	case CategoryLogic:
		return "logic"
	case CategoryRelational:
		return "relational"
	case CategoryControl:
		return "control"
	default:
		return fmt.Sprintf("Category(%d)", c)
	}
}

// OpcodeInfo provides metadata about each opcode for decoding and validation.
type OpcodeInfo struct {
	Name      string    // Human-readable name
	Mnemonic  string    // Assembler spelling
	Category  Category  // Dispatch group
	Operands  []Operand // Operand shapes, in stream order
	StackPop  int       // Values popped (-1 = depends on operand)
	StackPush int       // Values pushed
}

// OperandLen returns the total number of operand bytes.
func (info OpcodeInfo) OperandLen() int {
	n := 0
	for _, o := range info.Operands {
		n += o.Width()
	}
	return n
}

var (
	noOperands   = []Operand(nil)
	u8Operand    = []Operand{OperandU8}
	u16Operand   = []Operand{OperandU16}
	valueOperand = []Operand{OperandValue}
)

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack and constants
	OpPushNil:    {"PUSH_NIL", "push_nil", CategoryStack, noOperands, 0, 1},
	OpPushTrue:   {"PUSH_TRUE", "push_true", CategoryStack, noOperands, 0, 1},
	OpPushFalse:  {"PUSH_FALSE", "push_false", CategoryStack, noOperands, 0, 1},
	OpPushNumber: {"PUSH_NUMBER", "push_number", CategoryStack, valueOperand, 0, 1},
	OpPushString: {"PUSH_STRING", "push_string", CategoryStack, u16Operand, 0, 1},
	OpPushGlobal: {"PUSH_GLOBAL", "push_global", CategoryStack, u16Operand, 0, 1},
	OpPopGlobal:  {"POP_GLOBAL", "pop_global", CategoryStack, u16Operand, 1, 0},
	OpPushLocal:  {"PUSH_LOCAL", "push_local", CategoryStack, u16Operand, 0, 1},
	OpPopLocal:   {"POP_LOCAL", "pop_local", CategoryStack, u16Operand, 1, 0},
	OpConstrObj:  {"CONSTR_OBJ", "constr_obj", CategoryStack, []Operand{OperandU16, OperandU8}, -1, 1},
	OpPushField:  {"PUSH_FIELD", "push_field", CategoryStack, u16Operand, 1, 1},
	OpPopField:   {"POP_FIELD", "pop_field", CategoryStack, u16Operand, 2, 0},
	OpDiscard:    {"DISCARD", "discard", CategoryStack, u8Operand, -1, 0},
	OpNDiscard:   {"NDISCARD", "ndiscard", CategoryStack, u16Operand, -1, 0},

	// Arithmetic
	OpNegN:  {"NEG_N", "neg_n", CategoryArithmetic, noOperands, 1, 1},
	OpAddN:  {"ADD_N", "add_n", CategoryArithmetic, noOperands, 2, 1},
	OpSubN:  {"SUB_N", "sub_n", CategoryArithmetic, noOperands, 2, 1},
	OpMultN: {"MULT_N", "mult_n", CategoryArithmetic, noOperands, 2, 1},
	OpDivN:  {"DIV_N", "div_n", CategoryArithmetic, noOperands, 2, 1},

	// Logic
	OpInvB: {"INV_B", "inv_b", CategoryLogic, noOperands, 1, 1},

	// Relational
	OpEqB:        {"EQ_B", "eq_b", CategoryRelational, noOperands, 2, 1},
	OpEqN:        {"EQ_N", "eq_n", CategoryRelational, noOperands, 2, 1},
	OpLessN:      {"LESS_N", "less_n", CategoryRelational, noOperands, 2, 1},
	OpLessEqN:    {"LESS_EQ_N", "less_eq_n", CategoryRelational, noOperands, 2, 1},
	OpGreaterN:   {"GREATER_N", "greater_n", CategoryRelational, noOperands, 2, 1},
	OpGreaterEqN: {"GREATER_EQ_N", "greater_eq_n", CategoryRelational, noOperands, 2, 1},

	// Control flow
	OpJumpFwd:    {"JUMP_FWD", "jump_fwd", CategoryControl, u16Operand, 0, 0},
	OpJumpFwdT:   {"JUMP_FWD_T", "jump_fwd_t", CategoryControl, u16Operand, 1, 0},
	OpJumpFwdF:   {"JUMP_FWD_F", "jump_fwd_f", CategoryControl, u16Operand, 1, 0},
	OpJumpBack:   {"JUMP_BACK", "jump_back", CategoryControl, u16Operand, 0, 0},
	OpCallD:      {"CALL_D", "call_d", CategoryControl, u16Operand, -1, 1},
	OpCallI:      {"CALL_I", "call_i", CategoryControl, u8Operand, -1, 1},
	OpReturnVal:  {"RETURN_VAL", "return_val", CategoryControl, noOperands, 1, 0},
	OpReturnVoid: {"RETURN_VOID", "return_void", CategoryControl, noOperands, 0, 0},
	OpHalt:       {"HALT", "halt", CategoryControl, noOperands, 0, 0},
}

// mnemonics maps assembler spellings back to opcodes.
var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Mnemonic] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN(0xNN)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// LookupMnemonic returns the opcode spelled m in assembler listings.
func LookupMnemonic(m string) (Opcode, bool) {
	op, ok := mnemonics[m]
	return op, ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsValid returns true if op is part of the catalog.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen()
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op >= OpJumpFwd && op <= OpJumpBack
}

// IsForwardJump returns true for the jumps that may only target later code.
func (op Opcode) IsForwardJump() bool {
	return op >= OpJumpFwd && op <= OpJumpFwdF
}

// IsCall returns true if this opcode is a procedure call.
func (op Opcode) IsCall() bool {
	return op == OpCallD || op == OpCallI
}

// IsTerminator returns true if this opcode ends the current proc or script.
func (op Opcode) IsTerminator() bool {
	return op == OpReturnVal || op == OpReturnVoid || op == OpHalt
}

// AllOpcodes returns a slice of all defined opcodes in numeric order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for i := 0; i < 256; i++ {
		if op := Opcode(i); op.IsValid() {
			opcodes = append(opcodes, op)
		}
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
