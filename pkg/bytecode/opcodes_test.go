package bytecode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeNames(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpPushNil, "PUSH_NIL"},
		{OpPushNumber, "PUSH_NUMBER"},
		{OpConstrObj, "CONSTR_OBJ"},
		{OpNDiscard, "NDISCARD"},
		{OpMultN, "MULT_N"},
		{OpInvB, "INV_B"},
		{OpGreaterEqN, "GREATER_EQ_N"},
		{OpJumpBack, "JUMP_BACK"},
		{OpHalt, "HALT"},
		{Opcode(0xFF), "UNKNOWN(0xFF)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}

// Codes are written into chunks, so they are part of the format.
func TestOpcodeCodesStable(t *testing.T) {
	codes := map[Opcode]byte{
		OpPushNil: 0x00, OpPushTrue: 0x01, OpPushFalse: 0x02, OpPushNumber: 0x03,
		OpPushString: 0x04, OpPushGlobal: 0x05, OpPopGlobal: 0x06, OpPushLocal: 0x07,
		OpPopLocal: 0x08, OpConstrObj: 0x09, OpPushField: 0x0A, OpPopField: 0x0B,
		OpDiscard: 0x0C, OpNDiscard: 0x0D,
		OpNegN: 0x20, OpAddN: 0x21, OpSubN: 0x22, OpMultN: 0x23, OpDivN: 0x24,
		OpInvB: 0x30,
		OpEqB:  0x40, OpEqN: 0x41, OpLessN: 0x42, OpLessEqN: 0x43, OpGreaterN: 0x44, OpGreaterEqN: 0x45,
		OpJumpFwd: 0x50, OpJumpFwdT: 0x51, OpJumpFwdF: 0x52, OpJumpBack: 0x53,
		OpCallD: 0x54, OpCallI: 0x55, OpReturnVal: 0x56, OpReturnVoid: 0x57, OpHalt: 0x5F,
	}
	for op, code := range codes {
		assert.Equal(t, code, byte(op), op.String())
	}
	assert.Equal(t, len(codes), OpcodeCount())
}

func TestOpcodeInstructionLen(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpPushTrue, 1},
		{OpPushNumber, 1 + ValueSize},
		{OpPushString, 3},
		{OpPushLocal, 3},
		{OpConstrObj, 4},
		{OpDiscard, 2},
		{OpNDiscard, 3},
		{OpAddN, 1},
		{OpJumpFwdT, 3},
		{OpCallD, 3},
		{OpCallI, 2},
		{OpHalt, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.InstructionLen(), tt.op.String())
	}
}

func TestAllOpcodesSorted(t *testing.T) {
	all := AllOpcodes()
	require.Len(t, all, OpcodeCount())
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1], all[i])
	}
	for _, op := range all {
		assert.True(t, op.IsValid())
		assert.NotContains(t, op.String(), "UNKNOWN")
	}
}

func TestOpcodeMnemonics(t *testing.T) {
	for _, op := range AllOpcodes() {
		m := GetOpcodeInfo(op).Mnemonic
		assert.Equal(t, strings.ToLower(op.String()), m)

		got, ok := LookupMnemonic(m)
		require.True(t, ok, m)
		assert.Equal(t, op, got)
	}

	_, ok := LookupMnemonic("PUSH_NIL")
	assert.False(t, ok)
}

func TestOpcodeCategories(t *testing.T) {
	for _, op := range AllOpcodes() {
		cat := GetOpcodeInfo(op).Category
		switch {
		case op < 0x20:
			assert.Equal(t, CategoryStack, cat, op.String())
		case op < 0x30:
			assert.Equal(t, CategoryArithmetic, cat, op.String())
		case op < 0x40:
			assert.Equal(t, CategoryLogic, cat, op.String())
		case op < 0x50:
			assert.Equal(t, CategoryRelational, cat, op.String())
		default:
			assert.Equal(t, CategoryControl, cat, op.String())
		}
	}
}

func TestOpcodePredicates(t *testing.T) {
	assert.True(t, OpJumpFwd.IsJump())
	assert.True(t, OpJumpBack.IsJump())
	assert.False(t, OpCallD.IsJump())

	assert.True(t, OpJumpFwdT.IsForwardJump())
	assert.False(t, OpJumpBack.IsForwardJump())

	assert.True(t, OpCallI.IsCall())
	assert.False(t, OpHalt.IsCall())

	assert.True(t, OpHalt.IsTerminator())
	assert.True(t, OpReturnVoid.IsTerminator())
	assert.False(t, OpJumpFwd.IsTerminator())

	assert.False(t, Opcode(0x10).IsValid())
}

func TestOperandWidths(t *testing.T) {
	assert.Equal(t, 1, OperandU8.Width())
	assert.Equal(t, 2, OperandU16.Width())
	assert.Equal(t, ValueSize, OperandValue.Width())
	assert.Equal(t, 0, Operand(0).Width())
	assert.Equal(t, "u16", OperandU16.String())
}
