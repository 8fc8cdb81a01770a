package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/liquid600pgm/rod/vm"
)

// PayloadSize is the widest inline payload of a constant: a bool, an
// int64, a float64 or a string handle all fit in 8 bytes.
const PayloadSize = 8

// ValueSize is the fixed width of a constant in the code stream: one type
// tag byte followed by a little-endian PayloadSize payload. The tag lets
// GetValue rebuild the Value from its offset alone.
const ValueSize = 1 + PayloadSize

// hole is a span reserved for an operand that is patched later.
type hole struct {
	width   int
	patched bool
}

// Chunk is the compiled bytecode of one procedure or of a script's entry
// point, plus its debug line table and string intern table.
//
// A Chunk is built sequentially by a single compiler goroutine and is
// read-only once built; concurrent readers are safe as long as nobody
// emits into it.
type Chunk struct {
	filename string

	code     []byte
	lineInfo []LineInfo
	strings  []string

	// Reserved spans by offset, so mismatched patches are caught.
	holes map[int]*hole

	// Current emission position, used to tag incoming bytes.
	line   int
	column int
}

// NewChunk creates an empty chunk for code compiled from filename.
func NewChunk(filename string) *Chunk {
	return &Chunk{
		filename: filename,
		code:     make([]byte, 0, 64),
		strings:  make([]string, 0, 8),
		holes:    make(map[int]*hole),
	}
}

// Filename returns the source file the chunk was compiled from.
func (c *Chunk) Filename() string {
	return c.filename
}

// SetPosition sets the source position recorded for bytes emitted from now on.
func (c *Chunk) SetPosition(line, column int) {
	c.line = line
	c.column = column
}

// Position returns the current emission position.
func (c *Chunk) Position() (line, column int) {
	return c.line, c.column
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

// Emit appends a single-byte opcode and returns its offset.
func (c *Chunk) Emit(op Opcode) int {
	return c.write(byte(op))
}

// EmitU8 appends one operand byte and returns its offset.
func (c *Chunk) EmitU8(b uint8) int {
	return c.write(b)
}

// EmitU16 appends a little-endian u16 operand and returns its offset.
func (c *Chunk) EmitU16(v uint16) int {
	return c.write(byte(v), byte(v>>8))
}

// EmitValue appends v as a ValueSize constant block and returns its offset.
// Scalars are stored inline; strings are interned and stored by id. Objects
// cannot be embedded and fail with ErrNotEmbeddable.
func (c *Chunk) EmitValue(v vm.Value) (int, error) {
	var payload uint64
	switch {
	case v.IsScalar():
		payload, _ = v.ScalarBits()
	case v.IsString():
		payload = uint64(c.InternString(v.Str()))
	default:
		return 0, fmt.Errorf("emit %s constant: %w", v.TypeID(), ErrNotEmbeddable)
	}

	var block [ValueSize]byte
	block[0] = byte(v.TypeID())
	binary.LittleEndian.PutUint64(block[1:], payload)
	return c.write(block[:]...), nil
}

// EmitOp appends an opcode followed by operands encoded according to the
// opcode's operand shapes. Value operands must be passed as vm.Value, the
// others as any integer type that fits.
func (c *Chunk) EmitOp(op Opcode, operands ...any) (int, error) {
	info := GetOpcodeInfo(op)
	if !op.IsValid() {
		return 0, fmt.Errorf("emit 0x%02X: %w", byte(op), ErrUnknownOpcode)
	}
	if len(operands) != len(info.Operands) {
		return 0, fmt.Errorf("emit %s: want %d operands, got %d", op, len(info.Operands), len(operands))
	}

	m := c.mark()
	offset := c.Emit(op)
	for i, shape := range info.Operands {
		if err := c.emitOperand(shape, operands[i]); err != nil {
			c.rollback(m)
			return 0, fmt.Errorf("emit %s operand %d: %w", op, i, err)
		}
	}
	return offset, nil
}

// emitMark records the chunk state before a multi-part emission.
type emitMark struct {
	code    int
	strings int
	runs    int
	lastRun LineInfo
}

func (c *Chunk) mark() emitMark {
	m := emitMark{code: len(c.code), strings: len(c.strings), runs: len(c.lineInfo)}
	if m.runs > 0 {
		m.lastRun = c.lineInfo[m.runs-1]
	}
	return m
}

// rollback discards everything written since m, so a failed EmitOp leaves
// no partial instruction behind.
func (c *Chunk) rollback(m emitMark) {
	c.code = c.code[:m.code]
	c.strings = c.strings[:m.strings]
	c.lineInfo = c.lineInfo[:m.runs]
	if m.runs > 0 {
		c.lineInfo[m.runs-1] = m.lastRun
	}
}

func (c *Chunk) emitOperand(shape Operand, arg any) error {
	if shape == OperandValue {
		v, ok := arg.(vm.Value)
		if !ok {
			return fmt.Errorf("want vm.Value, got %T", arg)
		}
		_, err := c.EmitValue(v)
		return err
	}

	n, err := toInt(arg)
	if err != nil {
		return err
	}
	switch shape {
	case OperandU8:
		if n < 0 || n > 0xFF {
			return fmt.Errorf("%d does not fit in u8", n)
		}
		c.EmitU8(uint8(n))
	case OperandU16:
		if n < 0 || n > 0xFFFF {
			return fmt.Errorf("%d does not fit in u16", n)
		}
		c.EmitU16(uint16(n))
	}
	return nil
}

func toInt(arg any) (int, error) {
	switch n := arg.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%d does not fit in an operand", n)
		}
		return int(n), nil
	case uint:
		return toInt(uint64(n))
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		if n > math.MaxInt32 {
			return 0, fmt.Errorf("%d does not fit in an operand", n)
		}
		return int(n), nil
	case Opcode:
		return int(n), nil
	default:
		return 0, fmt.Errorf("want integer operand, got %T", arg)
	}
}

// write appends bytes and extends the line table by len(b).
func (c *Chunk) write(b ...byte) int {
	offset := len(c.code)
	c.code = append(c.code, b...)
	c.addLineInfo(len(b))
	return offset
}

// addLineInfo extends the last run when the position is unchanged, and
// starts a new run otherwise.
func (c *Chunk) addLineInfo(n int) {
	if k := len(c.lineInfo); k > 0 && c.lineInfo[k-1].samePosition(c.line, c.column) {
		c.lineInfo[k-1].RunLength += n
		return
	}
	c.lineInfo = append(c.lineInfo, LineInfo{Line: c.line, Column: c.column, RunLength: n})
}

// ---------------------------------------------------------------------------
// String intern table
// ---------------------------------------------------------------------------

// InternString returns the id of s in the chunk's string table, adding it
// if it is not there yet. Ids are assigned in first-seen order.
//
// Lookup is a linear scan. Per-chunk tables are small, so this is cheaper
// than maintaining a map in practice, but it is quadratic for chunks with
// many distinct strings.
func (c *Chunk) InternString(s string) int {
	for i, existing := range c.strings {
		if existing == s {
			return i
		}
	}
	c.strings = append(c.strings, s)
	return len(c.strings) - 1
}

// StringAt returns the interned string with the given id.
func (c *Chunk) StringAt(id int) (string, error) {
	if id < 0 || id >= len(c.strings) {
		return "", fmt.Errorf("string %d of %d: %w", id, len(c.strings), ErrOutOfBounds)
	}
	return c.strings[id], nil
}

// StringCount returns the number of interned strings.
func (c *Chunk) StringCount() int {
	return len(c.strings)
}

// ---------------------------------------------------------------------------
// Holes and patching
// ---------------------------------------------------------------------------

// Reserve writes width zero bytes for an operand that is not known yet,
// such as a forward jump target, and returns the offset of the first byte.
// width must be 1 or 2, matching PatchU8 or PatchU16.
func (c *Chunk) Reserve(width int) (int, error) {
	if width != 1 && width != 2 {
		return 0, fmt.Errorf("reserve %d bytes: %w", width, ErrInvalidPatch)
	}
	offset := c.write(make([]byte, width)...)
	c.holes[offset] = &hole{width: width}
	return offset, nil
}

// PatchU8 overwrites the 1-byte hole at offset with v.
func (c *Chunk) PatchU8(offset int, v uint8) error {
	if err := c.checkPatch(offset, 1); err != nil {
		return err
	}
	c.code[offset] = v
	return nil
}

// PatchU16 overwrites the 2-byte hole at offset with v, little-endian.
func (c *Chunk) PatchU16(offset int, v uint16) error {
	if err := c.checkPatch(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(c.code[offset:], v)
	return nil
}

func (c *Chunk) checkPatch(offset, width int) error {
	if offset < 0 || offset+width > len(c.code) {
		return fmt.Errorf("patch %d bytes at %d, code length %d: %w", width, offset, len(c.code), ErrOutOfBounds)
	}
	h, ok := c.holes[offset]
	if !ok {
		return fmt.Errorf("patch at %d: no hole reserved there: %w", offset, ErrInvalidPatch)
	}
	if h.width != width {
		return fmt.Errorf("patch at %d: hole is %d bytes, patch is %d: %w", offset, h.width, width, ErrInvalidPatch)
	}
	h.patched = true
	return nil
}

// Holes returns the offsets of reserved spans that were never patched, in
// ascending order.
func (c *Chunk) Holes() []int {
	var offsets []int
	for offset, h := range c.holes {
		if !h.patched {
			offsets = append(offsets, offset)
		}
	}
	sort.Ints(offsets)
	return offsets
}

// ---------------------------------------------------------------------------
// Random-access decoding
// ---------------------------------------------------------------------------

// Len returns the length of the code in bytes.
func (c *Chunk) Len() int {
	return len(c.code)
}

// Code returns a copy of the code bytes.
func (c *Chunk) Code() []byte {
	out := make([]byte, len(c.code))
	copy(out, c.code)
	return out
}

func (c *Chunk) span(op string, i, width int) error {
	if i < 0 || i+width > len(c.code) {
		return fmt.Errorf("%s at %d, code length %d: %w", op, i, len(c.code), ErrOutOfBounds)
	}
	return nil
}

// GetOpcode decodes the opcode byte at offset i. The byte is not checked
// against the catalog; see Opcode.IsValid.
func (c *Chunk) GetOpcode(i int) (Opcode, error) {
	if err := c.span("GetOpcode", i, 1); err != nil {
		return 0, err
	}
	return Opcode(c.code[i]), nil
}

// GetU8 decodes the byte at offset i.
func (c *Chunk) GetU8(i int) (uint8, error) {
	if err := c.span("GetU8", i, 1); err != nil {
		return 0, err
	}
	return c.code[i], nil
}

// GetU16 decodes the little-endian u16 at offset i.
func (c *Chunk) GetU16(i int) (uint16, error) {
	if err := c.span("GetU16", i, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(c.code[i:]), nil
}

// GetValue decodes the ValueSize constant block at offset i.
func (c *Chunk) GetValue(i int) (vm.Value, error) {
	if err := c.span("GetValue", i, ValueSize); err != nil {
		return vm.Nil(), err
	}
	tag := vm.TypeID(c.code[i])
	payload := binary.LittleEndian.Uint64(c.code[i+1:])

	if tag == vm.TypeString {
		s, err := c.StringAt(int(payload))
		if err != nil {
			return vm.Nil(), fmt.Errorf("GetValue at %d: %w", i, err)
		}
		return vm.FromString(s), nil
	}
	v, ok := vm.FromScalarBits(tag, payload)
	if !ok {
		return vm.Nil(), &vm.TypeMismatchError{Op: fmt.Sprintf("GetValue at %d", i), Want: "constant tag", Got: tag.String()}
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Debug line table
// ---------------------------------------------------------------------------

// GetLineInfo maps a code offset back to the source position it was
// emitted at. Returns UnknownPosition for offsets outside the code.
//
// This walks the run-length table linearly and is meant for error reporting,
// not for the execution hot path.
func (c *Chunk) GetLineInfo(i int) LineInfo {
	if i < 0 || i >= len(c.code) {
		return UnknownPosition
	}
	end := 0
	for _, run := range c.lineInfo {
		end += run.RunLength
		if i < end {
			return run
		}
	}
	return UnknownPosition
}

// LineTable returns a copy of the run-length line table.
func (c *Chunk) LineTable() []LineInfo {
	out := make([]LineInfo, len(c.lineInfo))
	copy(out, c.lineInfo)
	return out
}
