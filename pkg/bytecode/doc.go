// Package bytecode provides the instruction container of the rod runtime.
//
// A Chunk accumulates the byte stream of one procedure along with a
// run-length debug line table and a string intern table. Compilers emit
// into it sequentially; executors decode from it by offset.
//
// # Encoding
//
// Each instruction is a one-byte Opcode followed by fixed-width operands
// whose shape is implied by the opcode (see OpcodeInfo):
//
//   - u8: one byte
//   - u16: two bytes, little-endian
//   - value: ValueSize bytes, a type tag byte followed by an 8-byte
//     little-endian payload. String constants store their intern id.
//
// Jump operands are absolute offsets within the same chunk. Offsets are
// meaningful only relative to the chunk they were recorded against.
//
// # Holes
//
// When an operand is not known yet, typically a forward jump target, the
// compiler reserves a hole with Reserve and fills it later with PatchU8 or
// PatchU16. The chunk tracks the width of every hole and rejects patches
// that do not match.
//
// # Procs and scripts
//
// A Script bundles the entry chunk with a table of Procs. Native procs own
// a chunk; foreign procs name a host function with the ForeignFunc calling
// convention. Script.Validate decodes everything and reports all
// malformed operands at once.
package bytecode
