// Package vm implements the rod runtime value model.
//
// This package contains:
//   - Tagged value representation (nil, bool, int, float, string, objects)
//   - Native objects with a flat, fixed-length field layout
//   - Foreign objects wrapping host Go values with a checked type token
//   - The Heap arena that releases foreign payloads deterministically
//   - The type registry mapping user type names to TypeIDs
//
// The executor that walks bytecode and performs opcode effects lives
// outside this package; it only consumes the constructors and accessors
// defined here.
package vm
