// Package bytecode benchmarks
//
// These benchmarks measure the performance of:
// - Chunk emission
// - Random-access decoding
// - String interning and line lookup, both linear scans
//
// Run: go test -bench=. ./pkg/bytecode/...
// Run with memory stats: go test -bench=. -benchmem ./pkg/bytecode/...
package bytecode

import (
	"fmt"
	"testing"

	"github.com/liquid600pgm/rod/vm"
)

// ============================================================
// Emission Benchmarks
// ============================================================

// buildArithmetic emits n copies of "push a, push b, add, discard".
func buildArithmetic(n int) *Chunk {
	c := NewChunk("bench.rod")
	for i := 0; i < n; i++ {
		c.SetPosition(i+1, 1)
		c.Emit(OpPushNumber)
		c.EmitValue(vm.FromInt(int64(i)))
		c.Emit(OpPushNumber)
		c.EmitValue(vm.FromFloat(0.5))
		c.Emit(OpAddN)
		c.Emit(OpDiscard)
		c.EmitU8(1)
	}
	c.Emit(OpHalt)
	return c
}

func BenchmarkEmitArithmetic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buildArithmetic(100)
	}
}

func BenchmarkEmitPatchedJumps(b *testing.B) {
	for i := 0; i < b.N; i++ {
		c := NewChunk("")
		for j := 0; j < 100; j++ {
			c.Emit(OpPushTrue)
			c.Emit(OpJumpFwdF)
			hole, _ := c.Reserve(2)
			c.Emit(OpPushNil)
			c.PatchU16(hole, uint16(c.Len()))
		}
	}
}

// ============================================================
// Decoding Benchmarks
// ============================================================

func BenchmarkDecodeSequential(b *testing.B) {
	c := buildArithmetic(100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for offset := 0; offset < c.Len(); {
			op, _ := c.GetOpcode(offset)
			if op == OpPushNumber {
				c.GetValue(offset + 1)
			}
			offset += op.InstructionLen()
		}
	}
}

func BenchmarkInstructions(b *testing.B) {
	c := buildArithmetic(100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Instructions(c)
	}
}

func BenchmarkValidate(b *testing.B) {
	c := buildArithmetic(100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidateChunk(c, 0)
	}
}

// ============================================================
// Linear Scan Benchmarks
// ============================================================

func BenchmarkInternString(b *testing.B) {
	for _, n := range []int{8, 64, 512} {
		b.Run(fmt.Sprintf("table%d", n), func(b *testing.B) {
			c := NewChunk("")
			for i := 0; i < n; i++ {
				c.InternString(fmt.Sprintf("s%d", i))
			}
			last := fmt.Sprintf("s%d", n-1)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				c.InternString(last)
			}
		})
	}
}

func BenchmarkGetLineInfo(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("runs%d", n), func(b *testing.B) {
			c := buildArithmetic(n)
			last := c.Len() - 1

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				c.GetLineInfo(last)
			}
		})
	}
}
