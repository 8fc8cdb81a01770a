package vm

import (
	"testing"
)

// =============================================================================
// Value construction
// =============================================================================

func BenchmarkFromInt(b *testing.B) {
	var v Value
	for i := 0; i < b.N; i++ {
		v = FromInt(int64(i))
	}
	_ = v
}

func BenchmarkFromString(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = FromString("benchmark")
	}
}

func BenchmarkCopyString(b *testing.B) {
	s := FromString("shared storage")
	var v Value
	for i := 0; i < b.N; i++ {
		v = s
	}
	_ = v
}

// =============================================================================
// Objects
// =============================================================================

func BenchmarkMakeObject(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = MakeObject(FirstUserType, 4)
	}
}

func BenchmarkFieldAccess(b *testing.B) {
	obj := MakeObject(FirstUserType, 4).Obj()
	for i := 0; i < b.N; i++ {
		obj.SetField(i&3, FromInt(int64(i)))
		obj.Field(i & 3)
	}
}

func BenchmarkReadForeign(b *testing.B) {
	type payload struct{ A, B int }
	v := MakeForeignValue(FirstUserType, payload{1, 2})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ReadForeign[payload](v)
	}
}

func BenchmarkHeapTeardown(b *testing.B) {
	h := NewHeap()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 64; j++ {
			h.Track(MakeForeignValue(FirstUserType, j))
			h.NewObject(FirstUserType, 2)
		}
		h.Teardown()
	}
}

// =============================================================================
// Formatting
// =============================================================================

func BenchmarkStringOf(b *testing.B) {
	values := []Value{Nil(), FromBool(true), FromInt(-42), FromFloat(3.5), FromString("a\tb\"c")}
	for i := 0; i < b.N; i++ {
		_ = StringOf(values[i%len(values)])
	}
}
