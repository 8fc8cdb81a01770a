package vm

import (
	"math"
	"strconv"
	"strings"
)

// TypeID is the small integer discriminant selecting a Value's active
// payload. Executors switch on it for dynamic dispatch.
type TypeID uint8

// Reserved type ids. Ids 5 through 9 are reserved for future builtin
// scalars; user and object types start at FirstUserType.
const (
	TypeNil    TypeID = 0
	TypeBool   TypeID = 1
	TypeInt    TypeID = 2
	TypeFloat  TypeID = 3
	TypeString TypeID = 4

	FirstUserType TypeID = 10
	MaxTypeID     TypeID = math.MaxUint8
)

// String returns the builtin type name, or "type(N)" for user types.
func (t TypeID) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	default:
		return "type(" + strconv.Itoa(int(t)) + ")"
	}
}

// IsBuiltin reports whether t is one of the reserved scalar or string ids.
func (t TypeID) IsBuiltin() bool {
	return t < FirstUserType
}

// Value is a rod runtime value.
//
// Exactly one payload is live, selected by typeID:
//   - nil:    no payload
//   - bool, int, float: bits holds the scalar inline
//   - string: str points at storage shared by every copy of the Value
//   - user types (>= FirstUserType): obj points at the backing Object
//
// Values are small and copied freely. Copies of a string or object Value
// alias the same storage.
type Value struct {
	typeID TypeID
	bits   uint64
	str    *string
	obj    *Object
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Nil returns the nil value. It is also the zero Value.
func Nil() Value {
	return Value{}
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	v := Value{typeID: TypeBool}
	if b {
		v.bits = 1
	}
	return v
}

// FromInt creates a Value from an int64.
func FromInt(n int64) Value {
	return Value{typeID: TypeInt, bits: uint64(n)}
}

// FromFloat creates a Value from a float64.
func FromFloat(f float64) Value {
	return Value{typeID: TypeFloat, bits: math.Float64bits(f)}
}

// FromString creates a Value holding a copy of s in newly allocated
// storage. The storage is shared by all copies of the returned Value.
func FromString(s string) Value {
	box := new(string)
	*box = strings.Clone(s)
	return Value{typeID: TypeString, str: box}
}

func fromObject(obj *Object) Value {
	return Value{typeID: obj.typeID, obj: obj}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// TypeID returns the tag selecting the live payload.
func (v Value) TypeID() TypeID {
	return v.typeID
}

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool {
	return v.typeID == TypeNil
}

// IsBool returns true if v holds a bool.
func (v Value) IsBool() bool {
	return v.typeID == TypeBool
}

// IsInt returns true if v holds an int64.
func (v Value) IsInt() bool {
	return v.typeID == TypeInt
}

// IsFloat returns true if v holds a float64.
func (v Value) IsFloat() bool {
	return v.typeID == TypeFloat
}

// IsString returns true if v holds a string.
func (v Value) IsString() bool {
	return v.typeID == TypeString
}

// IsObject returns true if v refers to a native or foreign object.
func (v Value) IsObject() bool {
	return v.typeID >= FirstUserType && v.obj != nil
}

// IsScalar returns true for nil, bool, int and float values.
func (v Value) IsScalar() bool {
	return v.typeID <= TypeFloat
}

// ---------------------------------------------------------------------------
// Payload access
// ---------------------------------------------------------------------------

// Bool returns v as a bool.
// Panics with a *TypeMismatchError if v is not a bool.
func (v Value) Bool() bool {
	if v.typeID != TypeBool {
		panic(mismatch("Value.Bool", TypeBool, v.typeID))
	}
	return v.bits != 0
}

// Int returns v as an int64.
// Panics with a *TypeMismatchError if v is not an int.
func (v Value) Int() int64 {
	if v.typeID != TypeInt {
		panic(mismatch("Value.Int", TypeInt, v.typeID))
	}
	return int64(v.bits)
}

// Float returns v as a float64.
// Panics with a *TypeMismatchError if v is not a float.
func (v Value) Float() float64 {
	if v.typeID != TypeFloat {
		panic(mismatch("Value.Float", TypeFloat, v.typeID))
	}
	return math.Float64frombits(v.bits)
}

// Str returns the string content of v.
// Panics with a *TypeMismatchError if v is not a string.
func (v Value) Str() string {
	if v.typeID != TypeString {
		panic(mismatch("Value.Str", TypeString, v.typeID))
	}
	return *v.str
}

// Obj returns the Object backing v.
// Panics with a *TypeMismatchError if v is not an object.
func (v Value) Obj() *Object {
	if !v.IsObject() {
		panic(&TypeMismatchError{Op: "Value.Obj", Want: "object", Got: v.typeID.String()})
	}
	return v.obj
}

// TryBool returns v as a bool, or false if v is not a bool.
func (v Value) TryBool() (bool, bool) {
	if v.typeID != TypeBool {
		return false, false
	}
	return v.bits != 0, true
}

// TryInt returns v as an int64, or false if v is not an int.
func (v Value) TryInt() (int64, bool) {
	if v.typeID != TypeInt {
		return 0, false
	}
	return int64(v.bits), true
}

// TryFloat returns v as a float64, or false if v is not a float.
func (v Value) TryFloat() (float64, bool) {
	if v.typeID != TypeFloat {
		return 0, false
	}
	return math.Float64frombits(v.bits), true
}

// TryStr returns the string content of v, or false if v is not a string.
func (v Value) TryStr() (string, bool) {
	if v.typeID != TypeString {
		return "", false
	}
	return *v.str, true
}

// ScalarBits returns the raw inline payload of a nil, bool, int or float
// value. The chunk encoder uses it to lay constants out in the code stream.
func (v Value) ScalarBits() (uint64, bool) {
	if !v.IsScalar() {
		return 0, false
	}
	return v.bits, true
}

// FromScalarBits rebuilds a scalar Value from its tag and raw payload.
// Returns false if t is not a scalar tag.
func FromScalarBits(t TypeID, bits uint64) (Value, bool) {
	switch t {
	case TypeNil:
		return Nil(), true
	case TypeBool:
		return FromBool(bits != 0), true
	case TypeInt, TypeFloat:
		return Value{typeID: t, bits: bits}, true
	default:
		return Nil(), false
	}
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// Equal reports whether v and other are the same value.
// Scalars and strings compare by content, objects by identity.
// Floats follow IEEE 754 comparison, so NaN is never equal to itself.
func (v Value) Equal(other Value) bool {
	if v.typeID != other.typeID {
		return false
	}
	switch v.typeID {
	case TypeNil:
		return true
	case TypeBool, TypeInt:
		return v.bits == other.bits
	case TypeFloat:
		return math.Float64frombits(v.bits) == math.Float64frombits(other.bits)
	case TypeString:
		return v.str == other.str || *v.str == *other.str
	default:
		return v.obj == other.obj
	}
}

// SameStorage reports whether two string or object Values alias the same
// backing storage.
func (v Value) SameStorage(other Value) bool {
	switch {
	case v.typeID == TypeString && other.typeID == TypeString:
		return v.str == other.str
	case v.IsObject() && other.IsObject():
		return v.obj == other.obj
	default:
		return false
	}
}
