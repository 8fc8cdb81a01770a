package vm

import (
	"fmt"
)

// NullFields is the field count that selects the null object in MakeObject,
// and the count reported by the null object.
const NullFields = -1

// ObjectKind distinguishes the two backing stores an Object can have.
type ObjectKind uint8

const (
	// NativeObject holds a flat record of Value fields.
	NativeObject ObjectKind = iota

	// ForeignObject holds an opaque payload owned by the host.
	ForeignObject
)

// String returns a human-readable name for the kind.
func (k ObjectKind) String() string {
	switch k {
	case NativeObject:
		return "native"
	case ForeignObject:
		return "foreign"
	default:
		return fmt.Sprintf("ObjectKind(%d)", k)
	}
}

// Object is the backing store for non-scalar values.
//
// A native object owns its fields. Fields may refer to other objects, so
// native object graphs can be cyclic; Go's tracing collector reclaims such
// graphs, and no reference counts are kept.
//
// A foreign object owns a payload that must be released exactly once; see
// MakeForeignValue and MakeForeignRef.
type Object struct {
	typeID TypeID
	kind   ObjectKind

	// Native layout. null marks the "no object" sentinel.
	fields []Value
	null   bool

	// Foreign layout.
	foreign *foreignPayload
}

// ---------------------------------------------------------------------------
// Object creation
// ---------------------------------------------------------------------------

// MakeObject creates a native object of the given user type with fieldCount
// nil fields. Passing NullFields creates a null object reference instead.
// Panics if typeID is a builtin id or fieldCount is below NullFields.
func MakeObject(typeID TypeID, fieldCount int) Value {
	if typeID.IsBuiltin() {
		panic(fmt.Sprintf("MakeObject: type id %d is reserved", typeID))
	}
	if fieldCount < NullFields {
		panic(fmt.Sprintf("MakeObject: invalid field count %d", fieldCount))
	}

	obj := &Object{typeID: typeID, kind: NativeObject}
	if fieldCount == NullFields {
		obj.null = true
	} else {
		obj.fields = make([]Value, fieldCount)
	}
	return fromObject(obj)
}

// MakeObjectWithFields creates a native object and initialises its fields
// from a copy of fields.
func MakeObjectWithFields(typeID TypeID, fields []Value) Value {
	v := MakeObject(typeID, len(fields))
	copy(v.obj.fields, fields)
	return v
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// TypeID returns the object's user type id.
func (obj *Object) TypeID() TypeID {
	return obj.typeID
}

// Kind returns whether the object is native or foreign.
func (obj *Object) Kind() ObjectKind {
	return obj.kind
}

// IsNull returns true if obj is the null object sentinel.
func (obj *Object) IsNull() bool {
	return obj.null
}

// FieldCount returns the number of fields of a native object. The null
// object reports NullFields; foreign objects report 0.
func (obj *Object) FieldCount() int {
	if obj.null {
		return NullFields
	}
	return len(obj.fields)
}

// Field returns the value of field i.
func (obj *Object) Field(i int) (Value, error) {
	if err := obj.checkField("Object.Field", i); err != nil {
		return Nil(), err
	}
	return obj.fields[i], nil
}

// SetField stores v into field i.
func (obj *Object) SetField(i int, v Value) error {
	if err := obj.checkField("Object.SetField", i); err != nil {
		return err
	}
	obj.fields[i] = v
	return nil
}

func (obj *Object) checkField(op string, i int) error {
	if obj.kind != NativeObject {
		return &TypeMismatchError{Op: op, Want: "native object", Got: "foreign object"}
	}
	if obj.null {
		return fmt.Errorf("%s: %w", op, ErrNullObject)
	}
	if i < 0 || i >= len(obj.fields) {
		return fmt.Errorf("%s: field %d of %d: %w", op, i, len(obj.fields), ErrOutOfBounds)
	}
	return nil
}

// Release runs the object's release action. Only foreign objects have one;
// it runs at most once no matter how often Release is called, and Release
// reports whether this call was the one that ran it.
func (obj *Object) Release() bool {
	if obj.foreign == nil {
		return false
	}
	return obj.foreign.release()
}

// Released reports whether a foreign object's payload has been released.
func (obj *Object) Released() bool {
	return obj.foreign != nil && obj.foreign.isReleased()
}
