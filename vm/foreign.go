package vm

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
)

// ---------------------------------------------------------------------------
// Foreign objects: host Go values wrapped with a checked type token
// ---------------------------------------------------------------------------

// Ownership selects how a foreign object releases its payload.
type Ownership uint8

const (
	// OwnsHeapCopy means the object holds its own heap copy of a Go value
	// and drops its reference to it on release.
	OwnsHeapCopy Ownership = iota + 1

	// SharesExternalRef means the object holds a retained reference to an
	// externally counted value and calls Release on it on release.
	SharesExternalRef
)

// String returns a human-readable name for the ownership mode.
func (o Ownership) String() string {
	switch o {
	case OwnsHeapCopy:
		return "owns-heap-copy"
	case SharesExternalRef:
		return "shares-external-ref"
	default:
		return fmt.Sprintf("Ownership(%d)", o)
	}
}

// ExternalRef is a host value with its own reference count. Wrapping it in
// a foreign object retains it once; releasing the object releases it once.
type ExternalRef interface {
	Retain()
	Release()
}

type foreignPayload struct {
	ownership Ownership
	goType    reflect.Type

	mu       sync.Mutex
	released bool

	// ptr is a *T for the wrapped Go type T, in both ownership modes.
	// Release clears it; views handed out earlier stay valid and are
	// reclaimed by Go once the last one is dropped.
	ptr any

	// ref is set only for SharesExternalRef.
	ref ExternalRef
}

// release drops the payload. The guard keeps the action to a single run
// when the heap arena and the runtime cleanup race.
func (p *foreignPayload) release() bool {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return false
	}
	p.released = true
	p.ptr = nil
	ref := p.ref
	p.ref = nil
	p.mu.Unlock()

	if ref != nil {
		ref.Release()
	}
	return true
}

func (p *foreignPayload) isReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

func newForeign(typeID TypeID, p *foreignPayload) Value {
	if typeID.IsBuiltin() {
		panic(fmt.Sprintf("foreign object: type id %d is reserved", typeID))
	}
	obj := &Object{typeID: typeID, kind: ForeignObject, foreign: p}
	// The payload never points back at obj, so the cleanup can run once obj
	// becomes unreachable, cycles through native fields included.
	runtime.AddCleanup(obj, func(p *foreignPayload) { p.release() }, p)
	return fromObject(obj)
}

// MakeForeignValue copies v onto a fresh heap allocation owned by a new
// foreign object of the given user type. Releasing the object drops the
// copy.
func MakeForeignValue[T any](typeID TypeID, v T) Value {
	ptr := new(T)
	*ptr = v
	return newForeign(typeID, &foreignPayload{
		ownership: OwnsHeapCopy,
		goType:    reflect.TypeFor[T](),
		ptr:       ptr,
	})
}

// MakeForeignRef retains r and wraps it in a new foreign object of the
// given user type. Releasing the object releases r once.
func MakeForeignRef[T ExternalRef](typeID TypeID, r T) Value {
	r.Retain()
	ptr := new(T)
	*ptr = r
	return newForeign(typeID, &foreignPayload{
		ownership: SharesExternalRef,
		goType:    reflect.TypeFor[T](),
		ptr:       ptr,
		ref:       r,
	})
}

// ReadForeign returns the foreign payload of v as a T.
// Fails with a *TypeMismatchError if v is not a foreign object or was built
// from a type other than T, and with ErrReleased once the payload is gone.
func ReadForeign[T any](v Value) (T, error) {
	ptr, err := ForeignPtr[T](v)
	if err != nil {
		var zero T
		return zero, err
	}
	return *ptr, nil
}

// ForeignPtr returns a mutable view of the foreign payload of v. Writes
// through the pointer are visible to every Value sharing the object.
func ForeignPtr[T any](v Value) (*T, error) {
	const op = "ForeignPtr"
	if !v.IsObject() {
		return nil, &TypeMismatchError{Op: op, Want: "foreign object", Got: v.typeID.String()}
	}
	p := v.obj.foreign
	if p == nil {
		return nil, &TypeMismatchError{Op: op, Want: "foreign object", Got: "native object"}
	}
	if want := reflect.TypeFor[T](); want != p.goType {
		return nil, mismatch(op, want, p.goType)
	}
	p.mu.Lock()
	ptr, released := p.ptr, p.released
	p.mu.Unlock()
	// The object must outlive the read, or its cleanup could release the
	// payload in between.
	runtime.KeepAlive(v.obj)
	if released {
		return nil, fmt.Errorf("%s: %w", op, ErrReleased)
	}
	return ptr.(*T), nil
}

// Ownership returns the ownership mode of a foreign object, or zero for a
// native one.
func (obj *Object) Ownership() Ownership {
	if obj.foreign == nil {
		return 0
	}
	return obj.foreign.ownership
}

// ForeignType returns the Go type a foreign object was built from, or nil
// for a native object.
func (obj *Object) ForeignType() reflect.Type {
	if obj.foreign == nil {
		return nil
	}
	return obj.foreign.goType
}
