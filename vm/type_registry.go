package vm

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeInfo describes a registered user type.
type TypeInfo struct {
	ID     TypeID
	Name   string
	GoType reflect.Type // nil for native object types
}

// TypeRegistry assigns user TypeIDs to type names and remembers the Go type
// behind foreign types. Thread-safe for concurrent registration and lookup.
type TypeRegistry struct {
	mu     sync.RWMutex
	types  map[TypeID]*TypeInfo
	byName map[string]TypeID
	nextID int
}

// NewTypeRegistry creates an empty registry. The first id handed out is
// FirstUserType.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:  make(map[TypeID]*TypeInfo),
		byName: make(map[string]TypeID),
		nextID: int(FirstUserType),
	}
}

// Register adds a type and returns its id. Registering a name again returns
// the existing id, unless the Go types disagree.
func (r *TypeRegistry) Register(name string, goType reflect.Type) (TypeID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[name]; ok {
		existing := r.types[id]
		if goType != nil && existing.GoType != nil && existing.GoType != goType {
			return 0, &TypeMismatchError{
				Op:   "TypeRegistry.Register(" + name + ")",
				Want: existing.GoType.String(),
				Got:  goType.String(),
			}
		}
		if existing.GoType == nil {
			existing.GoType = goType
		}
		return id, nil
	}

	if r.nextID > int(MaxTypeID) {
		return 0, fmt.Errorf("registering %q: %w", name, ErrTypeSpaceExhausted)
	}
	id := TypeID(r.nextID)
	r.nextID++

	r.types[id] = &TypeInfo{ID: id, Name: name, GoType: goType}
	r.byName[name] = id
	return id, nil
}

// Lookup returns the type info for a given id.
func (r *TypeRegistry) Lookup(id TypeID) (TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.types[id]
	if !ok {
		return TypeInfo{}, false
	}
	return *info, true
}

// LookupName returns the type info registered under name.
func (r *TypeRegistry) LookupName(name string) (TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return TypeInfo{}, false
	}
	return *r.types[id], true
}

// Name returns the registered name for id, falling back to TypeID.String.
func (r *TypeRegistry) Name(id TypeID) string {
	if info, ok := r.Lookup(id); ok {
		return info.Name
	}
	return id.String()
}

// Count returns the number of registered types.
func (r *TypeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}
