package bytecode

import (
	"github.com/google/uuid"
)

// Script is a compiled program: an ordered proc table and the chunk that
// runs as its entry point. Proc ids used by OpCallD index the table.
type Script struct {
	id     uuid.UUID
	main   *Chunk
	procs  []*Proc
	byName map[string]int
}

// NewScript creates a script from its entry chunk and proc table. The
// table is copied, so later changes to procs do not affect the script.
// When two procs share a name, LookupProc finds the first one.
func NewScript(main *Chunk, procs []*Proc) *Script {
	s := &Script{
		id:     uuid.New(),
		main:   main,
		procs:  make([]*Proc, len(procs)),
		byName: make(map[string]int, len(procs)),
	}
	copy(s.procs, procs)
	for i, p := range s.procs {
		if p == nil {
			continue
		}
		if _, dup := s.byName[p.Name()]; !dup {
			s.byName[p.Name()] = i
		}
	}
	return s
}

// ID returns the identity assigned to the script at construction.
func (s *Script) ID() uuid.UUID {
	return s.id
}

// Main returns the entry chunk.
func (s *Script) Main() *Chunk {
	return s.main
}

// ProcCount returns the size of the proc table.
func (s *Script) ProcCount() int {
	return len(s.procs)
}

// ProcAt returns the proc with id i.
func (s *Script) ProcAt(i int) (*Proc, bool) {
	if i < 0 || i >= len(s.procs) {
		return nil, false
	}
	return s.procs[i], true
}

// LookupProc returns the id and proc registered under name.
func (s *Script) LookupProc(name string) (int, *Proc, bool) {
	i, ok := s.byName[name]
	if !ok {
		return -1, nil, false
	}
	return i, s.procs[i], true
}

// Procs returns a copy of the proc table.
func (s *Script) Procs() []*Proc {
	out := make([]*Proc, len(s.procs))
	copy(out, s.procs)
	return out
}
