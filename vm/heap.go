package vm

import (
	"github.com/tliron/commonlog"
)

var heapLog = commonlog.GetLogger("rod.vm.heap")

// ---------------------------------------------------------------------------
// Heap: arena ownership for objects created while running a script
// ---------------------------------------------------------------------------

// HeapStats holds counters from a Heap's lifetime.
type HeapStats struct {
	Tracked  int // objects currently tracked
	Native   int // tracked native objects
	Foreign  int // tracked foreign objects
	Released int // foreign payloads released by Teardown so far
}

// Heap is an arena that owns every object tracked through it until
// Teardown. Objects are referenced by ordinary pointers and never reference
// counted, so cyclic native graphs need no special handling: the arena
// releases foreign payloads deterministically and the Go collector reclaims
// the memory.
//
// A Heap is not safe for concurrent use; it belongs to the single executor
// that allocates into it.
type Heap struct {
	objects  []*Object
	released int
}

// NewHeap creates an empty arena.
func NewHeap() *Heap {
	return &Heap{}
}

// Track places the object behind v under the arena's ownership and returns
// v unchanged. Non-object values are returned untouched.
func (h *Heap) Track(v Value) Value {
	if v.IsObject() {
		h.objects = append(h.objects, v.obj)
	}
	return v
}

// NewObject creates a native object (see MakeObject) owned by the arena.
func (h *Heap) NewObject(typeID TypeID, fieldCount int) Value {
	return h.Track(MakeObject(typeID, fieldCount))
}

// Len returns the number of tracked objects.
func (h *Heap) Len() int {
	return len(h.objects)
}

// Stats returns the arena's counters.
func (h *Heap) Stats() HeapStats {
	stats := HeapStats{Tracked: len(h.objects), Released: h.released}
	for _, obj := range h.objects {
		if obj.kind == ForeignObject {
			stats.Foreign++
		} else {
			stats.Native++
		}
	}
	return stats
}

// Teardown releases every tracked foreign payload, newest first, and empties
// the arena. Payloads already released elsewhere are skipped. Returns the
// number of release actions this call ran. The arena can be reused after.
func (h *Heap) Teardown() int {
	n := 0
	for i := len(h.objects) - 1; i >= 0; i-- {
		obj := h.objects[i]
		if obj.Release() {
			n++
			heapLog.Debugf("released %s payload of %s", obj.foreign.ownership, obj.typeID)
		}
		h.objects[i] = nil
	}
	heapLog.Debugf("teardown: %d objects, %d releases", len(h.objects), n)
	h.objects = h.objects[:0]
	h.released += n
	return n
}
