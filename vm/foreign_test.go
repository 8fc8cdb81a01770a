package vm

import (
	"errors"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	handleType  = FirstUserType + 1
	counterType = FirstUserType + 2
)

type handle struct {
	Name string
	Port int
}

// countedRef is a host object with its own reference count.
type countedRef struct {
	refs     int
	released int
}

func (c *countedRef) Retain() { c.refs++ }

func (c *countedRef) Release() {
	c.refs--
	c.released++
}

func TestForeignValueCopy(t *testing.T) {
	h := handle{Name: "db", Port: 5432}
	v := MakeForeignValue(handleType, h)
	h.Port = 0

	got, err := ReadForeign[handle](v)
	require.NoError(t, err)
	assert.Equal(t, handle{Name: "db", Port: 5432}, got)

	obj := v.Obj()
	assert.Equal(t, ForeignObject, obj.Kind())
	assert.Equal(t, OwnsHeapCopy, obj.Ownership())
	assert.Equal(t, reflect.TypeFor[handle](), obj.ForeignType())
	assert.Equal(t, 0, obj.FieldCount())
}

func TestForeignPtrMutates(t *testing.T) {
	v := MakeForeignValue(handleType, handle{Name: "a"})
	alias := v

	ptr, err := ForeignPtr[handle](v)
	require.NoError(t, err)
	ptr.Port = 80

	got, err := ReadForeign[handle](alias)
	require.NoError(t, err)
	assert.Equal(t, 80, got.Port)
}

func TestForeignTypeMismatch(t *testing.T) {
	v := MakeForeignValue(handleType, handle{Name: "a"})

	_, err := ReadForeign[int](v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	var tm *TypeMismatchError
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, "int", tm.Want)
	assert.Equal(t, "vm.handle", tm.Got)

	_, err = ReadForeign[*handle](v)
	assert.True(t, errors.Is(err, ErrTypeMismatch), "pointer and value tokens differ")
}

func TestForeignReadOnNonForeign(t *testing.T) {
	_, err := ReadForeign[int](FromInt(3))
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	_, err = ReadForeign[int](MakeObject(pointType, 1))
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestForeignObjectFieldsRejected(t *testing.T) {
	obj := MakeForeignValue(handleType, handle{}).Obj()
	_, err := obj.Field(0)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestForeignHeapCopyReleaseOnce(t *testing.T) {
	v := MakeForeignValue(handleType, handle{Name: "x"})
	obj := v.Obj()

	assert.True(t, obj.Release())
	assert.False(t, obj.Release(), "second release must be a no-op")
	assert.True(t, obj.Released())

	_, err := ReadForeign[handle](v)
	assert.True(t, errors.Is(err, ErrReleased))
}

func TestForeignRefRetainRelease(t *testing.T) {
	ref := &countedRef{refs: 1}
	v := MakeForeignRef(counterType, ref)
	assert.Equal(t, 2, ref.refs, "wrapping retains once")
	assert.Equal(t, SharesExternalRef, v.Obj().Ownership())

	got, err := ReadForeign[*countedRef](v)
	require.NoError(t, err)
	assert.Same(t, ref, got)

	assert.True(t, v.Obj().Release())
	assert.False(t, v.Obj().Release())
	assert.Equal(t, 1, ref.refs)
	assert.Equal(t, 1, ref.released)
}

func TestForeignMixedPathsSameTypeID(t *testing.T) {
	byValue := MakeForeignValue(counterType, countedRef{})
	byRef := MakeForeignRef(counterType, &countedRef{})

	_, err := ReadForeign[countedRef](byValue)
	assert.NoError(t, err)
	_, err = ReadForeign[*countedRef](byRef)
	assert.NoError(t, err)

	_, err = ReadForeign[countedRef](byRef)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestForeignReservedTypeID(t *testing.T) {
	assert.Panics(t, func() { MakeForeignValue(TypeInt, 1) })
}

// collectedRef is released from the runtime cleanup goroutine, so its
// count is atomic.
type collectedRef struct {
	refs atomic.Int32
	done chan struct{}
	once sync.Once
}

func (c *collectedRef) Retain() { c.refs.Add(1) }

func (c *collectedRef) Release() {
	if c.refs.Add(-1) == 0 {
		c.once.Do(func() { close(c.done) })
	}
}

//go:noinline
func wrapAndDrop(typeID TypeID, r *collectedRef) {
	v := MakeForeignRef(typeID, r)
	_ = v.Obj()
}

func TestForeignRefReleasedByCollector(t *testing.T) {
	ref := &collectedRef{done: make(chan struct{})}
	wrapAndDrop(counterType, ref)
	require.Equal(t, int32(1), ref.refs.Load())

	deadline := time.After(5 * time.Second)
	for {
		runtime.GC()
		select {
		case <-ref.done:
			assert.Equal(t, int32(0), ref.refs.Load())
			return
		case <-deadline:
			t.Fatal("unreachable foreign object was never released")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestForeignPtrOutlivesValue(t *testing.T) {
	type pair struct{ A, B int }
	ptr, err := ForeignPtr[pair](MakeForeignValue(handleType, pair{7, 8}))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, pair{7, 8}, *ptr)
}

func TestForeignViewSurvivesRelease(t *testing.T) {
	v := MakeForeignValue(handleType, handle{Name: "db", Port: 5432})
	ptr, err := ForeignPtr[handle](v)
	require.NoError(t, err)

	require.True(t, v.Obj().Release())
	assert.Equal(t, handle{Name: "db", Port: 5432}, *ptr)

	_, err = ForeignPtr[handle](v)
	assert.True(t, errors.Is(err, ErrReleased))
}

func TestForeignReleaseRacesReads(t *testing.T) {
	v := MakeForeignValue(handleType, handle{Name: "x"})
	var wg sync.WaitGroup
	var releases atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if v.Obj().Release() {
				releases.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if h, err := ReadForeign[handle](v); err == nil {
				assert.Equal(t, "x", h.Name)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), releases.Load())
}
