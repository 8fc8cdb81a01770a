package vm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointType = FirstUserType

func TestMakeObjectFields(t *testing.T) {
	v := MakeObject(pointType, 3)
	require.True(t, v.IsObject())
	assert.Equal(t, pointType, v.TypeID())

	obj := v.Obj()
	assert.Equal(t, NativeObject, obj.Kind())
	assert.False(t, obj.IsNull())
	assert.Equal(t, 3, obj.FieldCount())

	for i := 0; i < 3; i++ {
		f, err := obj.Field(i)
		require.NoError(t, err)
		assert.True(t, f.IsNil(), "field %d should start nil", i)
	}

	require.NoError(t, obj.SetField(1, FromInt(5)))
	f, err := obj.Field(1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.Int())
}

func TestMakeObjectZeroFields(t *testing.T) {
	obj := MakeObject(pointType, 0).Obj()
	assert.Equal(t, 0, obj.FieldCount())
	assert.False(t, obj.IsNull())
}

func TestNullObject(t *testing.T) {
	v := MakeObject(pointType, NullFields)
	obj := v.Obj()
	assert.True(t, obj.IsNull())
	assert.Equal(t, NullFields, obj.FieldCount())

	_, err := obj.Field(0)
	assert.True(t, errors.Is(err, ErrNullObject))
	assert.True(t, errors.Is(obj.SetField(0, Nil()), ErrNullObject))
}

func TestFieldOutOfBounds(t *testing.T) {
	obj := MakeObject(pointType, 2).Obj()

	_, err := obj.Field(2)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	_, err = obj.Field(-1)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.True(t, errors.Is(obj.SetField(7, Nil()), ErrOutOfBounds))
}

func TestMakeObjectInvalid(t *testing.T) {
	assert.Panics(t, func() { MakeObject(TypeString, 1) })
	assert.Panics(t, func() { MakeObject(pointType, -2) })
}

func TestObjectAliasing(t *testing.T) {
	a := MakeObject(pointType, 1)
	b := a
	require.NoError(t, b.Obj().SetField(0, FromString("shared")))

	f, err := a.Obj().Field(0)
	require.NoError(t, err)
	assert.Equal(t, "shared", f.Str())
	assert.True(t, a.SameStorage(b))
}

func TestCyclicFields(t *testing.T) {
	a := MakeObject(pointType, 1)
	b := MakeObject(pointType, 1)
	require.NoError(t, a.Obj().SetField(0, b))
	require.NoError(t, b.Obj().SetField(0, a))

	back, err := a.Obj().Field(0)
	require.NoError(t, err)
	self, err := back.Obj().Field(0)
	require.NoError(t, err)
	assert.True(t, self.Equal(a))
}

func TestMakeObjectWithFields(t *testing.T) {
	fields := []Value{FromInt(1), FromInt(2)}
	v := MakeObjectWithFields(pointType, fields)
	fields[0] = Nil()

	f, err := v.Obj().Field(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.Int())
}

func TestNativeObjectHasNoRelease(t *testing.T) {
	obj := MakeObject(pointType, 1).Obj()
	assert.False(t, obj.Release())
	assert.False(t, obj.Released())
	assert.Equal(t, Ownership(0), obj.Ownership())
	assert.Nil(t, obj.ForeignType())
}
