package bytebuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedView_Int32RoundTrip(t *testing.T) {
	b, err := Alloc(64, BigEndian, false)
	require.NoError(t, err)

	view, err := NewTypedView(b, ElementInt32, 4)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, view.SetValue(i, int32(i*10)))
	}
	for i := 0; i < 4; i++ {
		v, err := view.GetValue(i)
		require.NoError(t, err)
		assert.Equal(t, int32(i*10), v)
	}
}

func TestTypedView_SetValueRejectsWrongType(t *testing.T) {
	b, err := Alloc(64, BigEndian, false)
	require.NoError(t, err)
	view, err := NewTypedView(b, ElementInt32, 2)
	require.NoError(t, err)

	err = view.SetValue(0, "nope")
	require.Error(t, err)
}

func TestTypedView_OutOfRangeIndex(t *testing.T) {
	b, err := Alloc(64, BigEndian, false)
	require.NoError(t, err)
	view, err := NewTypedView(b, ElementFloat32, 2)
	require.NoError(t, err)

	_, err = view.GetValue(5)
	require.Error(t, err)
}

func TestTypedView_ToFloat32Array(t *testing.T) {
	b, err := Alloc(64, BigEndian, false)
	require.NoError(t, err)
	view, err := NewTypedView(b, ElementFloat32, 3)
	require.NoError(t, err)

	want := []float32{1.5, -2.5, 3}
	require.NoError(t, view.SetValues([]any{want[0], want[1], want[2]}))

	got, err := view.ToFloat32Array()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTypedView_Slice(t *testing.T) {
	b, err := Alloc(64, BigEndian, false)
	require.NoError(t, err)
	view, err := NewTypedView(b, ElementUint16, 8)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, view.SetValue(i, uint16(i)))
	}

	sub, err := view.Slice(2, 5)
	require.NoError(t, err)
	require.Equal(t, 3, sub.Len())

	v, err := sub.GetValue(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), v)
}

func TestTypedView_RejectsWhenBufferTooShort(t *testing.T) {
	b, err := Alloc(4, BigEndian, false)
	require.NoError(t, err)
	_, err = NewTypedView(b, ElementFloat64, 10)
	require.Error(t, err)
}
