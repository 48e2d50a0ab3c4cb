package bytebuf

import "github.com/gekko3d/simcore/simerr"

// ElementType identifies the fixed-width type a TypedView projects its
// backing ByteBuffer as.
type ElementType int

const (
	ElementInt8 ElementType = iota
	ElementUint8
	ElementInt16
	ElementUint16
	ElementInt32
	ElementUint32
	ElementInt64
	ElementUint64
	ElementFloat32
	ElementFloat64
)

func elementSize(t ElementType) int {
	switch t {
	case ElementInt8, ElementUint8:
		return 1
	case ElementInt16, ElementUint16:
		return 2
	case ElementInt32, ElementUint32, ElementFloat32:
		return 4
	default:
		return 8
	}
}

// TypedView projects a region of a ByteBuffer as a fixed-width element
// array, translating element indices into byte seeks plus the underlying
// buffer's typed accessor rather than duplicating codec logic.
type TypedView struct {
	buf     *ByteBuffer
	elem    ElementType
	base    int // byte offset of element 0, within buf's storage
	count   int // element count
}

// NewTypedView projects count elements of kind starting at the buffer's
// current position. The backing buffer must have at least count*size(kind)
// bytes remaining.
func NewTypedView(buf *ByteBuffer, kind ElementType, count int) (*TypedView, error) {
	size := elementSize(kind)
	need := size * count
	if err := buf.checkReadable("NewTypedView", need); err != nil {
		return nil, err
	}
	return &TypedView{buf: buf, elem: kind, base: buf.position, count: count}, nil
}

func (v *TypedView) Len() int                 { return v.count }
func (v *TypedView) ElementType() ElementType { return v.elem }

// Capacity is the view's element count; Position, Limit, and Remaining are
// the backing buffer's byte-valued cursor fields expressed in whole
// elements relative to the view's start (flooring, clamped at 0).
func (v *TypedView) Capacity() int { return v.count }

func (v *TypedView) Position() int {
	return clampElems(v.buf.Position()-v.base, elementSize(v.elem))
}

func (v *TypedView) Limit() int {
	n := clampElems(v.buf.Limit()-v.base, elementSize(v.elem))
	if n > v.count {
		return v.count
	}
	return n
}

func (v *TypedView) Remaining() int {
	r := v.Limit() - v.Position()
	if r < 0 {
		return 0
	}
	return r
}

func clampElems(bytes, elemSize int) int {
	if bytes <= 0 {
		return 0
	}
	return bytes / elemSize
}

func (v *TypedView) offset(i int) (int, error) {
	if i < 0 || i >= v.count {
		return 0, simerr.New("TypedView.offset", simerr.Overflow, "index", i, "len", v.count)
	}
	return v.base + i*elementSize(v.elem), nil
}

func (v *TypedView) seekTo(i int) error {
	off, err := v.offset(i)
	if err != nil {
		return err
	}
	return v.buf.Seek(off, SeekBegin)
}

// GetValue reads element i as an any, boxing the underlying typed accessor
// result according to v's ElementType.
func (v *TypedView) GetValue(i int) (any, error) {
	if err := v.seekTo(i); err != nil {
		return nil, err
	}
	switch v.elem {
	case ElementInt8:
		return v.buf.GetInt8()
	case ElementUint8:
		return v.buf.GetUint8()
	case ElementInt16:
		return v.buf.GetInt16()
	case ElementUint16:
		return v.buf.GetUint16()
	case ElementInt32:
		return v.buf.GetInt32()
	case ElementUint32:
		return v.buf.GetUint32()
	case ElementInt64:
		return v.buf.GetInt64()
	case ElementUint64:
		return v.buf.GetUint64()
	case ElementFloat32:
		return v.buf.GetFloat32()
	case ElementFloat64:
		return v.buf.GetFloat64()
	}
	return nil, simerr.New("TypedView.GetValue", simerr.InvalidOperation)
}

// SetValue writes val at element i; val's dynamic type must match v's
// ElementType exactly.
func (v *TypedView) SetValue(i int, val any) error {
	if err := v.seekTo(i); err != nil {
		return err
	}
	switch v.elem {
	case ElementInt8:
		x, ok := val.(int8)
		if !ok {
			return typeMismatch("int8")
		}
		return v.buf.PutInt8(x)
	case ElementUint8:
		x, ok := val.(uint8)
		if !ok {
			return typeMismatch("uint8")
		}
		return v.buf.PutUint8(x)
	case ElementInt16:
		x, ok := val.(int16)
		if !ok {
			return typeMismatch("int16")
		}
		return v.buf.PutInt16(x)
	case ElementUint16:
		x, ok := val.(uint16)
		if !ok {
			return typeMismatch("uint16")
		}
		return v.buf.PutUint16(x)
	case ElementInt32:
		x, ok := val.(int32)
		if !ok {
			return typeMismatch("int32")
		}
		return v.buf.PutInt32(x)
	case ElementUint32:
		x, ok := val.(uint32)
		if !ok {
			return typeMismatch("uint32")
		}
		return v.buf.PutUint32(x)
	case ElementInt64:
		x, ok := val.(int64)
		if !ok {
			return typeMismatch("int64")
		}
		return v.buf.PutInt64(x)
	case ElementUint64:
		x, ok := val.(uint64)
		if !ok {
			return typeMismatch("uint64")
		}
		return v.buf.PutUint64(x)
	case ElementFloat32:
		x, ok := val.(float32)
		if !ok {
			return typeMismatch("float32")
		}
		return v.buf.PutFloat32(x)
	case ElementFloat64:
		x, ok := val.(float64)
		if !ok {
			return typeMismatch("float64")
		}
		return v.buf.PutFloat64(x)
	}
	return simerr.New("TypedView.SetValue", simerr.InvalidOperation)
}

func typeMismatch(want string) error {
	return simerr.New("TypedView.SetValue", simerr.InvalidOperation, "want", want)
}

// GetValues reads every element into a []any in order.
func (v *TypedView) GetValues() ([]any, error) {
	out := make([]any, v.count)
	for i := 0; i < v.count; i++ {
		val, err := v.GetValue(i)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// SetValues writes vals starting at element 0. len(vals) must equal v.Len().
func (v *TypedView) SetValues(vals []any) error {
	if len(vals) != v.count {
		return simerr.New("TypedView.SetValues", simerr.InvalidOperation, "got", len(vals), "want", v.count)
	}
	for i, val := range vals {
		if err := v.SetValue(i, val); err != nil {
			return err
		}
	}
	return nil
}

// Slice returns a sub-view over [begin,end) elements, sharing the same
// backing buffer.
func (v *TypedView) Slice(begin, end int) (*TypedView, error) {
	if begin < 0 || end > v.count || begin > end {
		return nil, simerr.New("TypedView.Slice", simerr.Overflow, "begin", begin, "end", end, "len", v.count)
	}
	off, err := v.offset(begin)
	if err != nil {
		return nil, err
	}
	return &TypedView{buf: v.buf, elem: v.elem, base: off, count: end - begin}, nil
}

// ToInt32Array reads the view as a []int32; ElementType must be ElementInt32.
func (v *TypedView) ToInt32Array() ([]int32, error) {
	if v.elem != ElementInt32 {
		return nil, typeMismatch("int32")
	}
	out := make([]int32, v.count)
	for i := range out {
		val, err := v.GetValue(i)
		if err != nil {
			return nil, err
		}
		out[i] = val.(int32)
	}
	return out, nil
}

// ToFloat32Array reads the view as a []float32; ElementType must be
// ElementFloat32.
func (v *TypedView) ToFloat32Array() ([]float32, error) {
	if v.elem != ElementFloat32 {
		return nil, typeMismatch("float32")
	}
	out := make([]float32, v.count)
	for i := range out {
		val, err := v.GetValue(i)
		if err != nil {
			return nil, err
		}
		out[i] = val.(float32)
	}
	return out, nil
}

// ToFloat64Array reads the view as a []float64; ElementType must be
// ElementFloat64.
func (v *TypedView) ToFloat64Array() ([]float64, error) {
	if v.elem != ElementFloat64 {
		return nil, typeMismatch("float64")
	}
	out := make([]float64, v.count)
	for i := range out {
		val, err := v.GetValue(i)
		if err != nil {
			return nil, err
		}
		out[i] = val.(float64)
	}
	return out, nil
}
