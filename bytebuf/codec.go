package bytebuf

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"unsafe"

	"github.com/gekko3d/simcore/simerr"
)

func (b *ByteBuffer) checkReadable(op string, n int) error {
	if err := b.checkReleased(op); err != nil {
		return err
	}
	if b.position+n > b.limit {
		return simerr.New(op, simerr.Underflow, "needed", n, "remaining", b.Remaining())
	}
	return nil
}

// PutInt8/GetInt8 and friends implement the fixed-width typed accessors:
// each reads or writes at the current position, honoring byte order for
// multi-byte values, and advances position by the value's width.

func (b *ByteBuffer) PutUint8(v uint8) error {
	if err := b.checkWritable("ByteBuffer.PutUint8"); err != nil {
		return err
	}
	if err := b.ensureWritable(1); err != nil {
		return err
	}
	b.storage[b.position] = v
	b.position++
	return nil
}

func (b *ByteBuffer) GetUint8() (uint8, error) {
	if err := b.checkReadable("ByteBuffer.GetUint8", 1); err != nil {
		return 0, err
	}
	v := b.storage[b.position]
	b.position++
	return v, nil
}

func (b *ByteBuffer) PutInt8(v int8) error { return b.PutUint8(uint8(v)) }
func (b *ByteBuffer) GetInt8() (int8, error) {
	v, err := b.GetUint8()
	return int8(v), err
}

func (b *ByteBuffer) PutUint16(v uint16) error {
	if err := b.checkWritable("ByteBuffer.PutUint16"); err != nil {
		return err
	}
	if err := b.ensureWritable(2); err != nil {
		return err
	}
	b.order.PutUint16(b.storage[b.position:], v)
	b.position += 2
	return nil
}

func (b *ByteBuffer) GetUint16() (uint16, error) {
	if err := b.checkReadable("ByteBuffer.GetUint16", 2); err != nil {
		return 0, err
	}
	v := b.order.Uint16(b.storage[b.position:])
	b.position += 2
	return v, nil
}

func (b *ByteBuffer) PutInt16(v int16) error { return b.PutUint16(uint16(v)) }
func (b *ByteBuffer) GetInt16() (int16, error) {
	v, err := b.GetUint16()
	return int16(v), err
}

func (b *ByteBuffer) PutUint32(v uint32) error {
	if err := b.checkWritable("ByteBuffer.PutUint32"); err != nil {
		return err
	}
	if err := b.ensureWritable(4); err != nil {
		return err
	}
	b.order.PutUint32(b.storage[b.position:], v)
	b.position += 4
	return nil
}

func (b *ByteBuffer) GetUint32() (uint32, error) {
	if err := b.checkReadable("ByteBuffer.GetUint32", 4); err != nil {
		return 0, err
	}
	v := b.order.Uint32(b.storage[b.position:])
	b.position += 4
	return v, nil
}

func (b *ByteBuffer) PutInt32(v int32) error { return b.PutUint32(uint32(v)) }
func (b *ByteBuffer) GetInt32() (int32, error) {
	v, err := b.GetUint32()
	return int32(v), err
}

// PutInt64/GetInt64 implement the "bigint" 64-bit accessor.
func (b *ByteBuffer) PutUint64(v uint64) error {
	if err := b.checkWritable("ByteBuffer.PutUint64"); err != nil {
		return err
	}
	if err := b.ensureWritable(8); err != nil {
		return err
	}
	b.order.PutUint64(b.storage[b.position:], v)
	b.position += 8
	return nil
}

func (b *ByteBuffer) GetUint64() (uint64, error) {
	if err := b.checkReadable("ByteBuffer.GetUint64", 8); err != nil {
		return 0, err
	}
	v := b.order.Uint64(b.storage[b.position:])
	b.position += 8
	return v, nil
}

func (b *ByteBuffer) PutInt64(v int64) error { return b.PutUint64(uint64(v)) }
func (b *ByteBuffer) GetInt64() (int64, error) {
	v, err := b.GetUint64()
	return int64(v), err
}

func (b *ByteBuffer) PutFloat32(v float32) error {
	return b.PutUint32(math.Float32bits(v))
}

func (b *ByteBuffer) GetFloat32() (float32, error) {
	v, err := b.GetUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (b *ByteBuffer) PutFloat64(v float64) error {
	return b.PutUint64(math.Float64bits(v))
}

func (b *ByteBuffer) GetFloat64() (float64, error) {
	v, err := b.GetUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// PutVarint encodes a 32-bit unsigned value as a little-endian base-128
// varint: 7 data bits per byte, high bit set to signal continuation,
// 1-5 bytes for the full uint32 domain.
func (b *ByteBuffer) PutVarint(v uint32) error {
	if err := b.checkWritable("ByteBuffer.PutVarint"); err != nil {
		return err
	}
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		if err := b.ensureWritable(1); err != nil {
			return err
		}
		b.storage[b.position] = c
		b.position++
		if v == 0 {
			return nil
		}
	}
}

// GetVarint decodes a varint written by PutVarint. A 32-bit value never
// needs more than 5 bytes; if the fifth byte still has its continuation
// bit set, decoding fails with BufferUnderflowError.
func (b *ByteBuffer) GetVarint() (uint32, error) {
	var v uint32
	var shift uint
	for i := 0; i < 5; i++ {
		c, err := b.GetUint8()
		if err != nil {
			return 0, err
		}
		v |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
	return 0, simerr.New("ByteBuffer.GetVarint", simerr.Underflow, "reason", "varint exceeds 5 bytes")
}

// PutString writes a 4-byte signed length (honoring buffer order) followed
// by s's UTF-8 bytes.
func (b *ByteBuffer) PutString(s string) error {
	if len(s) > MaxStringWriteLength {
		return simerr.New("ByteBuffer.PutString", simerr.Overflow, "length", len(s), "max", MaxStringWriteLength)
	}
	if err := b.PutInt32(int32(len(s))); err != nil {
		return err
	}
	if err := b.checkWritable("ByteBuffer.PutString"); err != nil {
		return err
	}
	if err := b.ensureWritable(len(s)); err != nil {
		return err
	}
	copy(b.storage[b.position:], s)
	b.position += len(s)
	return nil
}

// GetString reads a 4-byte signed length (honoring buffer order) followed
// by that many UTF-8 bytes.
func (b *ByteBuffer) GetString() (string, error) {
	n, err := b.GetInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", simerr.New("ByteBuffer.GetString", simerr.Underflow, "length", n)
	}
	if err := b.checkReadable("ByteBuffer.GetString", int(n)); err != nil {
		return "", err
	}
	s := string(b.storage[b.position : b.position+int(n)])
	b.position += int(n)
	return s, nil
}

// PutCString writes s followed by a NUL terminator. s must not itself
// contain a NUL byte.
func (b *ByteBuffer) PutCString(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return simerr.New("ByteBuffer.PutCString", simerr.InvalidOperation, "reason", "embedded NUL")
		}
	}
	if err := b.checkWritable("ByteBuffer.PutCString"); err != nil {
		return err
	}
	if err := b.ensureWritable(len(s) + 1); err != nil {
		return err
	}
	copy(b.storage[b.position:], s)
	b.position += len(s)
	b.storage[b.position] = 0
	b.position++
	return nil
}

// GetCString reads bytes up to and including the next NUL terminator.
func (b *ByteBuffer) GetCString() (string, error) {
	if err := b.checkReadable("ByteBuffer.GetCString", 0); err != nil {
		return "", err
	}
	start := b.position
	for p := start; p < b.limit; p++ {
		if b.storage[p] == 0 {
			s := string(b.storage[start:p])
			b.position = p + 1
			return s, nil
		}
	}
	return "", simerr.New("ByteBuffer.GetCString", simerr.Underflow, "reason", "no NUL terminator before limit")
}

// PutJSON marshals v to canonical JSON and writes it through the string
// codec (4-byte length prefix, then bytes).
func (b *ByteBuffer) PutJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return simerr.Wrap("ByteBuffer.PutJSON", simerr.InvalidOperation, err)
	}
	return b.PutString(string(data))
}

// GetJSON reads a length-prefixed blob through the string codec and
// unmarshals it into out.
func (b *ByteBuffer) GetJSON(out any) error {
	s, err := b.GetString()
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return simerr.Wrap("ByteBuffer.GetJSON", simerr.InvalidOperation, err)
	}
	return nil
}

var hostLittleEndian = func() bool {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 0x0102)
	return probe[0] == 0x02
}()

// orderIsNative reports whether the buffer's byte order matches the host's,
// gating the memcpy fast path in the bulk array writers.
func (b *ByteBuffer) orderIsNative() bool {
	if hostLittleEndian {
		return b.order == LittleEndian
	}
	return b.order == BigEndian
}

// PutInt8Array bulk-writes vals; single-byte elements have no byte order,
// so this is always a straight copy.
func (b *ByteBuffer) PutInt8Array(vals []int8) error {
	if err := b.checkWritable("ByteBuffer.PutInt8Array"); err != nil {
		return err
	}
	if err := b.ensureWritable(len(vals)); err != nil {
		return err
	}
	for _, v := range vals {
		b.storage[b.position] = byte(v)
		b.position++
	}
	return nil
}

// PutInt32Array bulk-writes vals, taking a single-copy fast path when the
// buffer's byte order matches the host's native order and falling back to
// element-wise writes otherwise.
func (b *ByteBuffer) PutInt32Array(vals []int32) error {
	if err := b.checkWritable("ByteBuffer.PutInt32Array"); err != nil {
		return err
	}
	n := 4 * len(vals)
	if err := b.ensureWritable(n); err != nil {
		return err
	}
	if len(vals) > 0 && b.orderIsNative() {
		src := unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), n)
		copy(b.storage[b.position:], src)
		b.position += n
		return nil
	}
	for _, v := range vals {
		b.order.PutUint32(b.storage[b.position:], uint32(v))
		b.position += 4
	}
	return nil
}

// PutBytes writes raw bytes with no length prefix.
func (b *ByteBuffer) PutBytes(p []byte) error {
	if err := b.checkWritable("ByteBuffer.PutBytes"); err != nil {
		return err
	}
	if err := b.ensureWritable(len(p)); err != nil {
		return err
	}
	copy(b.storage[b.position:], p)
	b.position += len(p)
	return nil
}

// GetBytes reads n raw bytes with no length prefix.
func (b *ByteBuffer) GetBytes(n int) ([]byte, error) {
	if err := b.checkReadable("ByteBuffer.GetBytes", n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b.storage[b.position:b.position+n])
	b.position += n
	return out, nil
}
