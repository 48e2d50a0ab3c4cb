// Package bytebuf implements a position/limit/mark byte buffer: a mutable
// cursor over a byte region with endian-aware typed I/O, variable-length
// codecs, and a typed-view projection. The cursor discipline
// (flip/compact/rewind/clear, mark <= position <= limit <= capacity)
// follows the java.nio.ByteBuffer contract. Buffers may be backed by
// pooled slabs from the bufferpool package or allocated directly.
package bytebuf

import (
	"encoding/binary"
	"sync"

	"github.com/gekko3d/simcore/bufferpool"
	"github.com/gekko3d/simcore/simerr"
)

// ByteOrder aliases encoding/binary.ByteOrder; simcore has no reason to
// redeclare big/little-endian codecs the standard library already provides
// bit-exactly for IEEE-754 binary32/binary64 with byte order determined by
// the buffer's order.
type ByteOrder = binary.ByteOrder

var (
	BigEndian    = binary.BigEndian
	LittleEndian = binary.LittleEndian
)

// SeekOrigin selects the reference point for Seek.
type SeekOrigin int

const (
	SeekBegin SeekOrigin = iota
	SeekCurrent
	SeekEnd
)

// State is the buffer's lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateAllocated
	StateReading
	StateWriting
	StateReleased
)

const noMark = -1

// ByteBuffer is a mutable position/limit/mark cursor over a fixed byte
// region.
type ByteBuffer struct {
	storage  []byte
	capacity int
	position int
	limit    int
	mark     int

	order    ByteOrder
	readOnly bool

	pooled  bool
	wrapped bool
	slab    *bufferpool.Slab
	bp      *bufferpool.BufferPool

	state State
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Alloc allocates a new ByteBuffer of at least capacity bytes (rounded up
// to the next power of two), optionally backed by the shared BufferPool.
func Alloc(capacity int, order ByteOrder, usePool bool) (*ByteBuffer, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, simerr.New("ByteBuffer.Alloc", simerr.CapacityExceed, "capacity", capacity)
	}
	rounded := nextPow2(capacity)
	b := &ByteBuffer{
		capacity: rounded,
		limit:    rounded,
		mark:     noMark,
		order:    order,
		state:    StateEmpty,
	}
	if usePool {
		bp := bufferpool.Default()
		slab, err := bp.Allocate(rounded)
		if err != nil {
			return nil, err
		}
		b.storage = slab.Bytes()[:rounded]
		b.slab = slab
		b.bp = bp
		b.pooled = true
	} else {
		b.storage = make([]byte, rounded)
	}
	b.state = StateAllocated
	return b, nil
}

// DirectBuffer is Alloc with usePool=false.
func DirectBuffer(capacity int, order ByteOrder) (*ByteBuffer, error) {
	return Alloc(capacity, order, false)
}

var wrapCacheMu sync.Mutex
var wrapCache = map[*byte]*ByteBuffer{}

// Wrap produces a ByteBuffer sharing existing's storage. Repeated wraps of
// the same underlying array return the same handle.
func Wrap(existing []byte, order ByteOrder) *ByteBuffer {
	if len(existing) == 0 {
		return &ByteBuffer{storage: existing, order: order, mark: noMark, state: StateAllocated, wrapped: true}
	}
	key := &existing[0]
	wrapCacheMu.Lock()
	defer wrapCacheMu.Unlock()
	if b, ok := wrapCache[key]; ok {
		return b
	}
	b := &ByteBuffer{
		storage:  existing,
		capacity: len(existing),
		limit:    len(existing),
		mark:     noMark,
		order:    order,
		wrapped:  true,
		state:    StateAllocated,
	}
	wrapCache[key] = b
	return b
}

func (b *ByteBuffer) checkReleased(op string) error {
	if b.state == StateReleased {
		return simerr.New(op, simerr.Released)
	}
	return nil
}

func (b *ByteBuffer) checkWritable(op string) error {
	if err := b.checkReleased(op); err != nil {
		return err
	}
	if b.readOnly {
		return simerr.New(op, simerr.ReadOnly)
	}
	return nil
}

// Capacity, Position, Limit, Mark report the buffer's cursor state.
func (b *ByteBuffer) Capacity() int { return b.capacity }
func (b *ByteBuffer) Position() int { return b.position }
func (b *ByteBuffer) Limit() int    { return b.limit }
func (b *ByteBuffer) Remaining() int {
	return b.limit - b.position
}
func (b *ByteBuffer) HasRemaining() bool { return b.position < b.limit }
func (b *ByteBuffer) Order() ByteOrder   { return b.order }
func (b *ByteBuffer) ReadOnly() bool     { return b.readOnly }
func (b *ByteBuffer) State() State       { return b.state }

// Seek sets position relative to origin. Fails on an out-of-range result.
func (b *ByteBuffer) Seek(offset int, origin SeekOrigin) error {
	if err := b.checkReleased("ByteBuffer.Seek"); err != nil {
		return err
	}
	var target int
	switch origin {
	case SeekBegin:
		target = offset
	case SeekCurrent:
		target = b.position + offset
	case SeekEnd:
		target = b.limit + offset
	}
	if target < 0 || target > b.limit {
		return simerr.New("ByteBuffer.Seek", simerr.Overflow, "target", target, "limit", b.limit)
	}
	b.position = target
	return nil
}

// Mark captures the current position.
func (b *ByteBuffer) Mark() error {
	if err := b.checkReleased("ByteBuffer.Mark"); err != nil {
		return err
	}
	b.mark = b.position
	return nil
}

// ResetToMark restores position to the mark set by Mark.
func (b *ByteBuffer) ResetToMark() error {
	if err := b.checkReleased("ByteBuffer.ResetToMark"); err != nil {
		return err
	}
	if b.mark == noMark {
		return simerr.New("ByteBuffer.ResetToMark", simerr.InvalidMark)
	}
	b.position = b.mark
	return nil
}

// Flip sets limit to the current position and rewinds position to 0,
// preparing the buffer for reading what was just written.
func (b *ByteBuffer) Flip() error {
	if err := b.checkReleased("ByteBuffer.Flip"); err != nil {
		return err
	}
	b.limit = b.position
	b.position = 0
	b.mark = noMark
	return nil
}

// Rewind sets position to 0, clearing the mark.
func (b *ByteBuffer) Rewind() error {
	if err := b.checkReleased("ByteBuffer.Rewind"); err != nil {
		return err
	}
	b.position = 0
	b.mark = noMark
	return nil
}

// Clear resets position to 0 and limit to capacity; content is undefined
// (not zeroed).
func (b *ByteBuffer) Clear() error {
	if err := b.checkReleased("ByteBuffer.Clear"); err != nil {
		return err
	}
	b.position = 0
	b.limit = b.capacity
	b.mark = noMark
	return nil
}

// Compact moves [position,limit) to [0, limit-position), sets position to
// the moved length, limit to capacity, and clears the mark.
func (b *ByteBuffer) Compact() error {
	if err := b.checkWritable("ByteBuffer.Compact"); err != nil {
		return err
	}
	n := copy(b.storage, b.storage[b.position:b.limit])
	b.position = n
	b.limit = b.capacity
	b.mark = noMark
	return nil
}

// Slice returns a new ByteBuffer over a copy of [begin,end) bytes,
// preserving byte order and the read-only flag.
func (b *ByteBuffer) Slice(begin, end int) (*ByteBuffer, error) {
	if err := b.checkReleased("ByteBuffer.Slice"); err != nil {
		return nil, err
	}
	if begin < 0 || end > b.capacity || begin > end {
		return nil, simerr.New("ByteBuffer.Slice", simerr.Overflow, "begin", begin, "end", end, "capacity", b.capacity)
	}
	cp := make([]byte, end-begin)
	copy(cp, b.storage[begin:end])
	out := &ByteBuffer{
		storage:  cp,
		capacity: len(cp),
		limit:    len(cp),
		mark:     noMark,
		order:    b.order,
		readOnly: b.readOnly,
		state:    StateAllocated,
	}
	return out, nil
}

// SliceRange slices [position, position+length) and advances position by length.
func (b *ByteBuffer) SliceRange(length int) (*ByteBuffer, error) {
	if length < 0 || b.position+length > b.limit {
		return nil, simerr.New("ByteBuffer.SliceRange", simerr.Underflow, "length", length, "remaining", b.Remaining())
	}
	out, err := b.Slice(b.position, b.position+length)
	if err != nil {
		return nil, err
	}
	b.position += length
	return out, nil
}

// Duplicate returns an independent view sharing the same storage, with its
// own position/limit/mark.
func (b *ByteBuffer) Duplicate() *ByteBuffer {
	return &ByteBuffer{
		storage:  b.storage,
		capacity: b.capacity,
		position: b.position,
		limit:    b.limit,
		mark:     noMark,
		order:    b.order,
		readOnly: b.readOnly,
		wrapped:  true, // duplicates never own pooled storage
		state:    b.state,
	}
}

// AsReadOnlyBuffer returns a Duplicate with the read-only flag set.
func (b *ByteBuffer) AsReadOnlyBuffer() *ByteBuffer {
	dup := b.Duplicate()
	dup.readOnly = true
	return dup
}

// Align advances position to the next multiple of alignment, which must be
// a positive power of two.
func (b *ByteBuffer) Align(alignment int) error {
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return simerr.New("ByteBuffer.Align", simerr.Alignment, "alignment", alignment)
	}
	aligned := (b.position + alignment - 1) &^ (alignment - 1)
	if aligned > b.limit {
		return simerr.New("ByteBuffer.Align", simerr.Alignment, "aligned", aligned, "limit", b.limit)
	}
	b.position = aligned
	return nil
}

// grow expands capacity to accommodate `required` total bytes. A pooled
// buffer releases its previous slab.
func (b *ByteBuffer) grow(required int) error {
	if b.readOnly || b.wrapped {
		return simerr.New("ByteBuffer.grow", simerr.CapacityExceed, "required", required, "capacity", b.capacity)
	}
	min := b.capacity + MinExpansion
	mult := b.capacity + int(float64(b.capacity)*ExpansionFactor)
	newCap := required
	if min > newCap {
		newCap = min
	}
	if mult > newCap {
		newCap = mult
	}
	if newCap > MaxCapacity {
		newCap = MaxCapacity
	}
	if newCap < required {
		return simerr.New("ByteBuffer.grow", simerr.CapacityExceed, "required", required, "max", MaxCapacity)
	}

	newStorage := make([]byte, newCap)
	copy(newStorage, b.storage)

	limitWasFull := b.limit == b.capacity
	oldSlab, oldBP := b.slab, b.bp

	b.storage = newStorage
	b.capacity = newCap
	if limitWasFull {
		b.limit = newCap
	}

	if b.pooled {
		newSlab, err := bufferpool.Default().Allocate(newCap)
		if err == nil {
			copy(newSlab.Bytes(), newStorage)
			b.storage = newSlab.Bytes()[:newCap]
			b.slab = newSlab
			b.bp = bufferpool.Default()
		} else {
			b.pooled = false
			b.slab = nil
			b.bp = nil
		}
		if oldSlab != nil && oldBP != nil {
			oldBP.Release(oldSlab)
		}
	}
	return nil
}

// ensureWritable grows the buffer if writing n bytes at the current
// position would exceed capacity.
func (b *ByteBuffer) ensureWritable(n int) error {
	if b.position+n <= b.capacity {
		if b.position+n > b.limit {
			b.limit = b.position + n
		}
		return nil
	}
	if err := b.grow(b.position + n); err != nil {
		return err
	}
	if b.position+n > b.limit {
		b.limit = b.position + n
	}
	return nil
}

// Release returns a pooled buffer's slab to the BufferPool and marks the
// buffer released; any further use fails.
func (b *ByteBuffer) Release() {
	if b.state == StateReleased {
		return
	}
	if b.pooled && b.slab != nil && b.bp != nil {
		b.bp.Release(b.slab)
	}
	b.state = StateReleased
	b.storage = nil
}
