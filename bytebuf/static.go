package bytebuf

import (
	"bytes"

	"github.com/gekko3d/simcore/simerr"
)

// Equals compares two buffers' unread bytes for equality.
func Equals(a, b *ByteBuffer) bool {
	return bytes.Equal(a.storage[a.position:a.limit], b.storage[b.position:b.limit])
}

// Compare lexicographically compares two buffers' unread bytes.
func Compare(a, b *ByteBuffer) int {
	return bytes.Compare(a.storage[a.position:a.limit], b.storage[b.position:b.limit])
}

// Concat returns a new unpooled buffer containing the unread bytes of every
// buffer in bufs, in order, with limit set to the total length.
func Concat(order ByteOrder, bufs ...*ByteBuffer) *ByteBuffer {
	total := 0
	for _, buf := range bufs {
		total += buf.Remaining()
	}
	storage := make([]byte, total)
	pos := 0
	for _, buf := range bufs {
		pos += copy(storage[pos:], buf.storage[buf.position:buf.limit])
	}
	return &ByteBuffer{
		storage:  storage,
		capacity: total,
		limit:    total,
		mark:     noMark,
		order:    order,
		state:    StateAllocated,
	}
}

// CopyOf returns a new unpooled buffer of newCapacity bytes (which must be
// at least b.Remaining()) holding an independent copy of b's unread bytes.
// A newCapacity of 0 or below defaults to b.Remaining().
func CopyOf(b *ByteBuffer, newCapacity int) (*ByteBuffer, error) {
	n := b.Remaining()
	if newCapacity <= 0 {
		newCapacity = n
	}
	if newCapacity < n {
		return nil, simerr.New("bytebuf.CopyOf", simerr.CapacityExceed, "newCapacity", newCapacity, "remaining", n)
	}
	storage := make([]byte, newCapacity)
	copy(storage, b.storage[b.position:b.limit])
	return &ByteBuffer{
		storage:  storage,
		capacity: newCapacity,
		limit:    n,
		mark:     noMark,
		order:    b.order,
		state:    StateAllocated,
	}, nil
}
