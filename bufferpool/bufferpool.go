// Package bufferpool implements a bucketed power-of-two slab allocator:
// a process-wide singleton that hands out byte slabs from a fixed ladder
// of size buckets (32 bytes, doubling per tier), each backed by its own
// pool.Pool so expansion, watermarks, and eviction for each bucket are
// independent.
package bufferpool

import (
	"sync"

	"github.com/gekko3d/simcore/pool"
	"github.com/gekko3d/simcore/simerr"
	"github.com/gekko3d/simcore/xlog"
)

const defaultBucketCount = 12 // 32B .. 64KiB
const baseSize = 32

// Options configures a BufferPool.
type Options struct {
	// BucketCount is the number of power-of-two buckets, starting at 32
	// bytes. Defaults to 12 (32B..64KiB) when zero.
	BucketCount int

	// InitialCapacityPerBucket preallocates this many slabs per bucket.
	InitialCapacityPerBucket int
	// MaxCapacityPerBucket bounds each bucket's pool. 0 means unbounded.
	MaxCapacityPerBucket int

	// OnOutOfMemory is invoked when a bucket pool is exhausted and
	// allocate() falls back to a direct (unpooled) allocation.
	OnOutOfMemory func(requestedSize, bucketIndex int)

	Logger xlog.Logger
}

func (o Options) withDefaults() Options {
	if o.BucketCount <= 0 {
		o.BucketCount = defaultBucketCount
	}
	if o.Logger == nil {
		o.Logger = xlog.Nop()
	}
	return o
}

type bucket struct {
	index int
	size  int
	pool  *pool.Pool[*Slab]
}

// BufferPool hands out bucketed byte Slabs. Buckets operate independently,
// each guarded by its own underlying pool's lock.
type BufferPool struct {
	opts    Options
	buckets []*bucket
}

// New constructs a standalone BufferPool. Most callers should use Default()
// for the process-wide singleton.
func New(opts Options) *BufferPool {
	opts = opts.withDefaults()
	bp := &BufferPool{opts: opts}
	bp.buckets = make([]*bucket, opts.BucketCount)
	for i := 0; i < opts.BucketCount; i++ {
		size := baseSize << i
		b := &bucket{index: i, size: size}
		factory := func() *Slab { return newSlab(size, b) }
		p, _ := pool.New(pool.Options[*Slab]{
			Factory:         factory,
			InitialCapacity: opts.InitialCapacityPerBucket,
			MaxCapacity:     opts.MaxCapacityPerBucket,
			Logger:          opts.Logger,
		})
		b.pool = p
		bp.buckets[i] = b
	}
	return bp
}

var (
	defaultOnce sync.Once
	defaultPool *BufferPool
)

// Default returns the process-wide BufferPool singleton, constructing it
// on first use with default Options.
func Default() *BufferPool {
	defaultOnce.Do(func() {
		defaultPool = New(Options{})
	})
	return defaultPool
}

// ResetDefault makes the next Default() call construct a fresh singleton.
// The previous instance is not disposed. Exposed for tests and for
// embedders that need a clean process-wide pool after Dispose.
func ResetDefault() {
	defaultOnce = sync.Once{}
}

// maxSlabSize is the largest size this pool can hand out.
func (bp *BufferPool) maxSlabSize() int {
	return bp.buckets[len(bp.buckets)-1].size
}

func (bp *BufferPool) bucketFor(requestedSize int) (*bucket, error) {
	if requestedSize <= 0 {
		return nil, simerr.New("BufferPool.allocate", simerr.InvalidOperation, "requested", requestedSize)
	}
	if requestedSize > bp.maxSlabSize() {
		return nil, simerr.New("BufferPool.allocate", simerr.CapacityExceed, "requested", requestedSize, "max", bp.maxSlabSize())
	}
	for _, b := range bp.buckets {
		if b.size >= requestedSize {
			return b, nil
		}
	}
	return nil, simerr.New("BufferPool.allocate", simerr.CapacityExceed, "requested", requestedSize)
}

// Allocate returns a slab whose size is the smallest bucket size ≥
// requestedSize. On bucket exhaustion it falls back to a direct allocation
// of the bucketed size and invokes OnOutOfMemory.
func (bp *BufferPool) Allocate(requestedSize int) (*Slab, error) {
	b, err := bp.bucketFor(requestedSize)
	if err != nil {
		return nil, err
	}
	slab, perr := b.pool.Acquire()
	if perr == nil {
		return slab, nil
	}
	// Fallback: direct allocation outside the pool.
	bp.opts.Logger.Warnf("bufferpool: bucket %d (size %d) exhausted, direct allocation for %d-byte request", b.index, b.size, requestedSize)
	if bp.opts.OnOutOfMemory != nil {
		bp.opts.OnOutOfMemory(requestedSize, b.index)
	}
	return newSlab(b.size, nil), nil
}

// TryAllocate is Allocate but never falls back to a direct allocation;
// it returns (nil, nil) if no pooled slab is available.
func (bp *BufferPool) TryAllocate(requestedSize int) (*Slab, error) {
	b, err := bp.bucketFor(requestedSize)
	if err != nil {
		return nil, err
	}
	slab, ok := b.pool.TryAcquire()
	if !ok {
		return nil, nil
	}
	return slab, nil
}

// Release returns slab to its bucket's pool. Slabs whose size doesn't
// match any bucket exactly, or that were created via a direct (fallback)
// allocation, are dropped silently.
func (bp *BufferPool) Release(slab *Slab) {
	if slab == nil || slab.owner == nil {
		return
	}
	_ = slab.owner.pool.Release(slab)
}

// Clear discards all slots in every bucket (only valid while each bucket
// has nothing allocated out).
func (bp *BufferPool) Clear() error {
	for _, b := range bp.buckets {
		if err := b.pool.Clear(); err != nil {
			return err
		}
	}
	return nil
}

// Drain discards all currently-free slabs across every bucket.
func (bp *BufferPool) Drain() {
	for _, b := range bp.buckets {
		b.pool.Drain()
	}
}

// Compact forces eviction of idle slabs toward each bucket's MinFree.
func (bp *BufferPool) Compact() {
	for _, b := range bp.buckets {
		b.pool.ForceCompact()
	}
}

// ResizeBucket resizes the bucket exactly matching size to newCapacity.
func (bp *BufferPool) ResizeBucket(size, newCapacity int) error {
	for _, b := range bp.buckets {
		if b.size == size {
			return b.pool.Resize(newCapacity)
		}
	}
	return simerr.New("BufferPool.ResizeBucket", simerr.InvalidOperation, "size", size)
}

// Dispose permanently disables every bucket pool.
func (bp *BufferPool) Dispose() {
	for _, b := range bp.buckets {
		b.pool.Dispose()
	}
}
