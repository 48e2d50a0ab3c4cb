// Package pool implements a generic object pool: a lend-and-reclaim pool
// over a Resettable type T with pluggable expansion, allocation, and
// eviction policies, watermark-driven compaction, and lifecycle metrics.
// An LRU cache (hashicorp/golang-lru) layered over the slot table serves
// as the recency index driving least/most-recently-used selection and LRU
// eviction order.
package pool

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gekko3d/simcore/simerr"
	"github.com/google/uuid"
)

type slotStatus int

const (
	statusFree slotStatus = iota
	statusAllocated
	statusReserved
)

type slotRec[T Resettable] struct {
	obj          T
	status       slotStatus
	lastAccessed int64
	allocCount   int64
	createdAt    int64
}

// Pool is a generic object pool over T. Use New to construct one.
type Pool[T Resettable] struct {
	mu       sync.Mutex
	opts     Options[T]
	slots    []*slotRec[T] // nil entries are destroyed/vacated slots
	index    map[T]int
	freeList []int
	rrCursor int
	recency  *lru.Cache[int, int64] // slot idx -> last-access tick, Keys() oldest..newest
	total    int
	disposed bool
	metrics  Metrics
	waitCh   chan struct{}
}

// New constructs a Pool[T] from opts. opts.Factory must be non-nil.
func New[T Resettable](opts Options[T]) (*Pool[T], error) {
	resolved := opts.withDefaults()
	if resolved.Factory == nil {
		return nil, simerr.New("pool.New", simerr.InvalidConfiguration, "reason", "Factory is required")
	}
	if resolved.Name == "" {
		resolved.Name = uuid.NewString()
	}
	recency, _ := lru.New[int, int64](int(resolved.MaxCapacity))

	p := &Pool[T]{
		opts:    resolved,
		index:   make(map[T]int),
		recency: recency,
		waitCh:  make(chan struct{}),
	}

	if resolved.InitialCapacity > 0 || resolved.Preallocate {
		n := resolved.InitialCapacity
		if n <= 0 {
			n = 1
		}
		p.growBy(n)
	}
	return p, nil
}

func nowNano() int64 { return time.Now().UnixNano() }

// growBy appends n freshly-created free slots, reusing vacated slot indices
// where available before extending the slice.
func (p *Pool[T]) growBy(n int) int {
	added := 0
	now := nowNano()
	for added < n {
		obj := p.opts.Factory()
		rec := &slotRec[T]{obj: obj, status: statusFree, createdAt: now, lastAccessed: now}

		idx := -1
		for i, s := range p.slots {
			if s == nil {
				idx = i
				break
			}
		}
		if idx == -1 {
			idx = len(p.slots)
			p.slots = append(p.slots, rec)
		} else {
			p.slots[idx] = rec
		}
		p.index[obj] = idx
		p.freeList = append(p.freeList, idx)
		p.recency.Add(idx, now)
		p.total++
		p.metrics.Creations++
		added++
	}
	return added
}

// expand grows the pool according to the configured ExpansionStrategy,
// clamped to MaxCapacity. Returns the number of slots actually added.
func (p *Pool[T]) expand() int {
	if p.total >= p.opts.MaxCapacity {
		return 0
	}
	want := p.growthCount(p.total, int(p.metrics.Expansions))
	if want <= 0 {
		want = 1
	}
	if p.total+want > p.opts.MaxCapacity {
		want = p.opts.MaxCapacity - p.total
	}
	if want <= 0 {
		return 0
	}
	added := p.growBy(want)
	if added > 0 {
		p.metrics.Expansions++
		p.opts.Logger.Debugf("pool %s: expanded by %d slots to %d total", p.opts.Name, added, p.total)
	}
	return added
}

// destroySlot permanently vacates a free slot: removes it from the free
// list, the recency index, and the identity map, decrementing total.
func (p *Pool[T]) destroySlot(idx int) {
	rec := p.slots[idx]
	if rec == nil {
		return
	}
	delete(p.index, rec.obj)
	p.slots[idx] = nil
	p.total--
	p.recency.Remove(idx)
	for i, fi := range p.freeList {
		if fi == idx {
			p.freeList = append(p.freeList[:i], p.freeList[i+1:]...)
			break
		}
	}
	p.metrics.Evictions++
	if p.opts.OnEvict != nil {
		p.opts.OnEvict(rec.obj)
	}
}

// candidateOrder returns the current freeList reordered per
// AllocationStrategy, without mutating p.freeList.
func (p *Pool[T]) candidateOrder() []int {
	switch p.opts.AllocationStrategy {
	case AllocLeastRecentlyUsed, AllocMostRecentlyUsed:
		order := p.recency.Keys() // oldest .. newest
		if p.opts.AllocationStrategy == AllocMostRecentlyUsed {
			for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
				order[i], order[j] = order[j], order[i]
			}
		}
		free := make(map[int]bool, len(p.freeList))
		for _, i := range p.freeList {
			free[i] = true
		}
		out := make([]int, 0, len(p.freeList))
		for _, i := range order {
			if free[i] {
				out = append(out, i)
			}
		}
		return out
	case AllocRoundRobin:
		n := len(p.freeList)
		if n == 0 {
			return nil
		}
		out := make([]int, n)
		for i := 0; i < n; i++ {
			out[i] = p.freeList[(p.rrCursor+i)%n]
		}
		return out
	case AllocFirstAvailable:
		fallthrough
	default:
		out := make([]int, len(p.freeList))
		copy(out, p.freeList)
		return out
	}
}

// acquireLocked implements Acquire under p.mu held. op names the caller for
// error context.
func (p *Pool[T]) acquireLocked(op string) (T, error) {
	var zero T
	if p.disposed {
		return zero, simerr.New(op, simerr.PoolDisposed, "pool", p.opts.Name)
	}

	wasEmpty := len(p.freeList) == 0
	if wasEmpty {
		if !p.opts.DisableAutoExpand && p.total < p.opts.MaxCapacity {
			p.expand()
		}
	}
	if len(p.freeList) == 0 {
		p.metrics.Misses++
		if p.opts.OnOutOfMemory != nil {
			p.opts.OnOutOfMemory()
		}
		return zero, simerr.New(op, simerr.PoolDepleted, "pool", p.opts.Name, "capacity", p.opts.MaxCapacity)
	}

	candidates := p.candidateOrder()
	for _, idx := range candidates {
		rec := p.slots[idx]
		if rec == nil {
			continue
		}
		if p.opts.Validator != nil && !p.opts.Validator(rec.obj) {
			p.metrics.ValidationFailures++
			p.destroySlot(idx)
			continue
		}
		// Found a usable slot.
		now := nowNano()
		rec.status = statusAllocated
		rec.lastAccessed = now
		rec.allocCount++
		p.recency.Add(idx, now)
		for i, fi := range p.freeList {
			if fi == idx {
				p.freeList = append(p.freeList[:i], p.freeList[i+1:]...)
				break
			}
		}
		if p.opts.AllocationStrategy == AllocRoundRobin {
			p.rrCursor++
		}
		if wasEmpty {
			p.metrics.Misses++
		} else {
			p.metrics.Hits++
		}
		p.metrics.Acquires++
		if p.total > p.metrics.HighWaterMark {
			p.metrics.HighWaterMark = p.total
		}
		if p.opts.OnAcquire != nil {
			p.opts.OnAcquire(rec.obj)
		}
		return rec.obj, nil
	}

	if p.opts.Validator != nil {
		return zero, simerr.New(op, simerr.ValidationFailed, "pool", p.opts.Name)
	}
	return zero, simerr.New(op, simerr.PoolDepleted, "pool", p.opts.Name)
}

// Acquire returns a free object, expanding the pool if necessary and
// permitted, or fails with PoolDepleted/ValidationFailed/PoolDisposed.
func (p *Pool[T]) Acquire() (T, error) {
	start := nowNano()
	p.mu.Lock()
	defer p.mu.Unlock()
	obj, err := p.acquireLocked("Pool.Acquire")
	p.metrics.AcquireTiming.observe(time.Duration(nowNano() - start))
	return obj, err
}

// TryAcquire is Acquire but returns ok=false instead of an error when no
// object is available and expansion is not possible.
func (p *Pool[T]) TryAcquire() (obj T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, err := p.acquireLocked("Pool.TryAcquire")
	if err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

func (p *Pool[T]) broadcastLocked() {
	close(p.waitCh)
	p.waitCh = make(chan struct{})
}

func (p *Pool[T]) resetObj(obj T) {
	defer func() {
		if r := recover(); r != nil {
			p.opts.Logger.Warnf("pool %s: reset() panicked: %v", p.opts.Name, r)
		}
	}()
	obj.Reset()
}

// Release returns obj to the pool. obj must currently be allocated from
// this pool, else ForeignObject/AlreadyReleased is returned.
func (p *Pool[T]) Release(obj T) error {
	start := nowNano()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return nil
	}
	idx, ok := p.index[obj]
	if !ok {
		return simerr.New("Pool.Release", simerr.ForeignObject, "pool", p.opts.Name)
	}
	rec := p.slots[idx]
	if rec == nil || rec.status != statusAllocated {
		return simerr.New("Pool.Release", simerr.AlreadyReleased, "pool", p.opts.Name)
	}

	if !p.opts.DisableResetOnRecycle {
		p.resetObj(obj)
	}
	now := nowNano()
	rec.status = statusFree
	rec.lastAccessed = now
	p.freeList = append(p.freeList, idx)
	p.recency.Add(idx, now)
	p.metrics.Releases++
	p.broadcastLocked()

	if p.opts.OnRelease != nil {
		p.opts.OnRelease(obj)
	}
	p.maybeBackgroundCompactLocked()
	p.metrics.ReleaseTiming.observe(time.Duration(nowNano() - start))
	return nil
}

// ReleaseAll releases every currently-allocated slot back to free. Never fails.
func (p *Pool[T]) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	for idx, rec := range p.slots {
		if rec == nil || rec.status != statusAllocated {
			continue
		}
		if !p.opts.DisableResetOnRecycle {
			p.resetObj(rec.obj)
		}
		now := nowNano()
		rec.status = statusFree
		rec.lastAccessed = now
		p.freeList = append(p.freeList, idx)
		p.recency.Add(idx, now)
		p.metrics.Releases++
		if p.opts.OnRelease != nil {
			p.opts.OnRelease(rec.obj)
		}
	}
	p.broadcastLocked()
}

// Clear discards every slot. Only valid when nothing is allocated.
func (p *Pool[T]) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range p.slots {
		if rec != nil && rec.status == statusAllocated {
			return simerr.New("Pool.Clear", simerr.InUseDuringOperation, "pool", p.opts.Name)
		}
	}
	p.slots = nil
	p.index = make(map[T]int)
	p.freeList = nil
	p.total = 0
	p.recency.Purge()
	return nil
}

// Drain discards all currently-free slots; allocated slots are untouched.
func (p *Pool[T]) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	for _, idx := range append([]int(nil), p.freeList...) {
		p.destroySlot(idx)
	}
}

// Resize grows or shrinks capacity toward n. Shrinking can only discard
// free slots, so the achieved capacity may exceed n if more than n slots
// are currently allocated.
func (p *Pool[T]) Resize(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 0 {
		return simerr.New("Pool.Resize", simerr.InvalidCapacity, "requested", n)
	}
	if n > p.total {
		p.growBy(n - p.total)
		return nil
	}
	toRemove := p.total - n
	order := p.evictionOrderLocked()
	inOrder := make(map[int]bool, len(order))
	for _, idx := range order {
		inOrder[idx] = true
	}
	for _, idx := range p.freeList {
		if !inOrder[idx] {
			order = append(order, idx)
		}
	}
	for _, idx := range order {
		if toRemove <= 0 {
			break
		}
		p.destroySlot(idx)
		toRemove--
		p.metrics.Contractions++
	}
	return nil
}

// evictionOrderLocked returns free-slot indices ordered by the configured
// EvictionPolicy, oldest/most-evictable first.
func (p *Pool[T]) evictionOrderLocked() []int {
	switch p.opts.EvictionPolicy {
	case EvictLRU:
		order := p.recency.Keys()
		free := make(map[int]bool, len(p.freeList))
		for _, i := range p.freeList {
			free[i] = true
		}
		out := make([]int, 0, len(p.freeList))
		for _, i := range order {
			if free[i] {
				out = append(out, i)
			}
		}
		return out
	case EvictFIFO:
		out := make([]int, len(p.freeList))
		copy(out, p.freeList)
		sortByCreatedAt(p.slots, out)
		return out
	case EvictTTL:
		now := nowNano()
		out := make([]int, 0, len(p.freeList))
		for _, idx := range p.freeList {
			rec := p.slots[idx]
			if rec != nil && now-rec.lastAccessed > p.opts.TTL.Nanoseconds() {
				out = append(out, idx)
			}
		}
		return out
	case EvictNone:
		fallthrough
	default:
		return nil
	}
}

func sortByCreatedAt[T Resettable](slots []*slotRec[T], idxs []int) {
	for i := 1; i < len(idxs); i++ {
		for j := i; j > 0 && slots[idxs[j-1]].createdAt > slots[idxs[j]].createdAt; j-- {
			idxs[j-1], idxs[j] = idxs[j], idxs[j-1]
		}
	}
}

// ForceCompact vacates free slots, per the eviction policy, until the free
// count is at most MinFree. Never touches allocated slots.
func (p *Pool[T]) ForceCompact() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forceCompactLocked()
}

func (p *Pool[T]) forceCompactLocked() {
	order := p.evictionOrderLocked()
	for _, idx := range order {
		if len(p.freeList) <= p.opts.MinFree {
			break
		}
		p.destroySlot(idx)
	}
}

// maybeBackgroundCompactLocked implements the low-watermark trim: when the
// allocated/total ratio falls below LowWatermarkRatio, trim free slots
// toward MinFree.
func (p *Pool[T]) maybeBackgroundCompactLocked() {
	if p.total == 0 {
		return
	}
	allocated := p.total - len(p.freeList)
	ratio := float64(allocated) / float64(p.total)
	if ratio < p.opts.LowWatermarkRatio {
		p.forceCompactLocked()
	}
}

// Dispose permanently disables the pool. After Dispose, Acquire fails with
// PoolDisposed; Release/ReleaseAll/Drain become silent no-ops.
func (p *Pool[T]) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.disposed = true
	p.broadcastLocked()
}

// IsFromPool reports whether obj's identity is currently tracked by this
// pool (free or allocated).
func (p *Pool[T]) IsFromPool(obj T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.index[obj]
	return ok
}

// Metrics returns a snapshot of the pool's lifetime counters.
func (p *Pool[T]) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// Len returns (allocated, free, total).
func (p *Pool[T]) Len() (allocated, free, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total - len(p.freeList), len(p.freeList), p.total
}
