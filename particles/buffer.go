// Package particles implements a dense Structure-of-Arrays particle store:
// contiguous per-attribute columns sized to a fixed capacity, O(1)
// add/remove via a free-index stack, and a stable ParticleId <-> index
// mapping that survives compaction and sorting.
package particles

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/simcore/simerr"
)

// ParticleId is a stable, monotonically increasing 32-bit particle
// identity that survives compaction and sorting (unlike a raw slot
// index). 0 is reserved as "absent".
type ParticleId uint32

// CustomSlots is the number of independent general-purpose attribute
// arrays, each holding four float lanes per particle.
const CustomSlots = 4

// Buffer is a dense SoA particle store of up to Capacity() particles.
type Buffer struct {
	capacity int
	count    int
	allocated bool

	nextID ParticleId

	alive        []bool
	position     []mgl32.Vec3
	velocity     []mgl32.Vec3
	acceleration []mgl32.Vec3
	lifetime     []float32
	age          []float32
	size         []mgl32.Vec3
	color        [][4]float32
	rotation     []float32
	angVel       []float32
	custom       [CustomSlots][][4]float32
	id           []ParticleId

	freeIndices []int

	particleToIndex map[ParticleId]int
	indexToParticle map[int]ParticleId
}

// New constructs an empty, unallocated Buffer.
func New() *Buffer {
	return &Buffer{
		particleToIndex: make(map[ParticleId]int),
		indexToParticle: make(map[int]ParticleId),
	}
}

// Capacity returns the buffer's allocated capacity.
func (b *Buffer) Capacity() int { return b.capacity }

// Count returns the number of currently alive particles.
func (b *Buffer) Count() int { return b.count }

// Allocate allocates every attribute column at capacity and populates the
// free-index stack in descending order, so Pop-style reuse yields
// ascending indices.
func (b *Buffer) Allocate(capacity int) error {
	if capacity <= 0 {
		return simerr.New("Buffer.Allocate", simerr.InvalidConfiguration, "capacity", capacity)
	}
	b.capacity = capacity
	b.count = 0
	b.alive = make([]bool, capacity)
	b.position = make([]mgl32.Vec3, capacity)
	b.velocity = make([]mgl32.Vec3, capacity)
	b.acceleration = make([]mgl32.Vec3, capacity)
	b.lifetime = make([]float32, capacity)
	b.age = make([]float32, capacity)
	b.size = make([]mgl32.Vec3, capacity)
	b.color = make([][4]float32, capacity)
	b.rotation = make([]float32, capacity)
	b.angVel = make([]float32, capacity)
	for s := range b.custom {
		b.custom[s] = make([][4]float32, capacity)
	}
	b.id = make([]ParticleId, capacity)
	b.freeIndices = make([]int, capacity)
	for i := 0; i < capacity; i++ {
		b.freeIndices[i] = capacity - 1 - i
	}
	b.particleToIndex = make(map[ParticleId]int)
	b.indexToParticle = make(map[int]ParticleId)
	b.allocated = true
	return nil
}

// Deallocate discards every attribute array and clears mappings.
func (b *Buffer) Deallocate() {
	*b = Buffer{
		particleToIndex: make(map[ParticleId]int),
		indexToParticle: make(map[int]ParticleId),
		nextID:          b.nextID,
	}
}

// Resize grows the buffer to newCapacity, copying existing attribute data
// and extending the free-index stack over the newly added tail. A no-op
// when newCapacity <= Capacity() and the buffer is already allocated.
func (b *Buffer) Resize(newCapacity int) error {
	if !b.allocated {
		return b.Allocate(newCapacity)
	}
	if newCapacity <= b.capacity {
		return nil
	}
	grow := func(old []bool) []bool { n := make([]bool, newCapacity); copy(n, old); return n }
	b.alive = grow(b.alive)

	growVec := func(old []mgl32.Vec3) []mgl32.Vec3 { n := make([]mgl32.Vec3, newCapacity); copy(n, old); return n }
	b.position = growVec(b.position)
	b.velocity = growVec(b.velocity)
	b.acceleration = growVec(b.acceleration)
	b.size = growVec(b.size)

	growF32 := func(old []float32) []float32 { n := make([]float32, newCapacity); copy(n, old); return n }
	b.lifetime = growF32(b.lifetime)
	b.age = growF32(b.age)
	b.rotation = growF32(b.rotation)
	b.angVel = growF32(b.angVel)

	growColor := func(old [][4]float32) [][4]float32 { n := make([][4]float32, newCapacity); copy(n, old); return n }
	b.color = growColor(b.color)
	for s := range b.custom {
		b.custom[s] = growColor(b.custom[s])
	}

	growID := func(old []ParticleId) []ParticleId { n := make([]ParticleId, newCapacity); copy(n, old); return n }
	b.id = growID(b.id)

	for i := newCapacity - 1; i >= b.capacity; i-- {
		b.freeIndices = append(b.freeIndices, i)
	}
	b.capacity = newCapacity
	return nil
}

func unpackARGB(argb uint32) [4]float32 {
	r := float32((argb>>24)&0xff) / 255
	g := float32((argb>>16)&0xff) / 255
	bl := float32((argb>>8)&0xff) / 255
	a := float32(argb&0xff) / 255
	return [4]float32{r, g, bl, a}
}

func (b *Buffer) popFreeIndex() (int, bool) {
	n := len(b.freeIndices)
	if n == 0 {
		return 0, false
	}
	idx := b.freeIndices[n-1]
	b.freeIndices = b.freeIndices[:n-1]
	return idx, true
}

// AddParticle inserts a new particle, growing capacity (doubling) if the
// buffer is full. Returns the new particle's stable id, or an error if
// growth itself fails.
func (b *Buffer) AddParticle(position, velocity mgl32.Vec3, lifetime, size float32, argbColor uint32) (ParticleId, error) {
	if !b.allocated {
		if err := b.Allocate(64); err != nil {
			return 0, err
		}
	}
	if len(b.freeIndices) == 0 {
		if err := b.Resize(2 * b.capacity); err != nil {
			return 0, simerr.Wrap("Buffer.AddParticle", simerr.CapacityExceededKind, err)
		}
	}
	idx, ok := b.popFreeIndex()
	if !ok {
		return 0, simerr.New("Buffer.AddParticle", simerr.CapacityExceededKind)
	}

	b.nextID++
	id := b.nextID

	b.position[idx] = position
	b.velocity[idx] = velocity
	b.size[idx] = mgl32.Vec3{size, size, size}
	b.color[idx] = unpackARGB(argbColor)
	b.lifetime[idx] = lifetime
	b.acceleration[idx] = mgl32.Vec3{}
	b.rotation[idx] = 0
	b.angVel[idx] = 0
	for s := range b.custom {
		b.custom[s][idx] = [4]float32{}
	}
	b.alive[idx] = true
	b.age[idx] = 0
	b.id[idx] = id

	b.particleToIndex[id] = idx
	b.indexToParticle[idx] = id
	b.count++
	return id, nil
}

// RemoveParticle invalidates the particle at index, clearing its mapping
// and returning the slot to the free-index stack.
func (b *Buffer) RemoveParticle(index int) error {
	id, ok := b.indexToParticle[index]
	if !ok {
		return simerr.New("Buffer.RemoveParticle", simerr.ParticleNotFound, "index", index)
	}
	b.alive[index] = false
	b.id[index] = 0
	delete(b.indexToParticle, index)
	delete(b.particleToIndex, id)
	b.freeIndices = append(b.freeIndices, index)
	b.count--
	return nil
}

// KillParticle removes the particle identified by id.
func (b *Buffer) KillParticle(id ParticleId) error {
	idx, ok := b.particleToIndex[id]
	if !ok {
		return simerr.New("Buffer.KillParticle", simerr.ParticleNotFound, "id", id)
	}
	return b.RemoveParticle(idx)
}

// IndexOf returns the current slot index for id.
func (b *Buffer) IndexOf(id ParticleId) (int, bool) {
	idx, ok := b.particleToIndex[id]
	return idx, ok
}

// IDAt returns the particle id currently occupying index.
func (b *Buffer) IDAt(index int) (ParticleId, bool) {
	id, ok := b.indexToParticle[index]
	return id, ok
}

// Clear marks every slot dead, clears mappings, and rebuilds the
// free-index stack in descending order.
func (b *Buffer) Clear() {
	for i := range b.alive {
		b.alive[i] = false
	}
	b.particleToIndex = make(map[ParticleId]int)
	b.indexToParticle = make(map[int]ParticleId)
	b.freeIndices = b.freeIndices[:0]
	for i := 0; i < b.capacity; i++ {
		b.freeIndices = append(b.freeIndices, b.capacity-1-i)
	}
	b.count = 0
}

// Compact performs a stable scan moving every alive particle down to the
// next write slot, rewriting mappings, and rebuilding the free-index
// stack over the trailing [count, capacity) range.
func (b *Buffer) Compact() {
	w := 0
	newIndexToParticle := make(map[int]ParticleId, b.count)
	for r := 0; r < b.capacity; r++ {
		if !b.alive[r] {
			continue
		}
		if w != r {
			b.moveSlot(r, w)
		}
		id := b.indexToParticle[r]
		newIndexToParticle[w] = id
		b.particleToIndex[id] = w
		w++
	}
	for i := w; i < b.capacity; i++ {
		b.alive[i] = false
		b.id[i] = 0
	}
	b.indexToParticle = newIndexToParticle
	b.freeIndices = b.freeIndices[:0]
	for i := b.capacity - 1; i >= w; i-- {
		b.freeIndices = append(b.freeIndices, i)
	}
}

func (b *Buffer) moveSlot(from, to int) {
	b.alive[to] = b.alive[from]
	b.position[to] = b.position[from]
	b.velocity[to] = b.velocity[from]
	b.acceleration[to] = b.acceleration[from]
	b.lifetime[to] = b.lifetime[from]
	b.age[to] = b.age[from]
	b.size[to] = b.size[from]
	b.color[to] = b.color[from]
	b.rotation[to] = b.rotation[from]
	b.angVel[to] = b.angVel[from]
	for s := range b.custom {
		b.custom[s][to] = b.custom[s][from]
	}
	b.id[to] = b.id[from]
}

// Sort reorders the alive prefix [0, count) by compare (or by ascending
// age when compare is nil), rewriting both id mappings.
func (b *Buffer) Sort(compare func(a, bIdx int) bool) {
	aliveIdx := make([]int, 0, b.count)
	for i := 0; i < b.capacity; i++ {
		if b.alive[i] {
			aliveIdx = append(aliveIdx, i)
		}
	}
	if compare == nil {
		sort.SliceStable(aliveIdx, func(i, j int) bool { return b.age[aliveIdx[i]] < b.age[aliveIdx[j]] })
	} else {
		sort.SliceStable(aliveIdx, func(i, j int) bool { return compare(aliveIdx[i], aliveIdx[j]) })
	}

	tmp := &Buffer{capacity: len(aliveIdx)}
	tmp.alive = make([]bool, len(aliveIdx))
	tmp.position = make([]mgl32.Vec3, len(aliveIdx))
	tmp.velocity = make([]mgl32.Vec3, len(aliveIdx))
	tmp.acceleration = make([]mgl32.Vec3, len(aliveIdx))
	tmp.lifetime = make([]float32, len(aliveIdx))
	tmp.age = make([]float32, len(aliveIdx))
	tmp.size = make([]mgl32.Vec3, len(aliveIdx))
	tmp.color = make([][4]float32, len(aliveIdx))
	tmp.rotation = make([]float32, len(aliveIdx))
	tmp.angVel = make([]float32, len(aliveIdx))
	for s := range tmp.custom {
		tmp.custom[s] = make([][4]float32, len(aliveIdx))
	}
	tmp.id = make([]ParticleId, len(aliveIdx))

	for w, r := range aliveIdx {
		tmp.alive[w] = true
		tmp.position[w] = b.position[r]
		tmp.velocity[w] = b.velocity[r]
		tmp.acceleration[w] = b.acceleration[r]
		tmp.lifetime[w] = b.lifetime[r]
		tmp.age[w] = b.age[r]
		tmp.size[w] = b.size[r]
		tmp.color[w] = b.color[r]
		tmp.rotation[w] = b.rotation[r]
		tmp.angVel[w] = b.angVel[r]
		for s := range tmp.custom {
			tmp.custom[s][w] = b.custom[s][r]
		}
		tmp.id[w] = b.indexToParticle[r]
	}

	newIndexToParticle := make(map[int]ParticleId, len(aliveIdx))
	for w := 0; w < len(aliveIdx); w++ {
		b.alive[w] = true
		b.position[w] = tmp.position[w]
		b.velocity[w] = tmp.velocity[w]
		b.acceleration[w] = tmp.acceleration[w]
		b.lifetime[w] = tmp.lifetime[w]
		b.age[w] = tmp.age[w]
		b.size[w] = tmp.size[w]
		b.color[w] = tmp.color[w]
		b.rotation[w] = tmp.rotation[w]
		b.angVel[w] = tmp.angVel[w]
		for s := range b.custom {
			b.custom[s][w] = tmp.custom[s][w]
		}
		id := tmp.id[w]
		b.id[w] = id
		newIndexToParticle[w] = id
		b.particleToIndex[id] = w
	}
	for i := len(aliveIdx); i < b.capacity; i++ {
		b.alive[i] = false
		b.id[i] = 0
	}
	b.indexToParticle = newIndexToParticle
	b.freeIndices = b.freeIndices[:0]
	for i := b.capacity - 1; i >= len(aliveIdx); i-- {
		b.freeIndices = append(b.freeIndices, i)
	}
}
