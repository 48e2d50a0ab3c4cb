// Package spatialgrid implements a uniform spatial hash grid indexing
// particle positions: insert/remove/update, AABB/radius/k-nearest
// queries, and a pooled cell allocator. Cells are keyed by the classic
// three-prime hash `(x*p1) ^ (y*p2) ^ (z*p3)`; since distinct coordinates
// can collide, the cell table verifies coordinates on every lookup rather
// than trusting a raw hash hit (see celltable.go).
package spatialgrid

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/simcore/particles"
	"github.com/gekko3d/simcore/pool"
)

// ParticleId is the grid's occupant identity, the same type the SOA
// particle buffer hands out.
type ParticleId = particles.ParticleId

const (
	hashPrimeX = 73856093
	hashPrimeY = 19349663
	hashPrimeZ = 83492791
)

func hashCoord(c CellCoord) uint64 {
	return uint64(int64(c.X)*hashPrimeX) ^ uint64(int64(c.Y)*hashPrimeY) ^ uint64(int64(c.Z)*hashPrimeZ)
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Grid indexes particle positions into uniform cells for neighborhood
// queries.
type Grid struct {
	origin   mgl32.Vec3 // bounds minimum; cell (0,0,0) starts here
	cellSize mgl32.Vec3

	table *cellTable
	pool  *pool.Pool[*cell]

	particleToCoord map[ParticleId]CellCoord
	particleCount   int
}

// New constructs a Grid with the given per-axis cell size, with cell
// coordinates anchored at the world origin.
func New(cellSize mgl32.Vec3) *Grid {
	return NewWithBounds(AABB{}, cellSize)
}

// NewWithBounds constructs a Grid whose cell coordinates are computed as
// floor((p - bounds.Min) / cellSize).
func NewWithBounds(bounds AABB, cellSize mgl32.Vec3) *Grid {
	p, _ := pool.New(pool.Options[*cell]{
		Factory: func() *cell { return &cell{} },
	})
	return &Grid{
		origin:          bounds.Min,
		cellSize:        cellSize,
		table:           newCellTable(),
		pool:            p,
		particleToCoord: make(map[ParticleId]CellCoord),
	}
}

func (g *Grid) cellVolume() float32 {
	return g.cellSize.X() * g.cellSize.Y() * g.cellSize.Z()
}

func floorDiv(v, size float32) int32 {
	if size == 0 {
		return 0
	}
	q := v / size
	i := int32(q)
	if q < float32(i) {
		i--
	}
	return i
}

func (g *Grid) coordFor(pos mgl32.Vec3) CellCoord {
	return CellCoord{
		X: floorDiv(pos.X()-g.origin.X(), g.cellSize.X()),
		Y: floorDiv(pos.Y()-g.origin.Y(), g.cellSize.Y()),
		Z: floorDiv(pos.Z()-g.origin.Z(), g.cellSize.Z()),
	}
}

func (g *Grid) acquireCell(coord CellCoord) *cell {
	c, err := g.pool.Acquire()
	if err != nil {
		c = &cell{}
	}
	c.coord = coord
	return c
}

func (g *Grid) releaseCell(c *cell) {
	_ = g.pool.Release(c)
}

func (g *Grid) getOrCreateCell(coord CellCoord, h uint64) *cell {
	if c, ok := g.table.find(coord, h); ok {
		return c
	}
	c := g.acquireCell(coord)
	g.table.insert(coord, h, c)
	return c
}

// ParticleCount returns the number of particles currently indexed.
func (g *Grid) ParticleCount() int { return g.particleCount }

// Insert places id at position. A repeat insert at the same cell is a
// no-op; moving into a different cell first removes the prior occupancy.
func (g *Grid) Insert(id ParticleId, position mgl32.Vec3) {
	coord := g.coordFor(position)
	if prev, ok := g.particleToCoord[id]; ok {
		if prev == coord {
			return
		}
		g.removeFromCell(id, prev)
	} else {
		g.particleCount++
	}
	h := hashCoord(coord)
	c := g.getOrCreateCell(coord, h)
	c.append(id, position)
	g.particleToCoord[id] = coord
}

// removeFromCell removes id from the cell at coord, releasing the cell
// back to the pool if it becomes empty.
func (g *Grid) removeFromCell(id ParticleId, coord CellCoord) {
	h := hashCoord(coord)
	c, ok := g.table.find(coord, h)
	if !ok {
		return
	}
	if empty := c.swapRemove(id); empty {
		g.table.remove(coord, h)
		g.releaseCell(c)
	}
}

// Remove removes id from the grid. Reports whether id was present.
func (g *Grid) Remove(id ParticleId) bool {
	coord, ok := g.particleToCoord[id]
	if !ok {
		return false
	}
	g.removeFromCell(id, coord)
	delete(g.particleToCoord, id)
	g.particleCount--
	return true
}

// Update moves id from oldPos to newPos. If the newly computed cell
// matches the recorded one, it's a no-op; if the recorded cell disagrees
// with oldPos (stale caller state), it falls back to a full Insert.
func (g *Grid) Update(id ParticleId, oldPos, newPos mgl32.Vec3) {
	newCoord := g.coordFor(newPos)
	recorded, ok := g.particleToCoord[id]
	if ok && recorded == newCoord {
		return
	}
	oldCoord := g.coordFor(oldPos)
	if ok && recorded != oldCoord {
		g.Insert(id, newPos)
		return
	}
	if ok {
		g.removeFromCell(id, oldCoord)
	} else {
		g.particleCount++
	}
	h := hashCoord(newCoord)
	c := g.getOrCreateCell(newCoord, h)
	c.append(id, newPos)
	g.particleToCoord[id] = newCoord
}

// Clear releases every cell back to the pool and resets all state.
func (g *Grid) Clear() {
	g.table.forEach(func(_ CellCoord, c *cell) {
		g.releaseCell(c)
	})
	g.table.clear()
	g.particleToCoord = make(map[ParticleId]CellCoord)
	g.particleCount = 0
}

// Optimize frees every empty cell back to the pool. Cells are normally
// freed immediately on the last remove; this sweep catches any that
// survived a direct table mutation.
func (g *Grid) Optimize() {
	var empty []CellCoord
	g.table.forEach(func(coord CellCoord, c *cell) {
		if len(c.particles) == 0 {
			empty = append(empty, coord)
		}
	})
	for _, coord := range empty {
		h := hashCoord(coord)
		if c, ok := g.table.find(coord, h); ok {
			g.table.remove(coord, h)
			g.releaseCell(c)
		}
	}
}
