package spatialgrid

import "github.com/go-gl/mathgl/mgl32"

// CellCoord identifies a grid cell by its integer axis indices.
type CellCoord struct {
	X, Y, Z int32
}

// cell holds every particle currently occupying one grid cell, plus the
// running sum needed to report an incremental center of mass without
// rescanning on every query.
type cell struct {
	coord     CellCoord
	particles []ParticleId
	positions []mgl32.Vec3
	sum       mgl32.Vec3
}

// Reset satisfies pool.Resettable so cells can be recycled through a
// github.com/gekko3d/simcore/pool.Pool[*cell].
func (c *cell) Reset() {
	c.coord = CellCoord{}
	c.particles = c.particles[:0]
	c.positions = c.positions[:0]
	c.sum = mgl32.Vec3{}
}

// density is particle count per unit cell volume.
func (c *cell) density(cellVolume float32) float32 {
	if cellVolume <= 0 {
		return 0
	}
	return float32(len(c.particles)) / cellVolume
}

// centerOfMass is the running mean of every occupant's position.
func (c *cell) centerOfMass() mgl32.Vec3 {
	n := len(c.particles)
	if n == 0 {
		return mgl32.Vec3{}
	}
	inv := 1.0 / float32(n)
	return mgl32.Vec3{c.sum[0] * inv, c.sum[1] * inv, c.sum[2] * inv}
}

// append adds id/position as a new occupant, updating the running sum.
func (c *cell) append(id ParticleId, pos mgl32.Vec3) {
	c.particles = append(c.particles, id)
	c.positions = append(c.positions, pos)
	c.sum = c.sum.Add(pos)
}

// swapRemove removes id (assumed present), updating the running sum, and
// reports whether the cell is now empty.
func (c *cell) swapRemove(id ParticleId) bool {
	for i, pid := range c.particles {
		if pid != id {
			continue
		}
		last := len(c.particles) - 1
		c.sum = c.sum.Sub(c.positions[i])
		c.particles[i] = c.particles[last]
		c.positions[i] = c.positions[last]
		c.particles = c.particles[:last]
		c.positions = c.positions[:last]
		break
	}
	return len(c.particles) == 0
}
