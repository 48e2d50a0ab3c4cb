package spatialgrid

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Query returns every particle id in a cell intersecting aabb,
// deduplicated via a scratch set.
func (g *Grid) Query(aabb AABB) []ParticleId {
	minC := g.coordFor(aabb.Min)
	maxC := g.coordFor(aabb.Max)

	seen := make(map[ParticleId]struct{})
	var out []ParticleId
	for x := minC.X; x <= maxC.X; x++ {
		for y := minC.Y; y <= maxC.Y; y++ {
			for z := minC.Z; z <= maxC.Z; z++ {
				coord := CellCoord{X: x, Y: y, Z: z}
				h := hashCoord(coord)
				c, ok := g.table.find(coord, h)
				if !ok {
					continue
				}
				for _, id := range c.particles {
					if _, dup := seen[id]; dup {
						continue
					}
					seen[id] = struct{}{}
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// QueryRadius expands center/radius to an AABB and delegates to Query.
func (g *Grid) QueryRadius(center mgl32.Vec3, radius float32) []ParticleId {
	r := mgl32.Vec3{radius, radius, radius}
	return g.Query(AABB{Min: center.Sub(r), Max: center.Add(r)})
}

type nearestCandidate struct {
	id     ParticleId
	distSq float32
}

// QueryNearest starts from the largest cell-size axis and doubles the
// search radius until k candidates are collected or a safety bound on the
// number of expansions is reached, then returns the closest k by squared
// distance from position to each candidate's owning cell's center of mass.
func (g *Grid) QueryNearest(position mgl32.Vec3, k int) []ParticleId {
	if k <= 0 {
		return nil
	}
	radius := g.cellSize.X()
	if g.cellSize.Y() > radius {
		radius = g.cellSize.Y()
	}
	if g.cellSize.Z() > radius {
		radius = g.cellSize.Z()
	}
	if radius <= 0 {
		radius = 1
	}

	const maxExpansions = 20
	var candidates []nearestCandidate
	seen := make(map[ParticleId]struct{})

	for expansion := 0; expansion < maxExpansions; expansion++ {
		candidates = candidates[:0]
		for k2 := range seen {
			delete(seen, k2)
		}
		r := mgl32.Vec3{radius, radius, radius}
		aabb := AABB{Min: position.Sub(r), Max: position.Add(r)}
		minC := g.coordFor(aabb.Min)
		maxC := g.coordFor(aabb.Max)

		for x := minC.X; x <= maxC.X; x++ {
			for y := minC.Y; y <= maxC.Y; y++ {
				for z := minC.Z; z <= maxC.Z; z++ {
					coord := CellCoord{X: x, Y: y, Z: z}
					h := hashCoord(coord)
					c, ok := g.table.find(coord, h)
					if !ok {
						continue
					}
					com := c.centerOfMass()
					d := com.Sub(position)
					distSq := d.Dot(d)
					for _, id := range c.particles {
						if _, dup := seen[id]; dup {
							continue
						}
						seen[id] = struct{}{}
						candidates = append(candidates, nearestCandidate{id: id, distSq: distSq})
					}
				}
			}
		}

		if len(candidates) >= k {
			break
		}
		radius *= 2
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distSq < candidates[j].distSq })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]ParticleId, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

// CellDensity returns the occupancy density (particles per unit volume)
// of the cell at coord, or 0 if the cell doesn't exist.
func (g *Grid) CellDensity(coord CellCoord) float32 {
	h := hashCoord(coord)
	c, ok := g.table.find(coord, h)
	if !ok {
		return 0
	}
	return c.density(g.cellVolume())
}

// CellCenterOfMass returns the running center of mass of the cell at
// coord, or the zero vector if the cell doesn't exist.
func (g *Grid) CellCenterOfMass(coord CellCoord) mgl32.Vec3 {
	h := hashCoord(coord)
	c, ok := g.table.find(coord, h)
	if !ok {
		return mgl32.Vec3{}
	}
	return c.centerOfMass()
}
