package particles

import "github.com/go-gl/mathgl/mgl32"

// Alive reports whether slot i currently holds a live particle.
func (b *Buffer) Alive(i int) bool { return b.alive[i] }

// Position, Velocity, Acceleration, Size return a copy of slot i's vector
// attribute.
func (b *Buffer) Position(i int) mgl32.Vec3     { return b.position[i] }
func (b *Buffer) Velocity(i int) mgl32.Vec3     { return b.velocity[i] }
func (b *Buffer) Acceleration(i int) mgl32.Vec3 { return b.acceleration[i] }
func (b *Buffer) Size(i int) mgl32.Vec3         { return b.size[i] }

// SetPosition, SetVelocity, SetAcceleration, SetSize write slot i's vector
// attribute.
func (b *Buffer) SetPosition(i int, v mgl32.Vec3)     { b.position[i] = v }
func (b *Buffer) SetVelocity(i int, v mgl32.Vec3)     { b.velocity[i] = v }
func (b *Buffer) SetAcceleration(i int, v mgl32.Vec3) { b.acceleration[i] = v }
func (b *Buffer) SetSize(i int, v mgl32.Vec3)         { b.size[i] = v }

// Age, Lifetime, Rotation, AngularVelocity return slot i's scalar
// attribute.
func (b *Buffer) Age(i int) float32            { return b.age[i] }
func (b *Buffer) Lifetime(i int) float32       { return b.lifetime[i] }
func (b *Buffer) Rotation(i int) float32       { return b.rotation[i] }
func (b *Buffer) AngularVelocity(i int) float32 { return b.angVel[i] }

// SetAge, SetLifetime, SetRotation, SetAngularVelocity write slot i's
// scalar attribute.
func (b *Buffer) SetAge(i int, v float32)             { b.age[i] = v }
func (b *Buffer) SetLifetime(i int, v float32)        { b.lifetime[i] = v }
func (b *Buffer) SetRotation(i int, v float32)        { b.rotation[i] = v }
func (b *Buffer) SetAngularVelocity(i int, v float32) { b.angVel[i] = v }

// Color returns slot i's unit-float RGBA lanes.
func (b *Buffer) Color(i int) [4]float32 { return b.color[i] }

// SetColor writes slot i's unit-float RGBA lanes directly.
func (b *Buffer) SetColor(i int, c [4]float32) { b.color[i] = c }

// Custom returns particle i's four float lanes in custom array slot
// (0 <= slot < CustomSlots).
func (b *Buffer) Custom(slot, i int) [4]float32 { return b.custom[slot][i] }

// SetCustom writes particle i's four float lanes in custom array slot.
func (b *Buffer) SetCustom(slot, i int, c [4]float32) { b.custom[slot][i] = c }

// Tick advances age for every alive particle by dt and removes any whose
// age has reached its lifetime. Returns the indices removed this tick.
func (b *Buffer) Tick(dt float32) []int {
	var removed []int
	for i := 0; i < b.capacity; i++ {
		if !b.alive[i] {
			continue
		}
		b.age[i] += dt
		if b.lifetime[i] > 0 && b.age[i] >= b.lifetime[i] {
			b.RemoveParticle(i)
			removed = append(removed, i)
		}
	}
	return removed
}
