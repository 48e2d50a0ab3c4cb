package particles

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_AllocatePopulatesDescendingFreeIndices(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(4))
	assert.Equal(t, 4, b.Capacity())
	assert.Equal(t, 0, b.Count())
	assert.Equal(t, []int{3, 2, 1, 0}, b.freeIndices)
}

func TestBuffer_AddParticleAscendingIndices(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(4))

	id1, err := b.AddParticle(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, 5, 1, 0xff0000ff)
	require.NoError(t, err)
	idx1, ok := b.IndexOf(id1)
	require.True(t, ok)
	assert.Equal(t, 0, idx1)

	id2, err := b.AddParticle(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{}, 5, 1, 0x00ff00ff)
	require.NoError(t, err)
	idx2, _ := b.IndexOf(id2)
	assert.Equal(t, 1, idx2)
}

func TestBuffer_AddParticleUnpacksColor(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(1))
	id, err := b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 1, 1, 0xff804020)
	require.NoError(t, err)
	idx, _ := b.IndexOf(id)
	c := b.Color(idx)
	assert.InDelta(t, 1.0, c[0], 0.01)
	assert.InDelta(t, 0.502, c[1], 0.01)
	assert.InDelta(t, 0.251, c[2], 0.01)
	assert.InDelta(t, 0.125, c[3], 0.01)
}

func TestBuffer_AddParticleGrowsWhenFull(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(1))
	_, err := b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 1, 1, 0)
	require.NoError(t, err)
	// buffer is full; next add must trigger a doubling resize
	_, err = b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Capacity())
}

func TestBuffer_RemoveAndKillParticle(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(4))
	id, _ := b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 1, 1, 0)
	require.NoError(t, b.KillParticle(id))
	assert.Equal(t, 0, b.Count())
	_, ok := b.IndexOf(id)
	assert.False(t, ok)
}

func TestBuffer_KillUnknownParticleFails(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(4))
	err := b.KillParticle(9999)
	require.Error(t, err)
}

func TestBuffer_Clear(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(4))
	b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 1, 1, 0)
	b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 1, 1, 0)
	b.Clear()
	assert.Equal(t, 0, b.Count())
}

func TestBuffer_Compact(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(4))
	id1, _ := b.AddParticle(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, 1, 1, 0)
	id2, _ := b.AddParticle(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{}, 1, 1, 0)
	id3, _ := b.AddParticle(mgl32.Vec3{3, 0, 0}, mgl32.Vec3{}, 1, 1, 0)
	require.NoError(t, b.KillParticle(id2))

	b.Compact()
	assert.Equal(t, 2, b.Count())

	idx1, ok := b.IndexOf(id1)
	require.True(t, ok)
	idx3, ok := b.IndexOf(id3)
	require.True(t, ok)
	assert.ElementsMatch(t, []int{0, 1}, []int{idx1, idx3})
}

func TestBuffer_SortByAgeAscending(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(4))
	idOld, _ := b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 100, 1, 0)
	idNew, _ := b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 100, 1, 0)

	idxOld, _ := b.IndexOf(idOld)
	idxNew, _ := b.IndexOf(idNew)
	b.SetAge(idxOld, 10)
	b.SetAge(idxNew, 1)

	b.Sort(nil)

	newIdxNew, _ := b.IndexOf(idNew)
	newIdxOld, _ := b.IndexOf(idOld)
	assert.Less(t, newIdxNew, newIdxOld)
}

func TestBuffer_CustomSlotsAreIndependentAndSurviveCompact(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(4))
	idA, _ := b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 1, 1, 0)
	idB, _ := b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 1, 1, 0)

	idxB, _ := b.IndexOf(idB)
	for s := 0; s < CustomSlots; s++ {
		b.SetCustom(s, idxB, [4]float32{float32(s), 0, 0, 1})
	}

	require.NoError(t, b.KillParticle(idA))
	b.Compact()

	idxB, ok := b.IndexOf(idB)
	require.True(t, ok)
	for s := 0; s < CustomSlots; s++ {
		assert.Equal(t, [4]float32{float32(s), 0, 0, 1}, b.Custom(s, idxB), "custom slot %d", s)
	}
}

func TestBuffer_Resize(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(2))
	id, _ := b.AddParticle(mgl32.Vec3{9, 9, 9}, mgl32.Vec3{}, 1, 1, 0)
	require.NoError(t, b.Resize(8))
	assert.Equal(t, 8, b.Capacity())
	idx, _ := b.IndexOf(id)
	assert.Equal(t, mgl32.Vec3{9, 9, 9}, b.Position(idx))
}

func TestBuffer_Tick(t *testing.T) {
	b := New()
	require.NoError(t, b.Allocate(4))
	id, _ := b.AddParticle(mgl32.Vec3{}, mgl32.Vec3{}, 1, 1, 0)
	b.Tick(0.5)
	assert.Equal(t, 1, b.Count())
	b.Tick(0.6)
	assert.Equal(t, 0, b.Count())
	_, ok := b.IndexOf(id)
	assert.False(t, ok)
}
