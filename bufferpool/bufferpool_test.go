package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPool_AllocatePicksSmallestFittingBucket(t *testing.T) {
	bp := New(Options{BucketCount: 4}) // 32, 64, 128, 256

	slab, err := bp.Allocate(50)
	require.NoError(t, err)
	assert.Equal(t, 64, slab.Len())
}

func TestBufferPool_AllocateRejectsNonPositive(t *testing.T) {
	bp := New(Options{BucketCount: 4})
	_, err := bp.Allocate(0)
	require.Error(t, err)
}

func TestBufferPool_AllocateRejectsOversize(t *testing.T) {
	bp := New(Options{BucketCount: 2}) // 32, 64
	_, err := bp.Allocate(1000)
	require.Error(t, err)
}

func TestBufferPool_ReleaseRoundtripsAndZeroes(t *testing.T) {
	bp := New(Options{BucketCount: 4})

	slab, err := bp.Allocate(40)
	require.NoError(t, err)
	copy(slab.Bytes(), []byte("hello"))

	bp.Release(slab)

	slab2, err := bp.Allocate(40)
	require.NoError(t, err)
	assert.Equal(t, slab, slab2, "the released slab should be reused")
	for _, b := range slab2.Bytes() {
		assert.Equal(t, byte(0), b, "a released slab must be zero-filled")
	}
}

func TestBufferPool_ReleaseMismatchedSizeIsNoop(t *testing.T) {
	bp := New(Options{BucketCount: 4})
	foreign := newSlab(17, nil) // size doesn't match any bucket exactly
	bp.Release(foreign)        // must not panic
}

func TestBufferPool_FallbackOnExhaustion(t *testing.T) {
	oomCalls := 0
	bp := New(Options{
		BucketCount:               2,
		InitialCapacityPerBucket:  1,
		MaxCapacityPerBucket:      1,
		OnOutOfMemory: func(requested, bucket int) {
			oomCalls++
		},
	})

	first, err := bp.Allocate(10)
	require.NoError(t, err)

	second, err := bp.Allocate(10)
	require.NoError(t, err)
	assert.Equal(t, 1, oomCalls)
	assert.NotNil(t, second)
	_ = first
}

func TestBufferPool_TryAllocateNeverFallsBack(t *testing.T) {
	bp := New(Options{
		BucketCount:              2,
		InitialCapacityPerBucket: 1,
		MaxCapacityPerBucket:     1,
	})
	_, err := bp.Allocate(10)
	require.NoError(t, err)

	slab, err := bp.TryAllocate(10)
	require.NoError(t, err)
	assert.Nil(t, slab)
}

func TestBufferPool_GetStats(t *testing.T) {
	bp := New(Options{BucketCount: 4, InitialCapacityPerBucket: 2})
	_, _ = bp.Allocate(10)

	stats := bp.GetStats()
	require.Len(t, stats.Buckets, 4)
	assert.Equal(t, 1, stats.Buckets[0].Allocated)
}
