package pqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue_MinQueueOrdering(t *testing.T) {
	q := MinQueue[string, int]()
	q.Enqueue("c", 3)
	q.Enqueue("a", 1)
	q.Enqueue("b", 2)

	got := []string{}
	for q.Len() > 0 {
		v, err := q.Dequeue()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestPriorityQueue_MaxQueueOrdering(t *testing.T) {
	q := MaxQueue[string, int](func(a, b int) bool { return a < b })
	q.Enqueue("a", 1)
	q.Enqueue("c", 3)
	q.Enqueue("b", 2)

	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "c", v)
}

func TestPriorityQueue_DequeueEmptyFails(t *testing.T) {
	q := MinQueue[int, int]()
	_, err := q.Dequeue()
	require.Error(t, err)
}

func TestPriorityQueue_TryDequeueOnEmpty(t *testing.T) {
	q := MinQueue[int, int]()
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestPriorityQueue_PeekDoesNotRemove(t *testing.T) {
	q := MinQueue[int, int]()
	q.Enqueue(42, 1)
	v, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, q.Len())
}

func TestPriorityQueue_EnqueueRange(t *testing.T) {
	q := MinQueue[string, int]()
	q.EnqueueRange([]Element[string, int]{
		{Value: "z", Priority: 26},
		{Value: "a", Priority: 1},
		{Value: "m", Priority: 13},
	})
	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestPriorityQueue_DequeueAllIsAscending(t *testing.T) {
	q := MinQueue[int, int]()
	for _, p := range []int{5, 1, 4, 2, 3} {
		q.Enqueue(p, p)
	}
	all := q.DequeueAll()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, all)
	assert.Equal(t, 0, q.Len())
}

func TestPriorityQueue_Contains(t *testing.T) {
	q := MinQueue[string, int]()
	q.Enqueue("hello", 1)
	eq := func(a, b string) bool { return a == b }
	assert.True(t, q.Contains("hello", eq))
	assert.False(t, q.Contains("nope", eq))
}

func TestPriorityQueue_Clone(t *testing.T) {
	q := MinQueue[int, int]()
	q.Enqueue(1, 1)
	q.Enqueue(2, 2)
	clone := q.Clone()
	_, _ = clone.Dequeue()
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 1, clone.Len())
}

func TestPriorityQueue_TrimExcess(t *testing.T) {
	q := MinQueue[int, int]()
	q.EnsureCapacity(64)
	q.Enqueue(1, 1)
	q.TrimExcess()
	assert.Equal(t, 1, cap(q.nodes))
}

func TestPriorityQueue_TrimExcessOnEmptyIsZero(t *testing.T) {
	q := MinQueue[int, int]()
	q.TrimExcess()
	assert.Equal(t, 0, cap(q.nodes))
}

func TestPriorityQueue_HeapInvariantAfterMutations(t *testing.T) {
	q := MinQueue[int, int]()
	for _, p := range []int{9, 4, 7, 1, 8, 2, 6, 3, 5} {
		q.Enqueue(p, p)
	}
	q.Dequeue()
	q.Enqueue(0, 0)
	q.Dequeue()

	for i := 1; i < len(q.nodes); i++ {
		parent := (i - 1) / 2
		assert.LessOrEqual(t, q.nodes[parent].priority, q.nodes[i].priority)
	}
}

func TestPriorityQueue_Iterator(t *testing.T) {
	q := MinQueue[int, int]()
	for _, p := range []int{3, 1, 2} {
		q.Enqueue(p, p)
	}
	it := q.Iterate()
	var got []int
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 3, q.Len(), "iterating must not mutate the source queue")
}

func TestPriorityQueue_FromElements(t *testing.T) {
	q := FromElements([]Element[string, int]{
		{Value: "b", Priority: 2},
		{Value: "a", Priority: 1},
	}, func(a, b int) bool { return a < b })
	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}
