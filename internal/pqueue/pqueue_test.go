package pqueue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/pqueue"
)

func testQueueOrdering(t *testing.T, q pqueue.Queue) {
	t.Helper()

	q.Push(pqueue.NewEntry(5, pqueue.KindNode, 2, "node-5-h2"))
	q.Push(pqueue.NewEntry(5, pqueue.KindNode, 5, "node-5-h5"))
	q.Push(pqueue.NewEntry(5, pqueue.KindObject, 0, "obj-5"))
	q.Push(pqueue.NewEntry(1, pqueue.KindNode, 0, "node-1"))
	q.Push(pqueue.NewEntry(-3, pqueue.KindObject, 0, "clamped"))

	require.Equal(t, 5, q.Len())

	e, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, "clamped", e.Payload)
	require.Zero(t, e.Priority, "negative priority clamps to zero")

	var order []any
	for q.Len() > 0 {
		e, ok := q.Pop()
		require.True(t, ok)
		order = append(order, e.Payload)
	}

	// priority 0 first, then priority 1, then priority 5 grouped by
	// Kind (object before node), and among the two equal-priority
	// equal-kind nodes the taller one pops first.
	require.Equal(t, []any{"clamped", "node-1", "obj-5", "node-5-h5", "node-5-h2"}, order)
}

func TestLinkedQueueOrdering(t *testing.T) {
	testQueueOrdering(t, pqueue.NewLinked())
}

func TestHeapQueueOrdering(t *testing.T) {
	testQueueOrdering(t, pqueue.NewHeap())
}

func TestQueuePopEmpty(t *testing.T) {
	q := pqueue.NewHeap()
	_, ok := q.Pop()
	require.False(t, ok)
	_, ok = q.Peek()
	require.False(t, ok)
}
