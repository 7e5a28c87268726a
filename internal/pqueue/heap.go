package pqueue

import "container/heap"

// HeapQueue is a binary-heap-backed priority queue over container/heap,
// the second of the two interchangeable implementations spec §4.5 calls
// for: O(log n) Push/Pop, preferred once the queue grows large during a
// wide incremental search.
type HeapQueue struct {
	h entryHeap
}

var _ Queue = (*HeapQueue)(nil)

func NewHeap() *HeapQueue {
	q := &HeapQueue{}
	heap.Init(&q.h)
	return q
}

func (q *HeapQueue) Push(e Entry) { heap.Push(&q.h, e) }

func (q *HeapQueue) Pop() (Entry, bool) {
	if q.h.Len() == 0 {
		return Entry{}, false
	}
	return heap.Pop(&q.h).(Entry), true
}

func (q *HeapQueue) Peek() (Entry, bool) {
	if len(q.h) == 0 {
		return Entry{}, false
	}
	return q.h[0], true
}

func (q *HeapQueue) Len() int { return len(q.h) }

type entryHeap []Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return higherPriority(h[i], h[j]) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(Entry)) }

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
