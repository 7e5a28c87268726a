package pqueue

import "sort"

// LinkedQueue keeps entries insertion-sorted by priority, mirroring a
// linked-list implementation: Push is O(n), Pop/Peek are O(1). Preferred
// when the queue stays small, where its lack of heap bookkeeping wins.
type LinkedQueue struct {
	entries []Entry
}

var _ Queue = (*LinkedQueue)(nil)

func NewLinked() *LinkedQueue {
	return &LinkedQueue{}
}

// Push inserts e at the position that keeps entries sorted, placing it
// after any existing entries of equal rank to preserve FIFO order among
// ties.
func (q *LinkedQueue) Push(e Entry) {
	idx := sort.Search(len(q.entries), func(i int) bool {
		return higherPriority(e, q.entries[i])
	})
	q.entries = append(q.entries, Entry{})
	copy(q.entries[idx+1:], q.entries[idx:])
	q.entries[idx] = e
}

func (q *LinkedQueue) Pop() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

func (q *LinkedQueue) Peek() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

func (q *LinkedQueue) Len() int { return len(q.entries) }
