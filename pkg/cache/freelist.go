// Package cache holds small recency-ordered data structures shared by
// the storage layer. FreeList here tracks disposed page ids so the
// buffer pool can recycle the most recently freed id first, keeping hot
// regions of the backing file reused instead of growing unboundedly.
package cache

import (
	"container/list"
	"sync"
)

// FreeList is a MRU stack of reclaimed page ids backed by container/list.
type FreeList struct {
	mu   sync.Mutex
	l    *list.List
	byID map[uint32]*list.Element
}

func NewFreeList() *FreeList {
	return &FreeList{
		l:    list.New(),
		byID: make(map[uint32]*list.Element),
	}
}

// Push records pageID as free, most-recently-freed first.
func (f *FreeList) Push(pageID uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[pageID]; ok {
		return
	}
	f.byID[pageID] = f.l.PushFront(pageID)
}

// Pop removes and returns the most recently freed page id, if any.
func (f *FreeList) Pop() (uint32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.l.Front()
	if e == nil {
		return 0, false
	}
	f.l.Remove(e)
	id := e.Value.(uint32)
	delete(f.byID, id)
	return id, true
}

// Remove drops pageID from the free list if present. The buffer pool
// does not call it; ids leave the list only through Pop.
func (f *FreeList) Remove(pageID uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[pageID]
	if !ok {
		return
	}
	f.l.Remove(e)
	delete(f.byID, pageID)
}

func (f *FreeList) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.l.Len()
}
