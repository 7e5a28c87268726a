// Package lock holds the small synchronization primitive the buffer
// pool needs for the pin/release discipline of spec §5: a page is
// "pinned" while any node view borrows it, and must reach a pin count of
// zero before it can be evicted or disposed.
package lock

import (
	"fmt"
	"sync/atomic"
)

// RefCount is an atomic pin counter for one frame. A freshly pinned page
// starts at 1 (the pin returned to the caller of NewPage/GetPage); every
// further GetPage on the same id increments it, every ReleasePage
// decrements it.
type RefCount struct {
	count int32
}

// NewRefCount returns a counter already holding one pin, matching the
// pin handed back by the page manager's allocation/lookup call.
func NewRefCount() *RefCount {
	return &RefCount{count: 1}
}

func (r *RefCount) Inc() {
	atomic.AddInt32(&r.count, 1)
}

// Dec releases one pin and reports whether the count reached zero.
func (r *RefCount) Dec() bool {
	n := atomic.AddInt32(&r.count, -1)
	if n < 0 {
		panic("lock: refcount dropped below zero")
	}
	return n == 0
}

func (r *RefCount) Get() int32 {
	return atomic.LoadInt32(&r.count)
}

func (r *RefCount) String() string {
	return fmt.Sprintf("RefCount(%d)", r.Get())
}
