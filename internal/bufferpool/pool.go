// Package bufferpool provides the concrete, disk-backed PageManager the
// core's contract (storage.PageManager, spec §6.1) is tested against.
// The core itself never imports this package directly — every tree is
// constructed with a storage.PageManager interface value — but nothing
// in the module can run without some implementation, and this one is
// grounded on the teacher's internal/bufferpool.Pool: a fixed-capacity
// set of frames reclaimed by CLOCK second-chance replacement.
package bufferpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tuannm99/arboretum/internal/lock"
	"github.com/tuannm99/arboretum/internal/storage"
	"github.com/tuannm99/arboretum/pkg/cache"
	"github.com/tuannm99/arboretum/pkg/clockx"
)

var (
	ErrNoFreeFrame = errors.New("bufferpool: no free frame available (all pinned)")
	ErrPagePinned  = errors.New("bufferpool: page still pinned")
	ErrUnknownPage = errors.New("bufferpool: page not managed by this pool")
)

// headerPageID is reserved outside the regular allocation sequence so
// that page id 0 keeps its spec §3 meaning of "no page" when used as a
// child/sibling/overflow link.
const headerPageID uint32 = 1<<32 - 1

// frame holds one resident page and its bookkeeping.
type frame struct {
	page *storage.Page
	pin  *lock.RefCount
}

var _ storage.PageManager = (*Pool)(nil)

// Pool is a CLOCK-replacement buffer pool bound to one FileSet, i.e. one
// tree's backing segment files.
type Pool struct {
	disk *storage.Disk
	fs   storage.FileSet

	mu        sync.Mutex
	frames    []*frame
	pageTable map[uint32]int
	clock     *clockx.Clock
	free      *cache.FreeList

	nextAlloc uint32 // monotonically increasing fallback allocator

	header *storage.Page
}

// Open creates or reopens a Pool over fs with the given page size and
// frame capacity. The header page is loaded (or initialized) and pinned
// for the pool's lifetime.
func Open(fs storage.FileSet, pageSize, capacity int) (*Pool, error) {
	if capacity <= 0 {
		capacity = 128
	}
	disk := storage.NewDisk(pageSize)

	p := &Pool{
		disk:      disk,
		fs:        fs,
		frames:    make([]*frame, capacity),
		pageTable: make(map[uint32]int),
		clock:     clockx.New(capacity),
		free:      cache.NewFreeList(),
	}

	hdrBuf := make([]byte, pageSize)
	if err := disk.ReadPage(fs, headerPageID, hdrBuf); err != nil {
		return nil, fmt.Errorf("bufferpool: load header page: %w", err)
	}
	p.header = storage.WrapPage(headerPageID, hdrBuf)

	count, err := disk.CountPages(fs)
	if err != nil {
		return nil, fmt.Errorf("bufferpool: count pages: %w", err)
	}
	if count == 0 {
		p.nextAlloc = 1 // id 0 is reserved for storage.NoPage
	} else {
		p.nextAlloc = count
	}

	return p, nil
}

func (p *Pool) PageSize() int { return p.disk.PageSize() }

func (p *Pool) HeaderPage() *storage.Page { return p.header }

func (p *Pool) WriteHeaderPage() error {
	if err := p.disk.WritePage(p.fs, headerPageID, p.header.Bytes()); err != nil {
		return err
	}
	p.header.ClearDirty()
	return nil
}

func (p *Pool) IsEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextAlloc <= 1 && p.free.Len() == 0
}

func (p *Pool) allocateID() uint32 {
	if id, ok := p.free.Pop(); ok {
		return id
	}
	id := p.nextAlloc
	p.nextAlloc++
	return id
}

// NewPage allocates a fresh, zeroed page and pins it into a frame.
func (p *Pool) NewPage() (*storage.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.allocateID()
	pg := storage.NewPage(id, p.disk.PageSize())
	pg.MarkDirty()

	idx, err := p.installLocked(id, pg)
	if err != nil {
		return nil, err
	}
	slog.Debug("bufferpool.NewPage", "pageID", id, "frame", idx)
	return pg, nil
}

// GetPage pins and returns the page with the given id, loading it from
// disk on a cache miss.
func (p *Pool) GetPage(id uint32) (*storage.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.pageTable[id]; ok {
		f := p.frames[idx]
		f.pin.Inc()
		p.clock.Touch(idx)
		return f.page, nil
	}

	buf := make([]byte, p.disk.PageSize())
	if err := p.disk.ReadPage(p.fs, id, buf); err != nil {
		return nil, err
	}
	pg := storage.WrapPage(id, buf)

	idx, err := p.installLocked(id, pg)
	if err != nil {
		return nil, err
	}
	slog.Debug("bufferpool.GetPage", "pageID", id, "frame", idx)
	return pg, nil
}

// installLocked places pg into a free frame, evicting a victim via CLOCK
// if the pool is full. Caller holds p.mu.
func (p *Pool) installLocked(id uint32, pg *storage.Page) (int, error) {
	if idx := p.findFreeSlotLocked(); idx >= 0 {
		p.frames[idx] = &frame{page: pg, pin: lock.NewRefCount()}
		p.pageTable[id] = idx
		p.clock.Touch(idx)
		p.clock.SetEvictable(idx, false) // pin count starts at 1
		return idx, nil
	}

	victimIdx, ok := p.clock.Evict()
	if !ok {
		return 0, ErrNoFreeFrame
	}
	victim := p.frames[victimIdx]
	if victim.page.Dirty() {
		if err := p.disk.WritePage(p.fs, victim.page.ID(), victim.page.Bytes()); err != nil {
			return 0, err
		}
		victim.page.ClearDirty()
	}
	delete(p.pageTable, victim.page.ID())

	p.frames[victimIdx] = &frame{page: pg, pin: lock.NewRefCount()}
	p.pageTable[id] = victimIdx
	p.clock.Touch(victimIdx)
	p.clock.SetEvictable(victimIdx, false)
	return victimIdx, nil
}

func (p *Pool) findFreeSlotLocked() int {
	for i, f := range p.frames {
		if f == nil {
			return i
		}
	}
	return -1
}

// WritePage durably persists the page's current bytes without releasing
// the caller's pin.
func (p *Pool) WritePage(pg *storage.Page) error {
	if err := p.disk.WritePage(p.fs, pg.ID(), pg.Bytes()); err != nil {
		return err
	}
	pg.ClearDirty()
	return nil
}

// ReleasePage releases one pin. If the page is dirty it is written back
// first, matching spec §5's "page manager must observe the final state
// on release when dirty=true."
func (p *Pool) ReleasePage(pg *storage.Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pg.ID()]
	if !ok {
		return nil // already evicted/disposed; release is a no-op
	}
	f := p.frames[idx]

	if pg.Dirty() {
		if err := p.disk.WritePage(p.fs, pg.ID(), pg.Bytes()); err != nil {
			return err
		}
		pg.ClearDirty()
	}

	if f.pin.Dec() {
		p.clock.SetEvictable(idx, true)
	}
	return nil
}

// DisposePage frees pg's id for reuse. The caller must hold the page's
// only remaining pin (the one about to be released here).
func (p *Pool) DisposePage(pg *storage.Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pg.ID()]
	if !ok {
		return ErrUnknownPage
	}
	f := p.frames[idx]
	if f.pin.Get() > 1 {
		return ErrPagePinned
	}

	delete(p.pageTable, pg.ID())
	p.frames[idx] = nil
	p.clock.Remove(idx)
	p.free.Push(pg.ID())

	slog.Debug("bufferpool.DisposePage", "pageID", pg.ID())
	return nil
}

// Close flushes every dirty frame and the header page.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range p.frames {
		if f == nil || !f.page.Dirty() {
			continue
		}
		if err := p.disk.WritePage(p.fs, f.page.ID(), f.page.Bytes()); err != nil {
			return err
		}
		f.page.ClearDirty()
	}
	if p.header.Dirty() {
		if err := p.disk.WritePage(p.fs, headerPageID, p.header.Bytes()); err != nil {
			return err
		}
		p.header.ClearDirty()
	}
	return nil
}
