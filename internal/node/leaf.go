package node

import (
	"github.com/tuannm99/arboretum/internal/bx"
	"github.com/tuannm99/arboretum/internal/storage"
)

// InsertResult is the outcome of a leaf-local insert attempt (spec §6.6):
// a leaf never decides to allocate or chain an overflow page itself — that
// orchestration belongs to the tree, which owns the PageManager. The leaf
// only ever reports whether it had room.
type InsertResult int

const (
	InsertSuccess InsertResult = iota
	InsertDuplication
	InsertNodeFull
)

// Fixed leaf header fields, immediately after the common 6-byte prefix:
//
//	PreviousPageID | NextPageID | OverflowPageID | OverflowOccupation
const (
	offPrevPageID           = CommonHeaderSize
	offNextPageID           = offPrevPageID + 4
	offOverflowPageID       = offNextPageID + 4
	offOverflowOccupation   = offOverflowPageID + 4
	leafHeaderSize          = 16
	leafEntriesOffset       = CommonHeaderSize + leafHeaderSize
)

// LeafNode is a B-tree leaf: a key-sorted entry array growing from the
// front of the page, each entry an (key, offset) pair, with the
// corresponding serialized objects packed from the end of the page
// backward in the SAME order as the entries. Entry i's object runs from
// its Offset up to entry i-1's Offset (or the page end for i==0) — moving
// one entry necessarily moves every object packed before it, which is why
// inserts and deletes below shift the whole affected block with a single
// copy rather than one object at a time.
//
// A leaf reports only its own (non-overflow) entries through NumEntries;
// duplicate entries that overflowed into chained leaf-overflow pages are
// tracked only as a page id and a count here (spec §4.3) — walking that
// chain is the tree's job.
type LeafNode[K any] struct {
	Header
	codec KeyCodec[K]
}

func NewLeafNode[K any](p *storage.Page, codec KeyCodec[K]) LeafNode[K] {
	h := initHeader(p, TypeLeaf)
	buf := p.Bytes()
	bx.PutU32At(buf, offPrevPageID, storage.NoPage)
	bx.PutU32At(buf, offNextPageID, storage.NoPage)
	bx.PutU32At(buf, offOverflowPageID, storage.NoPage)
	bx.PutU32At(buf, offOverflowOccupation, 0)
	return LeafNode[K]{Header: h, codec: codec}
}

func OpenLeafNode[K any](p *storage.Page, codec KeyCodec[K]) (LeafNode[K], error) {
	if err := requireType(p, TypeLeaf); err != nil {
		return LeafNode[K]{}, err
	}
	return LeafNode[K]{Header: Header{Page: p}, codec: codec}, nil
}

func (n LeafNode[K]) entrySize() int { return n.codec.Size + 4 }

// EmptyLeafFreeSpace reports how much room a brand-new leaf of the given
// page size and key codec has for entries, before any are inserted — the
// bound an oversize object is checked against, since no split can ever
// make room for an object that does not fit in an empty node.
func EmptyLeafFreeSpace[K any](pageSize int, codec KeyCodec[K]) int {
	_ = codec
	return pageSize - leafEntriesOffset
}

func (n LeafNode[K]) entryOffset(i int) int {
	return leafEntriesOffset + i*n.entrySize()
}

// NumEntries is the count of entries held directly on this page,
// excluding anything chained into overflow pages.
func (n LeafNode[K]) NumEntries() int { return n.Occupation() }

func (n LeafNode[K]) PreviousPageID() uint32 { return bx.U32At(n.Page.Bytes(), offPrevPageID) }
func (n LeafNode[K]) NextPageID() uint32     { return bx.U32At(n.Page.Bytes(), offNextPageID) }

func (n LeafNode[K]) SetPreviousPageID(id uint32) {
	bx.PutU32At(n.Page.Bytes(), offPrevPageID, id)
	n.Page.MarkDirty()
}

func (n LeafNode[K]) SetNextPageID(id uint32) {
	bx.PutU32At(n.Page.Bytes(), offNextPageID, id)
	n.Page.MarkDirty()
}

func (n LeafNode[K]) OverflowPageID() uint32 {
	return bx.U32At(n.Page.Bytes(), offOverflowPageID)
}

func (n LeafNode[K]) SetOverflowPageID(id uint32) {
	bx.PutU32At(n.Page.Bytes(), offOverflowPageID, id)
	n.Page.MarkDirty()
}

func (n LeafNode[K]) OverflowOccupation() int {
	return int(bx.U32At(n.Page.Bytes(), offOverflowOccupation))
}

func (n LeafNode[K]) SetOverflowOccupation(count int) {
	bx.PutU32At(n.Page.Bytes(), offOverflowOccupation, uint32(count))
	n.Page.MarkDirty()
}

// HasOverflow reports whether this leaf is entirely one repeated, full key
// and has at least started chaining duplicates into overflow pages.
func (n LeafNode[K]) HasOverflow() bool {
	return n.OverflowPageID() != storage.NoPage
}

func (n LeafNode[K]) entryKey(i int) K {
	off := n.entryOffset(i)
	return n.codec.Decode(n.Page.Bytes()[off : off+n.codec.Size])
}

func (n LeafNode[K]) entryOffsetValue(i int) uint32 {
	off := n.entryOffset(i) + n.codec.Size
	return bx.U32At(n.Page.Bytes(), off)
}

func (n LeafNode[K]) setEntry(i int, key K, objOffset uint32) {
	off := n.entryOffset(i)
	buf := n.Page.Bytes()
	n.codec.Encode(key, buf[off:off+n.codec.Size])
	bx.PutU32At(buf, off+n.codec.Size, objOffset)
}

// EntryKey returns the search key of the i-th local entry.
func (n LeafNode[K]) EntryKey(i int) K { return n.entryKey(i) }

// ObjectAt returns the serialized object bytes for local entry i.
func (n LeafNode[K]) ObjectAt(i int) []byte {
	size := n.ObjectSizeAt(i)
	off := n.entryOffsetValue(i)
	return n.Page.Bytes()[off : int(off)+size]
}

// ObjectSizeAt computes entry i's object size from the offset delta with
// its predecessor (or the page end, for i==0) — there is no per-entry
// stored length, by design.
func (n LeafNode[K]) ObjectSizeAt(i int) int {
	if i == 0 {
		return len(n.Page.Bytes()) - int(n.entryOffsetValue(0))
	}
	return int(n.entryOffsetValue(i-1) - n.entryOffsetValue(i))
}

// find performs the binary search shared by FindFirst/FindLast/insert
// placement: returns (idx, true) on an exact match, or (idx, false) with
// idx set to the insertion point otherwise.
func (n LeafNode[K]) find(key K) (int, bool) {
	lo, hi := 0, n.NumEntries()-1
	for lo <= hi {
		mid := (lo + hi) / 2
		c := n.codec.Compare(key, n.entryKey(mid))
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}
	return lo, false
}

// FindFirst returns the index of key's first local occurrence, or the
// insertion point if key is absent.
func (n LeafNode[K]) FindFirst(key K) (int, bool) {
	idx, found := n.find(key)
	if !found {
		return idx, false
	}
	for idx > 0 && n.codec.Compare(key, n.entryKey(idx-1)) == 0 {
		idx--
	}
	return idx, true
}

// FindLast returns the index of key's last local occurrence, or the
// insertion point if key is absent. Callers must check HasOverflow
// separately: if set, every local entry shares the same key and the true
// last occurrence lives in the overflow chain.
func (n LeafNode[K]) FindLast(key K) (int, bool) {
	idx, found := n.find(key)
	if !found {
		return idx, false
	}
	for idx < n.NumEntries()-1 && n.codec.Compare(key, n.entryKey(idx+1)) == 0 {
		idx++
	}
	return idx, true
}

// FreeSpace reports how many bytes are free for a combined entry+object
// insert, mirroring the original leaf's free-space accounting.
func (n LeafNode[K]) FreeSpace() int {
	used := leafEntriesOffset
	if count := n.NumEntries(); count > 0 {
		used += n.entrySize()*count + (len(n.Page.Bytes()) - int(n.entryOffsetValue(count-1)))
	}
	return len(n.Page.Bytes()) - used
}

// InsertLocal places (key, object) into this page's entry array and
// packed-object region, maintaining sort order. It never touches overflow
// bookkeeping — that is the tree's responsibility once this returns
// InsertNodeFull. duplicationAllowed=false rejects an exact key match with
// InsertDuplication instead of inserting after the run.
func (n LeafNode[K]) InsertLocal(key K, object []byte, duplicationAllowed bool) InsertResult {
	need := len(object) + n.entrySize()
	if need > n.FreeSpace() {
		return InsertNodeFull
	}

	count := n.NumEntries()
	idx := 0
	if count > 0 {
		last, found := n.FindLast(key)
		if found {
			if !duplicationAllowed {
				return InsertDuplication
			}
			idx = last + 1
		} else {
			idx = last
		}
	}

	buf := n.Page.Bytes()
	objSize := uint32(len(object))

	if idx < count {
		lastIdx := count - 1
		lastOff := n.entryOffsetValue(lastIdx)
		var blockLen int
		if idx == 0 {
			blockLen = len(buf) - int(lastOff)
		} else {
			blockLen = int(n.entryOffsetValue(idx-1) - lastOff)
		}
		copy(buf[int(lastOff)-int(objSize):], buf[lastOff:int(lastOff)+blockLen])

		for i := count; i > idx; i-- {
			k := n.entryKey(i - 1)
			off := n.entryOffsetValue(i-1) - objSize
			n.setEntry(i, k, off)
		}
	}

	var newOff uint32
	if idx == 0 {
		newOff = uint32(len(buf)) - objSize
	} else {
		newOff = n.entryOffsetValue(idx-1) - objSize
	}
	n.setEntry(idx, key, newOff)
	copy(buf[newOff:int(newOff)+len(object)], object)

	n.SetOccupation(count + 1)
	n.Page.MarkDirty()
	return InsertSuccess
}

// DeleteLocal removes local entry idx, shifting the object data of every
// entry packed below it (entries idx+1..count-1) toward the page end by
// the freed size and moving those entries one slot toward the front.
func (n LeafNode[K]) DeleteLocal(idx int) {
	count := n.NumEntries()
	lastIdx := count - 1
	delSize := uint32(n.ObjectSizeAt(idx))
	buf := n.Page.Bytes()

	if idx < lastIdx {
		lastOff := n.entryOffsetValue(lastIdx)
		blockLen := int(n.entryOffsetValue(idx) - lastOff)
		copy(buf[int(lastOff)+int(delSize):], buf[lastOff:int(lastOff)+blockLen])

		for i := idx; i < lastIdx; i++ {
			k := n.entryKey(i + 1)
			off := n.entryOffsetValue(i+1) + delSize
			n.setEntry(i, k, off)
		}
	}

	n.SetOccupation(count - 1)
	n.Page.MarkDirty()
}

// FindMedian locates the split point for a leaf split: the ceiling of the
// occupation's midpoint, nudged to whichever neighboring boundary avoids
// separating a run of duplicate keys, since duplicates of one key may
// never span two leaves (spec §4.4).
func (n LeafNode[K]) FindMedian() int {
	count := n.NumEntries()
	idx := count / 2
	if count%2 != 0 {
		idx++
	}

	down := idx
	for down > 0 && n.codec.Compare(n.entryKey(down-1), n.entryKey(down)) == 0 {
		down--
	}
	if down == idx {
		return idx
	}

	up := idx
	for up < count-1 && n.codec.Compare(n.entryKey(up), n.entryKey(up+1)) == 0 {
		up++
	}
	if (up+1-idx) <= (idx-down) && up < count-1 {
		return up + 1
	}
	if down > 0 {
		return down
	}
	// The duplicate run reaches both the start and the computed end of
	// the leaf: neither neighbor can absorb it without emptying one
	// side. Fall back to the unnudged midpoint so each side keeps at
	// least one entry, at the cost of splitting the run.
	return idx
}
