package node

import (
	"github.com/tuannm99/arboretum/internal/bx"
	"github.com/tuannm99/arboretum/internal/storage"
)

// IndexNode is a B-tree internal node: one leftmost child pointer plus a
// sorted array of (key, rightChild) entries, laid out on the page as
//
//	| Type | Occupation | LeftmostPageID | Key0 RightPageID0 | ... | Keyn RightPageIDn |
//
// following the original node's on-disk shape. Occupation counts entries,
// not children (there are always Occupation+1 children).
type IndexNode[K any] struct {
	Header
	codec KeyCodec[K]
}

const offLeftmostChild = CommonHeaderSize

func entriesOffset() int { return offLeftmostChild + 4 }

func (n IndexNode[K]) entrySize() int { return n.codec.Size + 4 }

// NewIndexNode creates a fresh, empty index node over p.
func NewIndexNode[K any](p *storage.Page, codec KeyCodec[K]) IndexNode[K] {
	h := initHeader(p, TypeIndex)
	bx.PutU32At(p.Bytes(), offLeftmostChild, storage.NoPage)
	return IndexNode[K]{Header: h, codec: codec}
}

// OpenIndexNode wraps an existing page as an index node view, failing if
// the page's type tag does not match.
func OpenIndexNode[K any](p *storage.Page, codec KeyCodec[K]) (IndexNode[K], error) {
	if err := requireType(p, TypeIndex); err != nil {
		return IndexNode[K]{}, err
	}
	return IndexNode[K]{Header: Header{Page: p}, codec: codec}, nil
}

func (n IndexNode[K]) NumEntries() int { return n.Occupation() }

func (n IndexNode[K]) LeftmostChild() uint32 {
	return bx.U32At(n.Page.Bytes(), offLeftmostChild)
}

func (n IndexNode[K]) SetLeftmostChild(id uint32) {
	bx.PutU32At(n.Page.Bytes(), offLeftmostChild, id)
	n.Page.MarkDirty()
}

func (n IndexNode[K]) entryOffset(i int) int {
	return entriesOffset() + i*n.entrySize()
}

// EntryKey returns the search key stored at i.
func (n IndexNode[K]) EntryKey(i int) K {
	off := n.entryOffset(i)
	return n.codec.Decode(n.Page.Bytes()[off : off+n.codec.Size])
}

// EntryChild returns the right child pointer stored at i: every key in
// that child's subtree is >= EntryKey(i).
func (n IndexNode[K]) EntryChild(i int) uint32 {
	off := n.entryOffset(i) + n.codec.Size
	return bx.U32At(n.Page.Bytes(), off)
}

func (n IndexNode[K]) setEntryAt(i int, key K, child uint32) {
	off := n.entryOffset(i)
	buf := n.Page.Bytes()
	n.codec.Encode(key, buf[off:off+n.codec.Size])
	bx.PutU32At(buf, off+n.codec.Size, child)
}

// ChildAt returns the child pointer to descend into for key comparisons
// against entry i: LeftmostChild for i<0, else EntryChild(i).
func (n IndexNode[K]) ChildAt(i int) uint32 {
	if i < 0 {
		return n.LeftmostChild()
	}
	return n.EntryChild(i)
}

// Find returns the index of the first entry whose key is >= key, or
// NumEntries() if key is greater than every entry. The child to descend
// into is ChildAt(idx-1) when key is below EntryKey(idx), and ChildAt(idx)
// when key equals it, since EntryChild(idx) holds keys >= EntryKey(idx).
func (n IndexNode[K]) Find(key K) int {
	count := n.NumEntries()
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if n.codec.Compare(n.EntryKey(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Capacity reports how many entries this node type can hold on an empty
// page of this size, used by the tree to decide split thresholds.
func (n IndexNode[K]) Capacity() int {
	return (len(n.Page.Bytes()) - entriesOffset()) / n.entrySize()
}

// FreeSpace reports how many more entries could be inserted right now.
func (n IndexNode[K]) FreeSpace() int {
	return n.Capacity() - n.NumEntries()
}

// InsertEntryAt shifts entries [i:] right by one slot and writes key/child
// at i. Caller must have checked FreeSpace() > 0.
func (n IndexNode[K]) InsertEntryAt(i int, key K, child uint32) {
	count := n.NumEntries()
	buf := n.Page.Bytes()
	if i < count {
		src := buf[n.entryOffset(i) : n.entryOffset(count)]
		dst := buf[n.entryOffset(i+1) : n.entryOffset(count+1)]
		copy(dst, src)
	}
	n.setEntryAt(i, key, child)
	n.SetOccupation(count + 1)
	n.Page.MarkDirty()
}

// DeleteEntryAt removes the entry at i, shifting the remainder left.
func (n IndexNode[K]) DeleteEntryAt(i int) {
	count := n.NumEntries()
	buf := n.Page.Bytes()
	if i < count-1 {
		src := buf[n.entryOffset(i+1) : n.entryOffset(count)]
		dst := buf[n.entryOffset(i) : n.entryOffset(count-1)]
		copy(dst, src)
	}
	n.SetOccupation(count - 1)
	n.Page.MarkDirty()
}

// FindMedian mirrors the original node's index-split median rule:
// ceil(occupation/2), i.e. count/2 for an even count and count/2+1 for an
// odd one.
func (n IndexNode[K]) FindMedian() int {
	count := n.NumEntries()
	if count%2 == 0 {
		return count / 2
	}
	return count/2 + 1
}
