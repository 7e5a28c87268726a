package node

import (
	"github.com/tuannm99/arboretum/internal/bx"
	"github.com/tuannm99/arboretum/internal/storage"
)

// LeafOverflowNode holds duplicate objects that did not fit in the leaf
// node that owns them (spec §4.3). Every object here shares the same key
// as its owning leaf, so entries carry only a packed-object offset, no
// key, and Insert always appends — there is no sort order to maintain.
const (
	offOverflowNext     = CommonHeaderSize
	overflowHeaderSize  = 4
	overflowEntriesOff  = CommonHeaderSize + overflowHeaderSize
	overflowEntrySize   = 4
)

type LeafOverflowNode struct {
	Header
}

func NewLeafOverflowNode(p *storage.Page) LeafOverflowNode {
	h := initHeader(p, TypeLeafOverflow)
	bx.PutU32At(p.Bytes(), offOverflowNext, storage.NoPage)
	return LeafOverflowNode{Header: h}
}

func OpenLeafOverflowNode(p *storage.Page) (LeafOverflowNode, error) {
	if err := requireType(p, TypeLeafOverflow); err != nil {
		return LeafOverflowNode{}, err
	}
	return LeafOverflowNode{Header: Header{Page: p}}, nil
}

func (n LeafOverflowNode) NumEntries() int { return n.Occupation() }

// NextOverflowPageID is the next page in this leaf's duplicate chain, or
// storage.NoPage if this is the last one.
func (n LeafOverflowNode) NextOverflowPageID() uint32 {
	return bx.U32At(n.Page.Bytes(), offOverflowNext)
}

func (n LeafOverflowNode) SetNextOverflowPageID(id uint32) {
	bx.PutU32At(n.Page.Bytes(), offOverflowNext, id)
	n.Page.MarkDirty()
}

func (n LeafOverflowNode) entryOffset(i int) int {
	return overflowEntriesOff + i*overflowEntrySize
}

func (n LeafOverflowNode) entryOffsetValue(i int) uint32 {
	return bx.U32At(n.Page.Bytes(), n.entryOffset(i))
}

func (n LeafOverflowNode) setEntryOffsetValue(i int, off uint32) {
	bx.PutU32At(n.Page.Bytes(), n.entryOffset(i), off)
}

func (n LeafOverflowNode) ObjectAt(i int) []byte {
	size := n.ObjectSizeAt(i)
	off := n.entryOffsetValue(i)
	return n.Page.Bytes()[off : int(off)+size]
}

func (n LeafOverflowNode) ObjectSizeAt(i int) int {
	if i == 0 {
		return len(n.Page.Bytes()) - int(n.entryOffsetValue(0))
	}
	return int(n.entryOffsetValue(i-1) - n.entryOffsetValue(i))
}

func (n LeafOverflowNode) FreeSpace() int {
	used := overflowEntriesOff
	if count := n.NumEntries(); count > 0 {
		used += overflowEntrySize*count + (len(n.Page.Bytes()) - int(n.entryOffsetValue(count-1)))
	}
	return len(n.Page.Bytes()) - used
}

// Insert appends object to the end of this node's packed region. There is
// no key and no ordering: new entries always land at the current
// occupation's index.
func (n LeafOverflowNode) Insert(object []byte) InsertResult {
	need := len(object) + overflowEntrySize
	if need > n.FreeSpace() {
		return InsertNodeFull
	}

	count := n.NumEntries()
	buf := n.Page.Bytes()
	var off uint32
	if count == 0 {
		off = uint32(len(buf)) - uint32(len(object))
	} else {
		off = n.entryOffsetValue(count-1) - uint32(len(object))
	}
	n.setEntryOffsetValue(count, off)
	copy(buf[off:int(off)+len(object)], object)

	n.SetOccupation(count + 1)
	n.Page.MarkDirty()
	return InsertSuccess
}

// DeleteElementAt removes entry idx, pulling the object data of every
// entry packed before it forward by the freed size, the same rightward
// shift a leaf performs on delete.
func (n LeafOverflowNode) DeleteElementAt(idx int) {
	count := n.NumEntries()
	lastIdx := count - 1
	delSize := uint32(n.ObjectSizeAt(idx))
	buf := n.Page.Bytes()

	if idx < lastIdx {
		lastOff := n.entryOffsetValue(lastIdx)
		blockLen := int(n.entryOffsetValue(idx) - lastOff)
		copy(buf[int(lastOff)+int(delSize):], buf[lastOff:int(lastOff)+blockLen])

		for i := idx; i < lastIdx; i++ {
			n.setEntryOffsetValue(i, n.entryOffsetValue(i+1)+delSize)
		}
	}

	n.SetOccupation(count - 1)
	n.Page.MarkDirty()
}
