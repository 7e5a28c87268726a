package node

import (
	"github.com/tuannm99/arboretum/internal/bx"
	"github.com/tuannm99/arboretum/internal/storage"
)

// SequentialNode is a page full of opaque serialized objects with a
// next-page link and no ordering (spec §3, §4.4) — the building block of
// the sequential scanner's "dummy tree": a singly-linked chain of full
// pages, always inserted into the current head until it fills, at which
// point a new head is allocated and linked in front of the old one.
//
// Objects are appended in arrival order and packed from the end of the
// page backward, exactly like a leaf node's local object region, but
// without any per-entry key — an entry here is just a packed-object
// offset.
const (
	offSeqNext        = CommonHeaderSize
	seqHeaderSize     = 4
	seqEntriesOffset  = CommonHeaderSize + seqHeaderSize
	seqEntrySize      = 4
)

type SequentialNode struct {
	Header
}

func NewSequentialNode(p *storage.Page) SequentialNode {
	h := initHeader(p, TypeSequential)
	bx.PutU32At(p.Bytes(), offSeqNext, storage.NoPage)
	return SequentialNode{Header: h}
}

func OpenSequentialNode(p *storage.Page) (SequentialNode, error) {
	if err := requireType(p, TypeSequential); err != nil {
		return SequentialNode{}, err
	}
	return SequentialNode{Header: Header{Page: p}}, nil
}

func (n SequentialNode) NumEntries() int { return n.Occupation() }

func (n SequentialNode) NextPageID() uint32 { return bx.U32At(n.Page.Bytes(), offSeqNext) }

func (n SequentialNode) SetNextPageID(id uint32) {
	bx.PutU32At(n.Page.Bytes(), offSeqNext, id)
	n.Page.MarkDirty()
}

func (n SequentialNode) entryOffset(i int) int {
	return seqEntriesOffset + i*seqEntrySize
}

func (n SequentialNode) entryOffsetValue(i int) uint32 {
	return bx.U32At(n.Page.Bytes(), n.entryOffset(i))
}

func (n SequentialNode) setEntryOffsetValue(i int, off uint32) {
	bx.PutU32At(n.Page.Bytes(), n.entryOffset(i), off)
}

func (n SequentialNode) ObjectAt(i int) []byte {
	size := n.ObjectSizeAt(i)
	off := n.entryOffsetValue(i)
	return n.Page.Bytes()[off : int(off)+size]
}

func (n SequentialNode) ObjectSizeAt(i int) int {
	if i == 0 {
		return len(n.Page.Bytes()) - int(n.entryOffsetValue(0))
	}
	return int(n.entryOffsetValue(i-1) - n.entryOffsetValue(i))
}

func (n SequentialNode) FreeSpace() int {
	used := seqEntriesOffset
	if count := n.NumEntries(); count > 0 {
		used += seqEntrySize*count + (len(n.Page.Bytes()) - int(n.entryOffsetValue(count-1)))
	}
	return len(n.Page.Bytes()) - used
}

// Append inserts object at the current tail. There is no key and no
// ordering: a sequential node is a plain bag of objects.
func (n SequentialNode) Append(object []byte) InsertResult {
	need := len(object) + seqEntrySize
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
