package node

import (
	"github.com/tuannm99/arboretum/internal/bx"
	"github.com/tuannm99/arboretum/internal/storage"
)

// NumRegions is the four-way partition an MM node's two pivots divide
// space into: region (x,y) for d(obj,u1)<D, d(obj,u2)<D (spec §4.8).
const NumRegions = 4

// MaxRepresentatives is the hard cap on objects an MM node holds while
// awaiting a try-to-balance rebalance, before they are routed into one of
// the four region children. The source enforces this bound against a
// fixed array of 16 and leaves behavior past it undefined; this
// implementation treats it as a hard cap rather than inventing a growth
// policy (spec §9 open question).
const MaxRepresentatives = 16

// Fixed MM-node header fields after the common 6-byte prefix:
//
//	Pivot1Offset | Pivot2Offset | DiscriminatingDistance | Child[0..3]
const (
	offPivot1Offset  = CommonHeaderSize
	offPivot2Offset  = offPivot1Offset + 4
	offDiscriminant  = offPivot2Offset + 4
	offChildren      = offDiscriminant + 8
	mmHeaderSize     = 4 + 4 + 8 + 4*NumRegions
	mmEntriesOffset  = CommonHeaderSize + mmHeaderSize
	mmEntrySize      = 4
)

// MetricNode is an MM partition-tree node: two pivots, their
// discriminating distance, four region child pointers, and a scratch
// list of up to MaxRepresentatives objects collected between rebalances.
// Pivots and representatives are all serialized objects packed from the
// page end backward, exactly like a leaf node's object region.
type MetricNode struct {
	Header
}

func NewMetricNode(p *storage.Page) MetricNode {
	h := initHeader(p, TypeMetric)
	buf := p.Bytes()
	bx.PutU32At(buf, offPivot1Offset, 0)
	bx.PutU32At(buf, offPivot2Offset, 0)
	bx.PutF64At(buf, offDiscriminant, 0)
	for r := 0; r < NumRegions; r++ {
		bx.PutU32At(buf, offChildren+r*4, storage.NoPage)
	}
	return MetricNode{Header: h}
}

func OpenMetricNode(p *storage.Page) (MetricNode, error) {
	if err := requireType(p, TypeMetric); err != nil {
		return MetricNode{}, err
	}
	return MetricNode{Header: Header{Page: p}}, nil
}

func (n MetricNode) DiscriminatingDistance() float64 {
	return bx.F64At(n.Page.Bytes(), offDiscriminant)
}

func (n MetricNode) SetDiscriminatingDistance(d float64) {
	bx.PutF64At(n.Page.Bytes(), offDiscriminant, d)
	n.Page.MarkDirty()
}

func (n MetricNode) Child(region int) uint32 {
	return bx.U32At(n.Page.Bytes(), offChildren+region*4)
}

func (n MetricNode) SetChild(region int, pageID uint32) {
	bx.PutU32At(n.Page.Bytes(), offChildren+region*4, pageID)
	n.Page.MarkDirty()
}

// Region classifies an object by its distances to the two pivots,
// following (d(x,u1)<D, d(x,u2)<D): region 0 is (false,false), 1 is
// (false,true), 2 is (true,false), 3 is (true,true).
func Region(distToPivot1, distToPivot2, discriminant float64) int {
	region := 0
	if distToPivot1 < discriminant {
		region |= 2
	}
	if distToPivot2 < discriminant {
		region |= 1
	}
	return region
}

func (n MetricNode) pivotOffset(slot int) uint32 {
	return bx.U32At(n.Page.Bytes(), offPivot1Offset+slot*4)
}

func (n MetricNode) setPivotOffset(slot int, off uint32) {
	bx.PutU32At(n.Page.Bytes(), offPivot1Offset+slot*4, off)
}

func (n MetricNode) hasPivot(slot int) bool { return n.pivotOffset(slot) != 0 }

// HasPivots reports whether this node has been finalized into an
// internal node (pivots set, representatives routed into region
// children) rather than still being a representatives-only scratch leaf.
func (n MetricNode) HasPivots() bool { return n.hasPivot(0) }

// pivotSize recovers a pivot's packed size the same way a leaf recovers
// an object's size: from the gap to the next-lower packed offset, where
// "next lower" is the other pivot if it is packed below this one, or the
// first representative, or the page end.
func (n MetricNode) pivotSize(slot int) int {
	off := n.pivotOffset(slot)
	other := 1 - slot
	bound := uint32(len(n.Page.Bytes()))
	if n.hasPivot(other) && n.pivotOffset(other) < bound && n.pivotOffset(other) > off {
		bound = n.pivotOffset(other)
	}
	if count := n.NumRepresentatives(); count > 0 {
		if repOff := n.repOffsetValue(count - 1); repOff > off && repOff < bound {
			bound = repOff
		}
	}
	return int(bound - off)
}

// SetPivots packs both pivot objects at the end of the page, above any
// representatives already present, and stamps the discriminating
// distance. It is only valid on a node with no representatives yet
// (called once, when a leaf of the partition tree is finalized into an
// internal node).
func (n MetricNode) SetPivots(p1, p2 []byte, discriminant float64) {
	buf := n.Page.Bytes()
	off2 := uint32(len(buf)) - uint32(len(p2))
	copy(buf[off2:], p2)
	off1 := off2 - uint32(len(p1))
	copy(buf[off1:off1+uint32(len(p1))], p1)
	n.setPivotOffset(0, off1)
	n.setPivotOffset(1, off2)
	n.SetDiscriminatingDistance(discriminant)
	n.Page.MarkDirty()
}

func (n MetricNode) Pivot(slot int) []byte {
	off := n.pivotOffset(slot)
	return n.Page.Bytes()[off : int(off)+n.pivotSize(slot)]
}

func (n MetricNode) NumRepresentatives() int { return n.Occupation() }

func (n MetricNode) repEntryOffset(i int) int { return mmEntriesOffset + i*mmEntrySize }

func (n MetricNode) repOffsetValue(i int) uint32 {
	return bx.U32At(n.Page.Bytes(), n.repEntryOffset(i))
}

func (n MetricNode) setRepOffsetValue(i int, off uint32) {
	bx.PutU32At(n.Page.Bytes(), n.repEntryOffset(i), off)
}

func (n MetricNode) RepresentativeAt(i int) []byte {
	size := n.repSizeAt(i)
	off := n.repOffsetValue(i)
	return n.Page.Bytes()[off : int(off)+size]
}

func (n MetricNode) repSizeAt(i int) int {
	if i == 0 {
		base := uint32(len(n.Page.Bytes()))
		if n.hasPivot(0) {
			base = n.pivotOffset(0)
		}
		return int(base - n.repOffsetValue(0))
	}
	return int(n.repOffsetValue(i-1) - n.repOffsetValue(i))
}

func (n MetricNode) repFreeSpace() int {
	used := mmEntriesOffset + n.NumRepresentatives()*mmEntrySize
	tail := uint32(len(n.Page.Bytes()))
	if n.hasPivot(0) {
		tail = n.pivotOffset(0)
	} else if count := n.NumRepresentatives(); count > 0 {
		tail = n.repOffsetValue(count - 1)
	}
	used += len(n.Page.Bytes()) - int(tail)
	return len(n.Page.Bytes()) - used
}

// AddRepresentative appends a candidate object to the scratch list,
// failing with InsertNodeFull once MaxRepresentatives or the page's free
// space is exhausted.
func (n MetricNode) AddRepresentative(object []byte) InsertResult {
	count := n.NumRepresentatives()
	if count >= MaxRepresentatives {
		return InsertNodeFull
	}
	if len(object)+mmEntrySize > n.repFreeSpace() {
		return InsertNodeFull
	}

	buf := n.Page.Bytes()
	tail := uint32(len(buf))
	if n.hasPivot(0) {
		tail = n.pivotOffset(0)
	} else if count > 0 {
		tail = n.repOffsetValue(count - 1)
	}
	off := tail - uint32(len(object))
	copy(buf[off:int(off)+len(object)], object)
	n.setRepOffsetValue(count, off)
	n.SetOccupation(count + 1)
	n.Page.MarkDirty()
	return InsertSuccess
}

// ClearRepresentatives empties the scratch list after a successful
// four-region split has routed every collected object into a child.
func (n MetricNode) ClearRepresentatives() {
	n.SetOccupation(0)
	n.Page.MarkDirty()
}
