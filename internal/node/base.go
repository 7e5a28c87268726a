// Package node interprets a *storage.Page as one of the typed node
// layouts of spec §3: B-tree index/leaf/leaf-overflow, the sequential
// ("dummy tree") node, and the MM partition node. Every node type here is
// a view borrowed from a pinned page, which it never copies. The node
// views do not write pages back themselves: the View type's Close writes
// a dirty page back through the owning PageManager, the
// "destructor-driven writeback" pattern of spec §9 recast as an explicit
// scoped-acquisition type.
package node

import (
	"errors"

	"github.com/tuannm99/arboretum/internal/bx"
	"github.com/tuannm99/arboretum/internal/storage"
)

// Type is the 16-bit tag stored at byte 0 of every node page (spec §6.4).
// The three B-tree codes are the literal values from the spec; the
// sequential and metric codes are this module's own, chosen with the
// same little-endian-ASCII convention.
type Type uint16

const (
	TypeIndex        Type = 0x4449 // "ID"
	TypeLeaf         Type = 0x464C // "LF"
	TypeLeafOverflow Type = 0x4F4C // "LO"
	TypeSequential   Type = 0x5153 // "SQ"
	TypeMetric       Type = 0x4D4D // "MM"
)

const (
	offType       = 0
	offOccupation = 2
	// CommonHeaderSize is where every node-specific layout begins.
	CommonHeaderSize = 6
)

var (
	ErrWrongType    = errors.New("node: page type tag does not match requested node view")
	ErrNoSuchEntry  = errors.New("node: entry index out of range")
	ErrMissingChain = errors.New("node: overflow bookkeeping nonzero but chain page missing")
)

// Header reads and writes the common 6-byte prefix shared by every node
// layout: a type tag and an entry/occupation count.
type Header struct {
	Page *storage.Page
}

func (h Header) TypeTag() Type {
	return Type(bx.U16At(h.Page.Bytes(), offType))
}

func (h Header) setTypeTag(t Type) {
	bx.PutU16At(h.Page.Bytes(), offType, uint16(t))
}

func (h Header) Occupation() int {
	return int(bx.U32At(h.Page.Bytes(), offOccupation))
}

func (h Header) SetOccupation(n int) {
	bx.PutU32At(h.Page.Bytes(), offOccupation, uint32(n))
}

// initHeader resets the page and stamps it with the given type tag; used
// by every node constructor's create=true path.
func initHeader(p *storage.Page, t Type) Header {
	p.Reset()
	h := Header{Page: p}
	h.setTypeTag(t)
	h.SetOccupation(0)
	return h
}

// requireType validates an existing page's tag before constructing a
// typed view over it — the "type-tag mismatch" invariant failure of
// spec §7, a reachable error in release builds.
func requireType(p *storage.Page, want Type) error {
	got := Type(bx.U16At(p.Bytes(), offType))
	if got != want {
		return ErrWrongType
	}
	return nil
}
