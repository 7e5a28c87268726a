package btree

import "github.com/tuannm99/arboretum/internal/bx"

// The header page (pinned for the tree's lifetime, per spec §5) stores
// only the root page id; everything else a search needs is reachable
// from there.
const offRootPageID = 0

func readRootPageID(headerBuf []byte) uint32 {
	return bx.U32At(headerBuf, offRootPageID)
}

func writeRootPageID(headerBuf []byte, id uint32) {
	bx.PutU32At(headerBuf, offRootPageID, id)
}
