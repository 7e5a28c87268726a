// Package bx holds the little-endian byte-order helpers shared by every
// on-page layout in the module (node headers, B-tree entries, overflow
// chains). Centralizing them keeps pointer arithmetic in node code
// readable: offsets are computed once, decoding is one call away.
package bx

import (
	"encoding/binary"
	"math"
)

var LE = binary.LittleEndian

func U16(b []byte) uint16 { return LE.Uint16(b) }
func U32(b []byte) uint32 { return LE.Uint32(b) }
func U64(b []byte) uint64 { return LE.Uint64(b) }

func PutU16(b []byte, v uint16) { LE.PutUint16(b, v) }
func PutU32(b []byte, v uint32) { LE.PutUint32(b, v) }
func PutU64(b []byte, v uint64) { LE.PutUint64(b, v) }

func U16At(b []byte, off int) uint16       { return U16(b[off:]) }
func U32At(b []byte, off int) uint32       { return U32(b[off:]) }
func U64At(b []byte, off int) uint64       { return U64(b[off:]) }
func PutU16At(b []byte, off int, v uint16) { PutU16(b[off:], v) }
func PutU32At(b []byte, off int, v uint32) { PutU32(b[off:], v) }
func PutU64At(b []byte, off int, v uint64) { PutU64(b[off:], v) }

// F64At/PutF64At read/write an IEEE-754 double at a byte offset, used for
// distances and discriminating radii stored on metric-tree pages.
func F64At(b []byte, off int) float64 {
	return math.Float64frombits(U64At(b, off))
}

func PutF64At(b []byte, off int, v float64) {
	PutU64At(b, off, math.Float64bits(v))
}
