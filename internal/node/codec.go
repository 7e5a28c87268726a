package node

import (
	"encoding/binary"
	"math"
)

// KeyCodec tells the node layer how to turn a search key of type K into a
// fixed number of on-page bytes and back, and how to order two keys. Every
// B-tree node is generic over one of these rather than over K directly,
// since K itself carries no serialization or ordering obligation.
type KeyCodec[K any] struct {
	Size    int
	Encode  func(K, []byte)
	Decode  func([]byte) K
	Compare func(a, b K) int
}

// Int64Codec stores a signed 64-bit key as its two's-complement bits in
// little-endian order and orders keys with a numeric comparator; ordering
// always goes through Compare, never through the on-page bytes.
func Int64Codec() KeyCodec[int64] {
	return KeyCodec[int64]{
		Size: 8,
		Encode: func(k int64, b []byte) {
			binary.LittleEndian.PutUint64(b, uint64(k))
		},
		Decode: func(b []byte) int64 {
			return int64(binary.LittleEndian.Uint64(b))
		},
		Compare: func(a, b int64) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		},
	}
}

// Float64Codec orders IEEE-754 keys with NaN excluded by convention (the
// core never calls Compare with a NaN key).
func Float64Codec() KeyCodec[float64] {
	return KeyCodec[float64]{
		Size: 8,
		Encode: func(k float64, b []byte) {
			binary.LittleEndian.PutUint64(b, math.Float64bits(k))
		},
		Decode: func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		},
		Compare: func(a, b float64) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		},
	}
}

// FixedStringCodec pads or truncates keys to n bytes, ordering them
// lexicographically. Encode silently truncates values longer than n; no
// caller in this module checks the length first.
func FixedStringCodec(n int) KeyCodec[string] {
	return KeyCodec[string]{
		Size: n,
		Encode: func(k string, b []byte) {
			copy(b, k)
			for i := len(k); i < n; i++ {
				b[i] = 0
			}
		},
		Decode: func(b []byte) string {
			end := n
			for end > 0 && b[end-1] == 0 {
				end--
			}
			return string(b[:end])
		},
		Compare: func(a, b string) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		},
	}
}
