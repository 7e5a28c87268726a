package fixtures

import (
	"encoding/binary"

	"github.com/tuannm99/arboretum/internal/contract"
)

// Str is a byte-string object with a durable id, used by the string-data
// query tests (join/grouped queries over short textual keys).
type Str struct {
	OID   uint64
	Value string
}

var _ contract.Comparable = (*Str)(nil)

func NewStr(oid uint64, value string) *Str {
	return &Str{OID: oid, Value: value}
}

func (s *Str) SerializedSize() uint32 {
	return 8 + 2 + uint32(len(s.Value))
}

func (s *Str) Serialize() []byte {
	buf := make([]byte, s.SerializedSize())
	binary.LittleEndian.PutUint64(buf[0:8], s.OID)
	binary.LittleEndian.PutUint16(buf[8:10], uint16(len(s.Value)))
	copy(buf[10:], s.Value)
	return buf
}

func (s *Str) Deserialize(b []byte) {
	s.OID = binary.LittleEndian.Uint64(b[0:8])
	n := int(binary.LittleEndian.Uint16(b[8:10]))
	s.Value = string(b[10 : 10+n])
}

func (s *Str) Clone() contract.Object {
	return NewStr(s.OID, s.Value)
}

func (s *Str) Identifier() uint64 { return s.OID }

func (s *Str) Equals(other contract.Object) bool {
	o, ok := other.(*Str)
	return ok && o.OID == s.OID && o.Value == s.Value
}

func (s *Str) Less(other contract.Object) bool {
	o := other.(*Str)
	return s.OID < o.OID
}

// Hamming counts differing byte positions over the common prefix, plus
// the length difference — a metric over unequal-length strings that
// still satisfies the triangle inequality.
func Hamming(a, b contract.Object) float64 {
	sa, sb := a.(*Str), b.(*Str)
	n := len(sa.Value)
	if len(sb.Value) < n {
		n = len(sb.Value)
	}
	diff := 0
	for i := 0; i < n; i++ {
		if sa.Value[i] != sb.Value[i] {
			diff++
		}
	}
	diff += abs(len(sa.Value) - len(sb.Value))
	return float64(diff)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
