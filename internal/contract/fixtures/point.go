// Package fixtures provides the concrete Object implementations used by
// this module's own test suite and by cmd/arboretumctl: an N-dimensional
// point under Euclidean/Manhattan distance, and a byte-string under
// Hamming distance. Neither is part of the core's public contract — user
// code supplies its own contract.Object — but every tree needs *some*
// object to be exercised against, the way the teacher's heap/table tests
// use a fixed users(id, name, active) schema.
package fixtures

import (
	"encoding/binary"
	"math"

	"github.com/tuannm99/arboretum/internal/contract"
)

// Point is a fixed-dimension float64 vector with a durable id, the
// simplest stand-in for the "sample object" every Arboretum-style tree
// was originally tested against.
type Point struct {
	OID    uint64
	Coords []float64
}

var _ contract.Comparable = (*Point)(nil)

func NewPoint(oid uint64, coords ...float64) *Point {
	return &Point{OID: oid, Coords: append([]float64(nil), coords...)}
}

func (p *Point) SerializedSize() uint32 {
	return 8 + 2 + uint32(len(p.Coords))*8
}

func (p *Point) Serialize() []byte {
	buf := make([]byte, p.SerializedSize())
	binary.LittleEndian.PutUint64(buf[0:8], p.OID)
	binary.LittleEndian.PutUint16(buf[8:10], uint16(len(p.Coords)))
	for i, c := range p.Coords {
		off := 10 + i*8
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(c))
	}
	return buf
}

func (p *Point) Deserialize(b []byte) {
	p.OID = binary.LittleEndian.Uint64(b[0:8])
	n := int(binary.LittleEndian.Uint16(b[8:10]))
	p.Coords = make([]float64, n)
	for i := range p.Coords {
		off := 10 + i*8
		p.Coords[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+8]))
	}
}

func (p *Point) Clone() contract.Object {
	return NewPoint(p.OID, p.Coords...)
}

func (p *Point) Identifier() uint64 { return p.OID }

func (p *Point) Equals(other contract.Object) bool {
	o, ok := other.(*Point)
	if !ok || o.OID != p.OID || len(o.Coords) != len(p.Coords) {
		return false
	}
	for i := range p.Coords {
		if p.Coords[i] != o.Coords[i] {
			return false
		}
	}
	return true
}

// Less orders points by OID, giving kNN's tiebreaker mode a total order
// to fall back on regardless of coordinate values.
func (p *Point) Less(other contract.Object) bool {
	o := other.(*Point)
	return p.OID < o.OID
}

// Euclidean is the standard L2 metric over equal-dimension points.
func Euclidean(a, b contract.Object) float64 {
	pa, pb := a.(*Point), b.(*Point)
	var sum float64
	for i := range pa.Coords {
		d := pa.Coords[i] - pb.Coords[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Manhattan is the L1 metric over equal-dimension points.
func Manhattan(a, b contract.Object) float64 {
	pa, pb := a.(*Point), b.(*Point)
	var sum float64
	for i := range pa.Coords {
		sum += math.Abs(pa.Coords[i] - pb.Coords[i])
	}
	return sum
}
