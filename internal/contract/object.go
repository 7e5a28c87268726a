// Package contract defines the two interfaces the core depends on and
// never implements itself (spec §6.2, §6.3): the stored object type and
// the metric evaluator. Every tree and query algorithm in this module is
// generic over these two contracts.
package contract

// Object is the external collaborator every page-backed node stores.
// Implementations are opaque to the core; it only serializes,
// deserializes, clones, and compares through this interface.
type Object interface {
	// SerializedSize reports how many bytes Serialize will produce.
	SerializedSize() uint32

	// Serialize encodes the object into a byte slice owned by the
	// object (the core copies it into a page immediately).
	Serialize() []byte

	// Deserialize populates the receiver from bytes previously produced
	// by Serialize.
	Deserialize(b []byte)

	// Clone returns an independent deep copy.
	Clone() Object

	// Identifier returns the durable OID used to break ties in result
	// ordering (spec §6.5) and in kNN tie-breaking (spec §4.7).
	Identifier() uint64

	// Equals reports value equality with another Object of the same
	// concrete type.
	Equals(other Object) bool
}

// Comparable is an optional extension to Object required only by kNN's
// tiebreaker mode (spec §4.7): a total order over the object's own
// fields, used to deterministically order an equidistant tie-set. If the
// supplied ordering is only a partial order, tie output becomes
// implementation-defined (spec §9, open question).
type Comparable interface {
	Object
	Less(other Object) bool
}
