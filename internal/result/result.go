// Package result implements the Result container (spec §4.6): a sorted
// multiset of (object, key) pairs ordered by key ascending, ties broken
// by the object's durable OID, plus the set-algebra helpers every query
// in the query package returns through.
package result

import (
	"sort"

	"github.com/tuannm99/arboretum/internal/contract"
)

// Entry is one (object, key) pair held by a Result.
type Entry struct {
	Object contract.Object
	Key    float64
}

// Result is a sorted multiset, key ascending with OID as a tiebreaker,
// giving every query a total reproducible order (spec §6.5, testable
// property 7).
type Result struct {
	entries []Entry
	tie     bool
}

// New creates an empty Result. tie controls Cut's behavior: when true,
// Cut(k) retains any suffix tied on key with the k-th entry rather than
// cutting mid-tie.
func New(tie bool) *Result {
	return &Result{tie: tie}
}

func less(a, b Entry) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.Object.Identifier() < b.Object.Identifier()
}

// Add inserts (obj, key) at its sorted position.
func (r *Result) Add(obj contract.Object, key float64) {
	e := Entry{Object: obj, Key: key}
	idx := sort.Search(len(r.entries), func(i int) bool { return less(e, r.entries[i]) })
	r.entries = append(r.entries, Entry{})
	copy(r.entries[idx+1:], r.entries[idx:])
	r.entries[idx] = e
}

func (r *Result) RemoveFirst() (Entry, bool) {
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	e := r.entries[0]
	r.entries = r.entries[1:]
	return e, true
}

func (r *Result) RemoveLast() (Entry, bool) {
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	e := r.entries[len(r.entries)-1]
	r.entries = r.entries[:len(r.entries)-1]
	return e, true
}

func (r *Result) MinKey() (float64, bool) {
	if len(r.entries) == 0 {
		return 0, false
	}
	return r.entries[0].Key, true
}

func (r *Result) MaxKey() (float64, bool) {
	if len(r.entries) == 0 {
		return 0, false
	}
	return r.entries[len(r.entries)-1].Key, true
}

func (r *Result) Size() int { return len(r.entries) }

// Entries returns the backing slice directly; callers must treat it as
// read-only.
func (r *Result) Entries() []Entry { return r.entries }

// Cut retains only the first k entries. If tie is set and entry k-1's
// key equals the key of entries beyond k, those are retained too, so a
// caller never sees an arbitrary split of an equal-key run.
func (r *Result) Cut(k int) {
	if k >= len(r.entries) {
		return
	}
	if k < 0 {
		k = 0
	}
	end := k
	if r.tie && k > 0 {
		boundary := r.entries[k-1].Key
		for end < len(r.entries) && r.entries[end].Key == boundary {
			end++
		}
	}
	r.entries = r.entries[:end]
}

// CutFirst retains only the last k entries (the symmetric trim used by
// farthest-point queries), extending the retained prefix backward over
// any tie at the new boundary when tie is set.
func (r *Result) CutFirst(k int) {
	n := len(r.entries)
	if k >= n {
		return
	}
	if k < 0 {
		k = 0
	}
	start := n - k
	if r.tie && start < n {
		boundary := r.entries[start].Key
		for start > 0 && r.entries[start-1].Key == boundary {
			start--
		}
	}
	r.entries = r.entries[start:]
}

func keyOf(e Entry) (uint64, float64) { return e.Object.Identifier(), e.Key }

// IsEqual reports whether r and other hold the same (OID, key) pairs,
// irrespective of any transient float formatting.
func (r *Result) IsEqual(other *Result) bool {
	if len(r.entries) != len(other.entries) {
		return false
	}
	for i := range r.entries {
		oid1, k1 := keyOf(r.entries[i])
		oid2, k2 := keyOf(other.entries[i])
		if oid1 != oid2 || k1 != k2 {
			return false
		}
	}
	return true
}

func oidSet(r *Result) map[uint64]Entry {
	m := make(map[uint64]Entry, len(r.entries))
	for _, e := range r.entries {
		m[e.Object.Identifier()] = e
	}
	return m
}

// Intersection returns entries present (by OID) in both r and other,
// keeping r's key values.
func (r *Result) Intersection(other *Result) *Result {
	out := New(r.tie)
	otherSet := oidSet(other)
	for _, e := range r.entries {
		if _, ok := otherSet[e.Object.Identifier()]; ok {
			out.Add(e.Object, e.Key)
		}
	}
	return out
}

// Union returns every entry present in either r or other, deduplicated
// by OID, favoring r's copy when both hold the same OID.
func (r *Result) Union(other *Result) *Result {
	out := New(r.tie)
	seen := make(map[uint64]bool, len(r.entries)+len(other.entries))
	for _, e := range r.entries {
		out.Add(e.Object, e.Key)
		seen[e.Object.Identifier()] = true
	}
	for _, e := range other.entries {
		if !seen[e.Object.Identifier()] {
			out.Add(e.Object, e.Key)
			seen[e.Object.Identifier()] = true
		}
	}
	return out
}

// Precision reports the fraction of r's entries (by OID) that also
// appear in groundTruth — the standard retrieval-accuracy measure for
// comparing an approximate result against the sequential scanner.
func (r *Result) Precision(groundTruth *Result) float64 {
	if len(r.entries) == 0 {
		return 1
	}
	truth := oidSet(groundTruth)
	hits := 0
	for _, e := range r.entries {
		if _, ok := truth[e.Object.Identifier()]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(r.entries))
}
