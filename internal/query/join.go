package query

import (
	"sort"

	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/seqstore"
)

// JoinTriple is one matched pair produced by a join, annotated with the
// distance that qualified it.
type JoinTriple struct {
	Left     contract.Object
	Right    contract.Object
	Distance float64
}

func collectAll(store *seqstore.Store) ([]contract.Object, error) {
	var all []contract.Object
	err := store.Walk(func(o contract.Object) bool {
		all = append(all, o)
		return true
	})
	return all, err
}

// RangeJoin nested-loops over left and right, emitting every pair within
// r. The original source's range-join was known to add a triple twice
// in some code paths; a join is a mathematical set of triples, so this
// implementation deduplicates explicitly by (left OID, right OID)
// rather than reproducing that defect (spec §9).
func RangeJoin(left, right *seqstore.Store, metric contract.Metric, r float64) ([]JoinTriple, error) {
	lefts, err := collectAll(left)
	if err != nil {
		return nil, err
	}
	rights, err := collectAll(right)
	if err != nil {
		return nil, err
	}

	seen := make(map[[2]uint64]bool)
	var triples []JoinTriple
	for _, l := range lefts {
		for _, r2 := range rights {
			d, ok := metric.Eval(l, r2)
			if !ok || d > r {
				continue
			}
			key := [2]uint64{l.Identifier(), r2.Identifier()}
			if seen[key] {
				continue
			}
			seen[key] = true
			triples = append(triples, JoinTriple{Left: l, Right: r2, Distance: d})
		}
	}
	return triples, nil
}

// KNNJoin maintains a per-left-object k-bound: for every left object it
// reports its k nearest objects in right, keyed by the left object's
// OID.
func KNNJoin(left, right *seqstore.Store, metric contract.Metric, k int) (map[uint64][]JoinTriple, error) {
	lefts, err := collectAll(left)
	if err != nil {
		return nil, err
	}
	rights, err := collectAll(right)
	if err != nil {
		return nil, err
	}

	out := make(map[uint64][]JoinTriple, len(lefts))
	for _, l := range lefts {
		var best []JoinTriple
		for _, r2 := range rights {
			d, ok := metric.Eval(l, r2)
			if !ok {
				continue
			}
			t := JoinTriple{Left: l, Right: r2, Distance: d}
			if len(best) < k {
				best = append(best, t)
				sortTriples(best)
				continue
			}
			if d < best[len(best)-1].Distance {
				best = append(best, t)
				sortTriples(best)
				best = best[:k]
			}
		}
		out[l.Identifier()] = best
	}
	return out, nil
}

// KClosestJoin maintains a single global k-bound over every (left,
// right) pair, returning the k closest pairs across the whole join.
func KClosestJoin(left, right *seqstore.Store, metric contract.Metric, k int) ([]JoinTriple, error) {
	lefts, err := collectAll(left)
	if err != nil {
		return nil, err
	}
	rights, err := collectAll(right)
	if err != nil {
		return nil, err
	}

	var best []JoinTriple
	for _, l := range lefts {
		for _, r2 := range rights {
			d, ok := metric.Eval(l, r2)
			if !ok {
				continue
			}
			t := JoinTriple{Left: l, Right: r2, Distance: d}
			if len(best) < k {
				best = append(best, t)
				sortTriples(best)
				continue
			}
			if d < best[len(best)-1].Distance {
				best = append(best, t)
				sortTriples(best)
				best = best[:k]
			}
		}
	}
	return best, nil
}

func sortTriples(t []JoinTriple) {
	sort.Slice(t, func(i, j int) bool {
		if t[i].Distance != t[j].Distance {
			return t[i].Distance < t[j].Distance
		}
		if t[i].Left.Identifier() != t[j].Left.Identifier() {
			return t[i].Left.Identifier() < t[j].Left.Identifier()
		}
		return t[i].Right.Identifier() < t[j].Right.Identifier()
	})
}
