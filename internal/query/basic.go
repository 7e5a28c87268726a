// Package query implements the similarity-query algorithms layered on
// the sequential scanner (spec §4.7): range, kNN with its tiebreaker
// mode, k-farthest, the k-and-range/k-or-range hybrids, ring queries,
// grouped aggregate queries, nested-loop joins, and the intra-
// constrained kNN family. Every query here is a full chain walk over a
// seqstore.Store — the "ground truth" these algorithms exist to provide
// (spec §4.4), which metric-tree variants are checked against.
package query

import (
	"math"
	"sort"

	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/result"
	"github.com/tuannm99/arboretum/internal/seqstore"
)

// Range adds every stored object whose distance to sample is <= r.
func Range(store *seqstore.Store, metric contract.Metric, sample contract.Object, r float64) (*result.Result, error) {
	res := result.New(false)
	err := store.Walk(func(obj contract.Object) bool {
		if d, ok := metric.Eval(sample, obj); ok && d <= r {
			res.Add(obj, d)
		}
		return true
	})
	return res, err
}

// Ring adds every stored object whose distance to sample satisfies
// in < distance <= out.
func Ring(store *seqstore.Store, metric contract.Metric, sample contract.Object, in, out float64) (*result.Result, error) {
	res := result.New(false)
	err := store.Walk(func(obj contract.Object) bool {
		if d, ok := metric.Eval(sample, obj); ok && d > in && d <= out {
			res.Add(obj, d)
		}
		return true
	})
	return res, err
}

// KNN maintains a k-bounded Result over ascending distance to sample. In
// tiebreaker mode, once the result is full and a new candidate ties the
// current maximum, every object at that distance is gathered into a
// tie-set, stably ordered by the object's own Comparable.Less, and only
// as many as still fit are kept (spec §4.7) — giving a deterministic
// result even when the metric alone cannot break the tie.
func KNN(store *seqstore.Store, metric contract.Metric, sample contract.Object, k int, tie, tiebreaker bool) (*result.Result, error) {
	res := result.New(tie)
	err := store.Walk(func(obj contract.Object) bool {
		d, ok := metric.Eval(sample, obj)
		if !ok {
			return true
		}
		if res.Size() < k {
			res.Add(obj, d)
			return true
		}
		maxKey, _ := res.MaxKey()
		switch {
		case d < maxKey:
			res.Add(obj, d)
			if tiebreaker {
				resolveTie(res, k)
			} else {
				res.Cut(k)
			}
		case tiebreaker && d == maxKey:
			res.Add(obj, d)
			resolveTie(res, k)
		}
		return true
	})
	return res, err
}

// resolveTie rebuilds res so that, among all entries sharing the current
// maximum key, only the first (k - count-below-max) survive, ordered by
// the objects' own comparison relation where available (falling back to
// OID order for objects that do not implement contract.Comparable).
func resolveTie(res *result.Result, k int) {
	entries := res.Entries()
	if len(entries) <= k {
		return
	}
	maxKey := entries[len(entries)-1].Key

	below := 0
	for below < len(entries) && entries[below].Key < maxKey {
		below++
	}
	tieSet := append([]result.Entry(nil), entries[below:]...)
	sort.SliceStable(tieSet, func(i, j int) bool {
		ci, iok := tieSet[i].Object.(contract.Comparable)
		cj, jok := tieSet[j].Object.(contract.Comparable)
		if iok && jok {
			return ci.Less(cj)
		}
		return tieSet[i].Object.Identifier() < tieSet[j].Object.Identifier()
	})

	keep := k - below
	if keep < 0 {
		keep = 0
	}
	if keep > len(tieSet) {
		keep = len(tieSet)
	}

	rebuilt := result.New(false)
	for i := 0; i < below; i++ {
		rebuilt.Add(entries[i].Object, entries[i].Key)
	}
	for i := 0; i < keep; i++ {
		rebuilt.Add(tieSet[i].Object, tieSet[i].Key)
	}
	*res = *rebuilt
}

// KFarthest is kNN's mirror image, bounding the result to the k objects
// with the largest distance to sample.
func KFarthest(store *seqstore.Store, metric contract.Metric, sample contract.Object, k int) (*result.Result, error) {
	res := result.New(false)
	err := store.Walk(func(obj contract.Object) bool {
		d, ok := metric.Eval(sample, obj)
		if !ok {
			return true
		}
		if res.Size() < k {
			res.Add(obj, d)
			return true
		}
		minKey, _ := res.MinKey()
		if d > minKey {
			res.Add(obj, d)
			res.CutFirst(k)
		}
		return true
	})
	return res, err
}

// KAndRange bounds the result by both k and r: a candidate only ever
// enters consideration if it is within r, and the k-nearest rule applies
// on top of that.
func KAndRange(store *seqstore.Store, metric contract.Metric, sample contract.Object, k int, r float64) (*result.Result, error) {
	res := result.New(false)
	err := store.Walk(func(obj contract.Object) bool {
		d, ok := metric.Eval(sample, obj)
		if !ok || d > r {
			return true
		}
		if res.Size() < k {
			res.Add(obj, d)
			return true
		}
		maxKey, _ := res.MaxKey()
		if d < maxKey {
			res.Add(obj, d)
			res.Cut(k)
		}
		return true
	})
	return res, err
}

// KOrRange keeps an adaptive radius dk that starts at +Inf; once the
// result reaches k entries, every insert cuts it back to k and sets dk to
// max(r, current max key) (spec §4.7). Candidates farther than dk are
// skipped. Because of the cut, the result holds at most k objects:
// objects within r beyond the k nearest are not kept.
func KOrRange(store *seqstore.Store, metric contract.Metric, sample contract.Object, k int, r float64) (*result.Result, error) {
	res := result.New(false)
	dk := math.Inf(1)
	err := store.Walk(func(obj contract.Object) bool {
		d, ok := metric.Eval(sample, obj)
		if !ok || d > dk {
			return true
		}
		res.Add(obj, d)
		if res.Size() >= k {
			res.Cut(k)
			maxKey, _ := res.MaxKey()
			if r > maxKey {
				dk = r
			} else {
				dk = maxKey
			}
		}
		return true
	})
	return res, err
}
