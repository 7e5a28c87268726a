package query

import (
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/result"
	"github.com/tuannm99/arboretum/internal/seqstore"
)

// Predicate classifies a candidate object for a pre- or intra-
// constrained query.
type Predicate func(contract.Object) bool

// PreConstrainedKNN filters candidates against predicate before they
// are ever considered for the k-bound, so only matching objects count
// toward k (spec §4.7).
func PreConstrainedKNN(store *seqstore.Store, metric contract.Metric, sample contract.Object, k int, predicate Predicate) (*result.Result, error) {
	res := result.New(false)
	err := store.Walk(func(obj contract.Object) bool {
		if !predicate(obj) {
			return true
		}
		d, ok := metric.Eval(sample, obj)
		if !ok {
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

// boundedMerge combines a satisfying pool (already bounded to at most
// matchCap entries) and a non-satisfying pool (bounded to at most
// nonMatchCap entries) into a k-sized ConstrainedResult, filling as many
// slots as possible from the satisfying pool first — the mechanism the
// four intra-constrained variants below share, differing only in how
// they size matchCap/nonMatchCap.
func boundedMerge(matching, nonMatching *result.Result, k int) *result.ConstrainedResult {
	matchCount := matching.Size()
	if matchCount > k {
		matchCount = k
	}
	nonMatchCount := k - matchCount
	if nonMatchCount > nonMatching.Size() {
		nonMatchCount = nonMatching.Size()
	}
	if nonMatchCount < 0 {
		nonMatchCount = 0
	}

	out := result.NewConstrained(false)
	for i, e := range matching.Entries() {
		if i >= matchCount {
			break
		}
		out.Add(e.Object, e.Key, true)
	}
	for i, e := range nonMatching.Entries() {
		if i >= nonMatchCount {
			break
		}
		out.Add(e.Object, e.Key, false)
	}
	return out
}

// CountGreaterThanOrEqual returns the k nearest objects to sample such
// that at least aggValue of them satisfy predicate: matches are pooled
// uncapped by aggValue (any number may qualify), non-matches are capped
// to k-aggValue, and the final cut favors matches so the aggregate
// relation holds whenever the store holds enough of them (spec §4.7).
func CountGreaterThanOrEqual(store *seqstore.Store, metric contract.Metric, sample contract.Object, k, aggValue int, predicate Predicate) (*result.ConstrainedResult, error) {
	matching := result.New(false)
	nonMatching := result.New(false)
	nonMatchCap := k - aggValue

	err := store.Walk(func(obj contract.Object) bool {
		d, ok := metric.Eval(sample, obj)
		if !ok {
			return true
		}
		if predicate(obj) {
			addBounded(matching, obj, d, k)
		} else if nonMatchCap > 0 {
			addBounded(nonMatching, obj, d, nonMatchCap)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return boundedMerge(matching, nonMatching, k), nil
}

// CountLessThanOrEqual returns the k nearest objects to sample such that
// at most aggValue of them satisfy predicate: matches are capped to
// aggValue (only the closest aggValue representatives are kept), the
// remaining slots are filled from non-matches.
func CountLessThanOrEqual(store *seqstore.Store, metric contract.Metric, sample contract.Object, k, aggValue int, predicate Predicate) (*result.ConstrainedResult, error) {
	matching := result.New(false)
	nonMatching := result.New(false)

	err := store.Walk(func(obj contract.Object) bool {
		d, ok := metric.Eval(sample, obj)
		if !ok {
			return true
		}
		if predicate(obj) {
			if aggValue > 0 {
				addBounded(matching, obj, d, aggValue)
			}
		} else {
			addBounded(nonMatching, obj, d, k)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return boundedMerge(matching, nonMatching, k), nil
}

// addBounded adds (obj, d) to pool if it is not yet at capacity, or if
// it beats the pool's current worst entry, cutting back to cap
// afterward — the same online k-bound rule used throughout this
// package, factored out for the constrained variants' multiple pools.
func addBounded(pool *result.Result, obj contract.Object, d float64, cap int) {
	if cap <= 0 {
		return
	}
	if pool.Size() < cap {
		pool.Add(obj, d)
		return
	}
	maxKey, _ := pool.MaxKey()
	if d < maxKey {
		pool.Add(obj, d)
		pool.Cut(cap)
	}
}

type distinctCandidate struct {
	obj contract.Object
	d   float64
}

// gatherDistinct walks store once, classifying every candidate as the
// current-closest representative of its distinctKey among matches, a
// demoted duplicate of a closer representative sharing that key, or a
// true non-match. The "duplicate secondary key" demotion rule (spec
// §4.7): only a matching object's closest instance per distinctKey ever
// counts toward the aggregate; every other instance sharing that key
// is treated as if it had not matched.
func gatherDistinct(store *seqstore.Store, metric contract.Metric, sample contract.Object, predicate Predicate, distinctKey func(contract.Object) string) (bestByKey map[string]distinctCandidate, demoted, nonMatching []distinctCandidate, err error) {
	bestByKey = make(map[string]distinctCandidate)
	err = store.Walk(func(obj contract.Object) bool {
		d, ok := metric.Eval(sample, obj)
		if !ok {
			return true
		}
		if !predicate(obj) {
			nonMatching = append(nonMatching, distinctCandidate{obj, d})
			return true
		}
		dk := distinctKey(obj)
		cur, exists := bestByKey[dk]
		if !exists {
			bestByKey[dk] = distinctCandidate{obj, d}
			return true
		}
		if d < cur.d {
			demoted = append(demoted, cur)
			bestByKey[dk] = distinctCandidate{obj, d}
		} else {
			demoted = append(demoted, distinctCandidate{obj, d})
		}
		return true
	})
	return bestByKey, demoted, nonMatching, err
}

// CountDistinctGreaterThanOrEqual is CountGreaterThanOrEqual restricted
// to distinct representatives: at least aggValue distinct keys among
// the matches must be represented in the final k.
func CountDistinctGreaterThanOrEqual(store *seqstore.Store, metric contract.Metric, sample contract.Object, k, aggValue int, predicate Predicate, distinctKey func(contract.Object) string) (*result.ConstrainedResult, error) {
	bestByKey, demoted, nonMatch, err := gatherDistinct(store, metric, sample, predicate, distinctKey)
	if err != nil {
		return nil, err
	}

	matching := result.New(false)
	for _, c := range bestByKey {
		matching.Add(c.obj, c.d)
	}
	matching.Cut(k)

	nonMatching := result.New(false)
	for _, c := range demoted {
		nonMatching.Add(c.obj, c.d)
	}
	for _, c := range nonMatch {
		nonMatching.Add(c.obj, c.d)
	}
	nonMatchCap := k - aggValue
	if nonMatchCap < 0 {
		nonMatchCap = 0
	}
	nonMatching.Cut(nonMatchCap)

	return boundedMerge(matching, nonMatching, k), nil
}

// CountDistinctLessThanOrEqual is CountLessThanOrEqual restricted to
// distinct representatives: at most aggValue distinct keys among the
// matches may be represented in the final k.
func CountDistinctLessThanOrEqual(store *seqstore.Store, metric contract.Metric, sample contract.Object, k, aggValue int, predicate Predicate, distinctKey func(contract.Object) string) (*result.ConstrainedResult, error) {
	bestByKey, demoted, nonMatch, err := gatherDistinct(store, metric, sample, predicate, distinctKey)
	if err != nil {
		return nil, err
	}

	matching := result.New(false)
	for _, c := range bestByKey {
		matching.Add(c.obj, c.d)
	}
	if aggValue < 0 {
		aggValue = 0
	}
	matching.Cut(aggValue)

	nonMatching := result.New(false)
	for _, c := range demoted {
		nonMatching.Add(c.obj, c.d)
	}
	for _, c := range nonMatch {
		nonMatching.Add(c.obj, c.d)
	}
	nonMatching.Cut(k)

	return boundedMerge(matching, nonMatching, k), nil
}
