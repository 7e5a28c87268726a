package query

import (
	"math"

	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/result"
	"github.com/tuannm99/arboretum/internal/seqstore"
)

// Aggregator combines the per-sample distances of a grouped query (spec
// §4.7's SUM_*/MAX_*/ALL_* family) into the single key a candidate is
// ranked and bounded by.
type Aggregator int

const (
	// AggSum sums the per-sample distances.
	AggSum Aggregator = iota
	// AggMax takes the largest per-sample distance.
	AggMax
	// AggAll combines per-sample distances as a Euclidean norm, so a
	// candidate close to every sample in the group outranks one that is
	// very close to one sample and far from the rest.
	AggAll
)

func aggregate(distances []float64, agg Aggregator) float64 {
	switch agg {
	case AggMax:
		m := 0.0
		for _, d := range distances {
			if d > m {
				m = d
			}
		}
		return m
	case AggAll:
		sumSq := 0.0
		for _, d := range distances {
			sumSq += d * d
		}
		return math.Sqrt(sumSq)
	default: // AggSum
		sum := 0.0
		for _, d := range distances {
			sum += d
		}
		return sum
	}
}

// groupKey evaluates metric against every sample in samples and combines
// the distances with agg, reporting false if any evaluation is outside
// the metric's domain.
func groupKey(metric contract.Metric, samples []contract.Object, obj contract.Object, agg Aggregator) (float64, bool) {
	distances := make([]float64, len(samples))
	for i, s := range samples {
		d, ok := metric.Eval(s, obj)
		if !ok {
			return 0, false
		}
		distances[i] = d
	}
	return aggregate(distances, agg), true
}

// GroupedRange is Range generalized to a sample_list: a candidate is kept
// when its aggregated distance to every sample is within r.
func GroupedRange(store *seqstore.Store, metric contract.Metric, samples []contract.Object, agg Aggregator, r float64) (*result.Result, error) {
	res := result.New(false)
	err := store.Walk(func(obj contract.Object) bool {
		if key, ok := groupKey(metric, samples, obj, agg); ok && key <= r {
			res.Add(obj, key)
		}
		return true
	})
	return res, err
}

// GroupedKNN is KNN generalized to a sample_list, ranking candidates by
// their aggregated distance to every sample.
func GroupedKNN(store *seqstore.Store, metric contract.Metric, samples []contract.Object, agg Aggregator, k int) (*result.Result, error) {
	res := result.New(false)
	err := store.Walk(func(obj contract.Object) bool {
		key, ok := groupKey(metric, samples, obj, agg)
		if !ok {
			return true
		}
		if res.Size() < k {
			res.Add(obj, key)
			return true
		}
		maxKey, _ := res.MaxKey()
		if key < maxKey {
			res.Add(obj, key)
			res.Cut(k)
		}
		return true
	})
	return res, err
}
