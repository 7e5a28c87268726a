package query_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/bufferpool"
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/contract/fixtures"
	"github.com/tuannm99/arboretum/internal/query"
	"github.com/tuannm99/arboretum/internal/seqstore"
	"github.com/tuannm99/arboretum/internal/storage"
)

func newStore(t *testing.T, base string, points ...*fixtures.Point) *seqstore.Store {
	t.Helper()
	fs := storage.LocalFileSet{Dir: t.TempDir(), Base: base}
	pool, err := bufferpool.Open(fs, storage.MinPageSize, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	store, err := seqstore.Open(pool, func() contract.Object { return &fixtures.Point{} })
	require.NoError(t, err)
	for _, p := range points {
		require.NoError(t, store.Insert(p))
	}
	return store
}

var metric = contract.Metric{Distance: fixtures.Euclidean}

func TestRangeAndRing(t *testing.T) {
	store := newStore(t, "s",
		fixtures.NewPoint(1, 0),
		fixtures.NewPoint(2, 1),
		fixtures.NewPoint(3, 2),
		fixtures.NewPoint(4, 3),
	)
	sample := fixtures.NewPoint(0, 0)

	res, err := query.Range(store, metric, sample, 2)
	require.NoError(t, err)
	require.Equal(t, 3, res.Size())

	ring, err := query.Ring(store, metric, sample, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 1, ring.Size())
	require.Equal(t, uint64(3), ring.Entries()[0].Object.Identifier())
}

// S4: kNN with tiebreaker — distances {1,2,2,3} for objects A,B,C,D, the
// 2-nearest result must deterministically include the lower-OID object
// among the tied pair rather than an arbitrary one.
func TestKNNTiebreakerDeterministic(t *testing.T) {
	a := fixtures.NewPoint(1, 1)
	b := fixtures.NewPoint(2, 2)
	c := fixtures.NewPoint(3, 2)
	d := fixtures.NewPoint(4, 3)
	store := newStore(t, "s", a, b, c, d)
	sample := fixtures.NewPoint(0, 0)

	res, err := query.KNN(store, metric, sample, 2, true, true)
	require.NoError(t, err)
	require.Equal(t, 2, res.Size())
	require.Equal(t, []uint64{1, 2}, []uint64{res.Entries()[0].Object.Identifier(), res.Entries()[1].Object.Identifier()})
}

func TestKNNWithoutTiebreakerCutsMidTie(t *testing.T) {
	a := fixtures.NewPoint(1, 1)
	b := fixtures.NewPoint(2, 2)
	c := fixtures.NewPoint(3, 2)
	store := newStore(t, "s", a, b, c)
	sample := fixtures.NewPoint(0, 0)

	res, err := query.KNN(store, metric, sample, 2, false, false)
	require.NoError(t, err)
	require.Equal(t, 2, res.Size())
	require.Equal(t, uint64(1), res.Entries()[0].Object.Identifier())
}

func TestKFarthest(t *testing.T) {
	store := newStore(t, "s",
		fixtures.NewPoint(1, 0),
		fixtures.NewPoint(2, 1),
		fixtures.NewPoint(3, 5),
	)
	sample := fixtures.NewPoint(0, 0)

	res, err := query.KFarthest(store, metric, sample, 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.Size())
	require.Equal(t, uint64(3), res.Entries()[0].Object.Identifier())
}

func TestKAndRange(t *testing.T) {
	store := newStore(t, "s",
		fixtures.NewPoint(1, 0),
		fixtures.NewPoint(2, 1),
		fixtures.NewPoint(3, 10),
	)
	sample := fixtures.NewPoint(0, 0)

	res, err := query.KAndRange(store, metric, sample, 5, 2)
	require.NoError(t, err)
	require.Equal(t, 2, res.Size())
}

func TestKOrRange(t *testing.T) {
	store := newStore(t, "s",
		fixtures.NewPoint(1, 0),
		fixtures.NewPoint(2, 1),
		fixtures.NewPoint(3, 2),
		fixtures.NewPoint(4, 100),
	)
	sample := fixtures.NewPoint(0, 0)

	res, err := query.KOrRange(store, metric, sample, 2, 2.5)
	require.NoError(t, err)
	require.Equal(t, 2, res.Size())
	require.Equal(t, uint64(1), res.Entries()[0].Object.Identifier())
	require.Equal(t, uint64(2), res.Entries()[1].Object.Identifier())
}

func TestGroupedKNN(t *testing.T) {
	store := newStore(t, "s",
		fixtures.NewPoint(1, 1, 1),
		fixtures.NewPoint(2, 0, 5),
		fixtures.NewPoint(3, 10, 10),
	)
	samples := []contract.Object{fixtures.NewPoint(0, 0, 0), fixtures.NewPoint(0, 0, 10)}

	res, err := query.GroupedKNN(store, metric, samples, query.AggSum, 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.Size())
	require.Equal(t, uint64(2), res.Entries()[0].Object.Identifier())
}

// S6: range-join must not double-count a qualifying (left, right) pair.
func TestRangeJoinDeduplicates(t *testing.T) {
	left := newStore(t, "l", fixtures.NewPoint(1, 0))
	right := newStore(t, "r", fixtures.NewPoint(10, 0), fixtures.NewPoint(11, 1))

	triples, err := query.RangeJoin(left, right, metric, 5)
	require.NoError(t, err)
	require.Len(t, triples, 2)

	seen := make(map[[2]uint64]bool)
	for _, tr := range triples {
		key := [2]uint64{tr.Left.Identifier(), tr.Right.Identifier()}
		require.False(t, seen[key], "triple emitted more than once")
		seen[key] = true
	}
}

func TestKNNJoinPerLeftBound(t *testing.T) {
	left := newStore(t, "l", fixtures.NewPoint(1, 0), fixtures.NewPoint(2, 100))
	right := newStore(t, "r", fixtures.NewPoint(10, 0), fixtures.NewPoint(11, 1), fixtures.NewPoint(12, 2))

	out, err := query.KNNJoin(left, right, metric, 1)
	require.NoError(t, err)
	require.Len(t, out[1], 1)
	require.Equal(t, uint64(10), out[1][0].Right.Identifier())
	require.Len(t, out[2], 1)
}

func TestKClosestJoinGlobalBound(t *testing.T) {
	left := newStore(t, "l", fixtures.NewPoint(1, 0))
	right := newStore(t, "r", fixtures.NewPoint(10, 0), fixtures.NewPoint(11, 1), fixtures.NewPoint(12, 100))

	best, err := query.KClosestJoin(left, right, metric, 2)
	require.NoError(t, err)
	require.Len(t, best, 2)
	require.Equal(t, uint64(10), best[0].Right.Identifier())
	require.Equal(t, uint64(11), best[1].Right.Identifier())
}

func TestPreConstrainedKNN(t *testing.T) {
	even := func(o contract.Object) bool { return o.Identifier()%2 == 0 }
	store := newStore(t, "s",
		fixtures.NewPoint(1, 0),
		fixtures.NewPoint(2, 1),
		fixtures.NewPoint(3, 2),
		fixtures.NewPoint(4, 3),
	)
	sample := fixtures.NewPoint(0, 0)

	res, err := query.PreConstrainedKNN(store, metric, sample, 2, even)
	require.NoError(t, err)
	require.Equal(t, 2, res.Size())
	require.Equal(t, uint64(2), res.Entries()[0].Object.Identifier())
	require.Equal(t, uint64(4), res.Entries()[1].Object.Identifier())
}

// S5: intra-constrained kNN — the aggregate relation holds whenever the
// store has enough qualifying/non-qualifying candidates, and
// |matching|+|non_matching| never exceeds k.
func TestCountGreaterThanOrEqual(t *testing.T) {
	even := func(o contract.Object) bool { return o.Identifier()%2 == 0 }
	store := newStore(t, "s",
		fixtures.NewPoint(1, 0),
		fixtures.NewPoint(2, 1),
		fixtures.NewPoint(3, 2),
		fixtures.NewPoint(4, 3),
		fixtures.NewPoint(5, 4),
		fixtures.NewPoint(6, 5),
	)
	sample := fixtures.NewPoint(0, 0)

	cr, err := query.CountGreaterThanOrEqual(store, metric, sample, 4, 3, even)
	require.NoError(t, err)
	require.Equal(t, 4, cr.Size())
	require.GreaterOrEqual(t, cr.Satisfying().Size(), 3)
	require.LessOrEqual(t, cr.Satisfying().Size()+cr.NotSatisfying().Size(), 4)
}

func TestCountLessThanOrEqual(t *testing.T) {
	even := func(o contract.Object) bool { return o.Identifier()%2 == 0 }
	store := newStore(t, "s",
		fixtures.NewPoint(1, 0),
		fixtures.NewPoint(2, 1),
		fixtures.NewPoint(3, 2),
		fixtures.NewPoint(4, 3),
		fixtures.NewPoint(5, 4),
		fixtures.NewPoint(6, 5),
	)
	sample := fixtures.NewPoint(0, 0)

	cr, err := query.CountLessThanOrEqual(store, metric, sample, 4, 1, even)
	require.NoError(t, err)
	require.Equal(t, 4, cr.Size())
	require.LessOrEqual(t, cr.Satisfying().Size(), 1)
}

func TestCountDistinctGreaterThanOrEqual(t *testing.T) {
	keyA := func(o contract.Object) string {
		if o.Identifier()%2 == 0 {
			return "grp"
		}
		return "other"
	}
	matchEven := func(o contract.Object) bool { return o.Identifier()%2 == 0 }
	store := newStore(t, "s",
		fixtures.NewPoint(2, 0),
		fixtures.NewPoint(4, 1),
		fixtures.NewPoint(6, 2),
		fixtures.NewPoint(1, 3),
		fixtures.NewPoint(3, 4),
	)
	sample := fixtures.NewPoint(0, 0)

	cr, err := query.CountDistinctGreaterThanOrEqual(store, metric, sample, 3, 1, matchEven, keyA)
	require.NoError(t, err)
	require.LessOrEqual(t, cr.Size(), 3)
	// every even object shares distinctKey "grp", so only one of them can
	// count toward the aggregate no matter how many are closest.
	require.LessOrEqual(t, cr.Satisfying().Size(), 1)
}

func TestCountDistinctLessThanOrEqual(t *testing.T) {
	keyA := func(o contract.Object) string {
		if o.Identifier()%2 == 0 {
			return "grp"
		}
		return "other"
	}
	matchEven := func(o contract.Object) bool { return o.Identifier()%2 == 0 }
	store := newStore(t, "s",
		fixtures.NewPoint(2, 0),
		fixtures.NewPoint(4, 1),
		fixtures.NewPoint(1, 2),
		fixtures.NewPoint(3, 3),
	)
	sample := fixtures.NewPoint(0, 0)

	cr, err := query.CountDistinctLessThanOrEqual(store, metric, sample, 3, 0, matchEven, keyA)
	require.NoError(t, err)
	require.Equal(t, 0, cr.Satisfying().Size())
}
