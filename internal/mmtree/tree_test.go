package mmtree_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/bufferpool"
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/contract/fixtures"
	"github.com/tuannm99/arboretum/internal/mmtree"
	"github.com/tuannm99/arboretum/internal/storage"
)

var metric = contract.Metric{Distance: fixtures.Euclidean}

func newTree(t *testing.T) *mmtree.Tree {
	t.Helper()
	fs := storage.LocalFileSet{Dir: t.TempDir(), Base: "mm"}
	pool, err := bufferpool.Open(fs, storage.MinPageSize, 32)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	tree, err := mmtree.Open(pool, metric, func() contract.Object { return &fixtures.Point{} })
	require.NoError(t, err)
	return tree
}

func gridPoints(n int) []*fixtures.Point {
	pts := make([]*fixtures.Point, n)
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < n; i++ {
		pts[i] = fixtures.NewPoint(uint64(i+1), float64(rnd.Intn(1000)), float64(rnd.Intn(1000)))
	}
	return pts
}

func bruteRange(pts []*fixtures.Point, sample contract.Object, r float64) map[uint64]bool {
	out := make(map[uint64]bool)
	for _, p := range pts {
		if fixtures.Euclidean(sample, p) <= r {
			out[p.OID] = true
		}
	}
	return out
}

// Insert enough objects to force several rebalances (MaxRepresentatives
// is 16), then confirm Range against a brute-force scan agrees exactly.
func TestMMTreeRangeMatchesGroundTruth(t *testing.T) {
	tree := newTree(t)
	pts := gridPoints(120)
	for _, p := range pts {
		require.NoError(t, tree.Insert(p))
	}

	sample := fixtures.NewPoint(0, 500, 500)
	const r = 200.0

	want := bruteRange(pts, sample, r)

	res, err := tree.Range(sample, r)
	require.NoError(t, err)

	got := make(map[uint64]bool)
	for _, e := range res.Entries() {
		got[e.Object.Identifier()] = true
	}
	require.Equal(t, want, got)
}

func TestMMTreeKNNReturnsClosestFirst(t *testing.T) {
	tree := newTree(t)
	pts := gridPoints(80)
	for _, p := range pts {
		require.NoError(t, tree.Insert(p))
	}

	sample := fixtures.NewPoint(0, 500, 500)

	res, err := tree.KNN(sample, 5)
	require.NoError(t, err)
	require.Equal(t, 5, res.Size())

	entries := res.Entries()
	for i := 1; i < len(entries); i++ {
		require.LessOrEqual(t, entries[i-1].Key, entries[i].Key)
	}

	// cross-check against brute force: the reported 5th distance must be
	// the true 5th-nearest distance (the tree's pruning must not miss a
	// closer point).
	dists := make([]float64, len(pts))
	for i, p := range pts {
		dists[i] = fixtures.Euclidean(sample, p)
	}
	for i := 0; i < len(dists); i++ {
		for j := i + 1; j < len(dists); j++ {
			if dists[j] < dists[i] {
				dists[i], dists[j] = dists[j], dists[i]
			}
		}
	}
	require.InDelta(t, dists[4], entries[4].Key, 1e-9)
}

func TestMMTreeInsertSingleObjectIsFindableByRange(t *testing.T) {
	tree := newTree(t)
	p := fixtures.NewPoint(1, 10, 10)
	require.NoError(t, tree.Insert(p))

	res, err := tree.Range(fixtures.NewPoint(0, 10, 10), 0.1)
	require.NoError(t, err)
	require.Equal(t, 1, res.Size())
	require.Equal(t, uint64(1), res.Entries()[0].Object.Identifier())
}
