package arboretum_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum"
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/contract/fixtures"
	"github.com/tuannm99/arboretum/internal/node"
	"github.com/tuannm99/arboretum/internal/storage"
)

func newPoint() contract.Object { return &fixtures.Point{} }

func TestStoreInsertAndQueryAcrossAllPaths(t *testing.T) {
	metric := arboretum.Metric{Distance: fixtures.Euclidean}
	store, err := arboretum.Open[int64](t.TempDir(), "demo", storage.MinPageSize, 32, node.Int64Codec(), newPoint, metric, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for i := int64(1); i <= 20; i++ {
		p := fixtures.NewPoint(uint64(i), float64(i))
		require.NoError(t, store.Insert(i, p))
	}

	objs, err := store.Index.Search(5)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	require.Equal(t, uint64(5), objs[0].Identifier())

	sample := fixtures.NewPoint(0, 0)
	res, err := store.Range(sample, 3)
	require.NoError(t, err)
	require.Equal(t, 3, res.Size())

	knn, err := store.KNN(sample, 3, false, true)
	require.NoError(t, err)
	require.Equal(t, 3, knn.Size())
}
