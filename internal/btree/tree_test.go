package btree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/btree"
	"github.com/tuannm99/arboretum/internal/bufferpool"
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/contract/fixtures"
	"github.com/tuannm99/arboretum/internal/node"
	"github.com/tuannm99/arboretum/internal/storage"
)

func newPool(t *testing.T) *bufferpool.Pool {
	t.Helper()
	fs := storage.LocalFileSet{Dir: t.TempDir(), Base: "idx"}
	pool, err := bufferpool.Open(fs, storage.MinPageSize, 32)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func newPointObj() contract.Object { return &fixtures.Point{} }

// S1: basic B-tree insert/search/delete over many keys.
func TestBTreeBasicLifecycle(t *testing.T) {
	pool := newPool(t)
	tree, err := btree.Open(pool, node.Int64Codec(), newPointObj, false)
	require.NoError(t, err)

	const n = 200
	for i := int64(0); i < n; i++ {
		require.NoError(t, tree.Insert(i, fixtures.NewPoint(uint64(i), float64(i))))
	}

	for i := int64(0); i < n; i++ {
		objs, err := tree.Search(i)
		require.NoError(t, err)
		require.Len(t, objs, 1)
		require.Equal(t, uint64(i), objs[0].Identifier())
	}

	ok, err := tree.Delete(42, 42)
	require.NoError(t, err)
	require.True(t, ok)

	objs, err := tree.Search(42)
	require.NoError(t, err)
	require.Empty(t, objs)

	ok, err = tree.Delete(42, 42)
	require.NoError(t, err)
	require.False(t, ok)
}

// S2: duplicate keys route into an overflow chain instead of being
// rejected, and every inserted OID is still retrievable by key.
func TestBTreeDuplicateOverflow(t *testing.T) {
	pool := newPool(t)
	tree, err := btree.Open(pool, node.Int64Codec(), newPointObj, true)
	require.NoError(t, err)

	const key = int64(7)
	const dupCount = 50
	for i := 0; i < dupCount; i++ {
		require.NoError(t, tree.Insert(key, fixtures.NewPoint(uint64(i), float64(i))))
	}

	objs, err := tree.Search(key)
	require.NoError(t, err)
	require.Len(t, objs, dupCount)

	seen := make(map[uint64]bool)
	for _, o := range objs {
		seen[o.Identifier()] = true
	}
	require.Len(t, seen, dupCount)

	ok, err := tree.Delete(key, 10)
	require.NoError(t, err)
	require.True(t, ok)

	objs, err = tree.Search(key)
	require.NoError(t, err)
	require.Len(t, objs, dupCount-1)
}

func TestBTreeDuplicateRejectedWhenDisallowed(t *testing.T) {
	pool := newPool(t)
	tree, err := btree.Open(pool, node.Int64Codec(), newPointObj, false)
	require.NoError(t, err)

	require.NoError(t, tree.Insert(1, fixtures.NewPoint(1, 1)))
	err = tree.Insert(1, fixtures.NewPoint(2, 2))
	require.ErrorIs(t, err, btree.ErrDuplication)
}
