package seqstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/bufferpool"
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/contract/fixtures"
	"github.com/tuannm99/arboretum/internal/seqstore"
	"github.com/tuannm99/arboretum/internal/storage"
)

func newPointObj() contract.Object { return &fixtures.Point{} }

// S3: sequential insert followed by a full-chain walk visits every
// stored object.
func TestSeqStoreWalkVisitsEverything(t *testing.T) {
	fs := storage.LocalFileSet{Dir: t.TempDir(), Base: "seq"}
	pool, err := bufferpool.Open(fs, storage.MinPageSize, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	store, err := seqstore.Open(pool, newPointObj)
	require.NoError(t, err)

	const n = 300
	for i := uint64(0); i < n; i++ {
		require.NoError(t, store.Insert(fixtures.NewPoint(i, float64(i))))
	}

	seen := make(map[uint64]bool)
	err = store.Walk(func(obj contract.Object) bool {
		seen[obj.Identifier()] = true
		return true
	})
	require.NoError(t, err)
	require.Len(t, seen, n)
}

func TestSeqStoreWalkStopsEarly(t *testing.T) {
	fs := storage.LocalFileSet{Dir: t.TempDir(), Base: "seq"}
	pool, err := bufferpool.Open(fs, storage.MinPageSize, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	store, err := seqstore.Open(pool, newPointObj)
	require.NoError(t, err)

	for i := uint64(0); i < 50; i++ {
		require.NoError(t, store.Insert(fixtures.NewPoint(i, float64(i))))
	}

	visited := 0
	err = store.Walk(func(obj contract.Object) bool {
		visited++
		return visited < 5
	})
	require.NoError(t, err)
	require.Equal(t, 5, visited)
}
