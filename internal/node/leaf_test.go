package node_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/contract/fixtures"
	"github.com/tuannm99/arboretum/internal/node"
	"github.com/tuannm99/arboretum/internal/storage"
)

func newTestLeaf(t *testing.T) node.LeafNode[int64] {
	t.Helper()
	page := storage.NewPage(1, storage.MinPageSize)
	return node.NewLeafNode(page, node.Int64Codec())
}

func mustInsert(t *testing.T, leaf node.LeafNode[int64], key int64, oid uint64) {
	t.Helper()
	obj := fixtures.NewPoint(oid, float64(key))
	require.Equal(t, node.InsertSuccess, leaf.InsertLocal(key, obj.Serialize(), true))
}

// moveFromMedian mirrors the move tree.split performs: every local entry
// from median onward is relocated into dst.
func moveFromMedian(leaf, dst node.LeafNode[int64], median int) {
	count := leaf.NumEntries()
	type moved struct {
		key int64
		obj []byte
	}
	items := make([]moved, 0, count-median)
	for i := median; i < count; i++ {
		items = append(items, moved{key: leaf.EntryKey(i), obj: append([]byte(nil), leaf.ObjectAt(i)...)})
	}
	for range items {
		leaf.DeleteLocal(median)
	}
	for _, it := range items {
		dst.InsertLocal(it.key, it.obj, true)
	}
}

// A duplicate run of key 10 occupies indices 3-5 of an 8-entry leaf,
// closer to the computed midpoint (idx=4) on the down side (distance 1)
// than on the up side (true distance 2, since the up-side split point is
// up+1). FindMedian must prefer the closer down side.
func TestLeafFindMedianPrefersCloserSide(t *testing.T) {
	leaf := newTestLeaf(t)
	keys := []int64{1, 2, 3, 10, 10, 10, 20, 30}
	for i, k := range keys {
		mustInsert(t, leaf, k, uint64(i))
	}

	require.Equal(t, 3, leaf.FindMedian())
}

// When a duplicate run spans both the start and the computed end of the
// leaf (every local entry shares one key), neither neighbor can absorb
// the run without emptying one side entirely; FindMedian must fall back
// to the unnudged midpoint rather than returning 0.
func TestLeafFindMedianAllDuplicatesFallsBackToMidpoint(t *testing.T) {
	leaf := newTestLeaf(t)
	for i := 0; i < 8; i++ {
		mustInsert(t, leaf, 7, uint64(i))
	}

	median := leaf.FindMedian()
	require.Greater(t, median, 0)
	require.Less(t, median, leaf.NumEntries())
	require.Equal(t, 4, median)
}

// A split at the median FindMedian picks must leave at least one entry
// on each side, even in the all-duplicates edge case.
func TestLeafSplitKeepsBothSidesNonEmpty(t *testing.T) {
	cases := []struct {
		name string
		keys []int64
	}{
		{"duplicate run near midpoint", []int64{1, 2, 3, 10, 10, 10, 20, 30}},
		{"duplicate run spans both boundaries", []int64{7, 7, 7, 7, 7, 7, 7, 7}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			leaf := newTestLeaf(t)
			for i, k := range c.keys {
				mustInsert(t, leaf, k, uint64(i))
			}

			newLeaf := newTestLeaf(t)
			median := leaf.FindMedian()
			moveFromMedian(leaf, newLeaf, median)

			require.Greater(t, leaf.NumEntries(), 0, "original leaf must keep at least one entry")
			require.Greater(t, newLeaf.NumEntries(), 0, "new leaf must receive at least one entry")
			require.Equal(t, len(c.keys), leaf.NumEntries()+newLeaf.NumEntries())
		})
	}
}
