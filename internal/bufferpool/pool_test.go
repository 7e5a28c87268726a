package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/storage"
)

func newTestPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	fs := storage.LocalFileSet{Dir: t.TempDir(), Base: "testtable"}
	pool, err := Open(fs, storage.MinPageSize, capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestPoolNewPagePinsAndTracks(t *testing.T) {
	pool := newTestPool(t, 4)

	page1, err := pool.NewPage()
	require.NoError(t, err)
	require.NotNil(t, page1)

	idx, ok := pool.pageTable[page1.ID()]
	require.True(t, ok)
	require.Equal(t, int32(1), pool.frames[idx].pin.Get())

	page2, err := pool.GetPage(page1.ID())
	require.NoError(t, err)
	require.Same(t, page1, page2)
	require.Equal(t, int32(2), pool.frames[idx].pin.Get())

	require.NoError(t, pool.ReleasePage(page2))
	require.Equal(t, int32(1), pool.frames[idx].pin.Get())
}

func TestPoolEvictsUnpinnedFrameWhenFull(t *testing.T) {
	pool := newTestPool(t, 1)

	page1, err := pool.NewPage()
	require.NoError(t, err)
	require.NoError(t, pool.ReleasePage(page1))

	page2, err := pool.NewPage()
	require.NoError(t, err)
	require.NotEqual(t, page1.ID(), page2.ID())

	_, stillResident := pool.pageTable[page1.ID()]
	require.False(t, stillResident)
}

func TestPoolNewPageFailsWhenAllFramesPinned(t *testing.T) {
	pool := newTestPool(t, 1)

	_, err := pool.NewPage()
	require.NoError(t, err)

	_, err = pool.NewPage()
	require.ErrorIs(t, err, ErrNoFreeFrame)
}

func TestPoolDisposePageRecyclesID(t *testing.T) {
	pool := newTestPool(t, 4)

	page, err := pool.NewPage()
	require.NoError(t, err)
	id := page.ID()
	require.NoError(t, pool.DisposePage(page))

	page2, err := pool.NewPage()
	require.NoError(t, err)
	require.Equal(t, id, page2.ID(), "freed id should be recycled MRU-first")
}

func TestPoolDirtyPageSurvivesEvictionAndReload(t *testing.T) {
	pool := newTestPool(t, 1)

	page, err := pool.NewPage()
	require.NoError(t, err)
	id := page.ID()
	copy(page.Bytes(), []byte("hello"))
	page.MarkDirty()
	require.NoError(t, pool.ReleasePage(page))

	// force eviction of id's frame by allocating another page in the
	// single-frame pool, then unpin it so the reload has a frame to use.
	other, err := pool.NewPage()
	require.NoError(t, err)
	require.NoError(t, pool.ReleasePage(other))

	reloaded, err := pool.GetPage(id)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), reloaded.Bytes()[:5])
}
