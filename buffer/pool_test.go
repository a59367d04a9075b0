package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xmysql-server/minibase/storage/disk"
	"github.com/xmysql-server/minibase/storage/page"
)

const testPageSize = 1024

func newTestPool(t *testing.T, numFrames int) (*Pool, *disk.FileManager) {
	t.Helper()
	dm, err := disk.Open(t.TempDir(), "heap.db", testPageSize)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return New(dm, numFrames, testPageSize), dm
}

func allocBlank(t *testing.T, dm *disk.FileManager) page.ID {
	t.Helper()
	id, err := dm.AllocatePage(1)
	require.NoError(t, err)
	return id
}

func TestPoolPinMissReadsFromDisk(t *testing.T) {
	pool, dm := newTestPool(t, 2)
	id := allocBlank(t, dm)

	want := make([]byte, testPageSize)
	want[0] = 0xAB
	require.NoError(t, dm.WritePage(id, want))

	buf, err := pool.Pin(id, nil, DiskIO)
	require.NoError(t, err)
	require.Equal(t, want, buf)
	require.NoError(t, pool.Unpin(id, false))
}

func TestPoolPinHitIncrementsPinCount(t *testing.T) {
	pool, dm := newTestPool(t, 2)
	id := allocBlank(t, dm)

	_, err := pool.Pin(id, nil, DiskIO)
	require.NoError(t, err)
	_, err = pool.Pin(id, nil, DiskIO)
	require.NoError(t, err)

	require.NoError(t, pool.Unpin(id, false))
	require.NoError(t, pool.Unpin(id, false))
	err = pool.Unpin(id, false)
	require.ErrorIs(t, err, ErrNotPinned)
}

func TestPoolMemCopyOnResidentPinnedFails(t *testing.T) {
	pool, dm := newTestPool(t, 2)
	id := allocBlank(t, dm)

	_, err := pool.Pin(id, nil, DiskIO)
	require.NoError(t, err)

	_, err = pool.Pin(id, make([]byte, testPageSize), MemCopy)
	require.ErrorIs(t, err, ErrArgument)
}

func TestPoolSinglFrameEvictsOnSecondPin(t *testing.T) {
	pool, dm := newTestPool(t, 1)
	a := allocBlank(t, dm)
	b := allocBlank(t, dm)

	bufA, err := pool.Pin(a, nil, DiskIO)
	require.NoError(t, err)
	bufA[0] = 0xCC
	require.NoError(t, pool.Unpin(a, true))

	_, err = pool.Pin(b, nil, DiskIO)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(b, false))

	bufA2, err := pool.Pin(a, nil, DiskIO)
	require.NoError(t, err)
	require.Equal(t, byte(0xCC), bufA2[0], "evicted dirty frame must have been written back")
	require.NoError(t, pool.Unpin(a, false))
}

func TestPoolSingleFramePinTwiceThenExhausted(t *testing.T) {
	pool, dm := newTestPool(t, 1)
	a := allocBlank(t, dm)
	b := allocBlank(t, dm)

	_, err := pool.Pin(a, nil, DiskIO)
	require.NoError(t, err)
	_, err = pool.Pin(a, nil, DiskIO)
	require.NoError(t, err)

	_, err = pool.Pin(b, nil, DiskIO)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestPoolUnpinNotResident(t *testing.T) {
	pool, _ := newTestPool(t, 1)
	err := pool.Unpin(42, false)
	require.ErrorIs(t, err, ErrNotResident)
}

func TestPoolFreePagePinnedFails(t *testing.T) {
	pool, dm := newTestPool(t, 1)
	id := allocBlank(t, dm)
	_, err := pool.Pin(id, nil, DiskIO)
	require.NoError(t, err)

	err = pool.FreePage(id)
	require.ErrorIs(t, err, ErrPagePinned)

	require.NoError(t, pool.Unpin(id, false))
	require.NoError(t, pool.FreePage(id))
}

func TestPoolFreePageThenReallocateSameIDMemCopyPin(t *testing.T) {
	// The disk manager recycles freed ids LIFO, so freeing a resident,
	// unpinned page and immediately allocating a new one must not leave a
	// ghost frame behind: the recycled id's MEM_COPY pin (as NewPage does)
	// must install the new caller-supplied bytes, not fail because the old
	// frame is still marked resident.
	pool, dm := newTestPool(t, 1)
	id := allocBlank(t, dm)

	buf, err := pool.Pin(id, nil, DiskIO)
	require.NoError(t, err)
	buf[0] = 0xEE
	require.NoError(t, pool.Unpin(id, true))

	require.NoError(t, pool.FreePage(id))

	fresh := make([]byte, testPageSize)
	fresh[0] = 0x11
	newID, newBuf, err := pool.NewPage(fresh, 1)
	require.NoError(t, err)
	require.Equal(t, id, newID, "disk manager is expected to recycle the freed id LIFO")
	require.Equal(t, byte(0x11), newBuf[0], "ghost frame must not mask the fresh MEM_COPY contents")
	require.NoError(t, pool.Unpin(newID, false))
}

func TestPoolNewPageExhaustedWithAllFramesPinned(t *testing.T) {
	pool, dm := newTestPool(t, 3)
	for i := 0; i < 3; i++ {
		id := allocBlank(t, dm)
		_, err := pool.Pin(id, nil, DiskIO)
		require.NoError(t, err)
	}

	_, _, err := pool.NewPage(make([]byte, testPageSize), 1)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestPoolFlushAllPagesIsIdempotent(t *testing.T) {
	pool, dm := newTestPool(t, 2)
	id := allocBlank(t, dm)

	buf, err := pool.Pin(id, nil, DiskIO)
	require.NoError(t, err)
	buf[0] = 0x42
	require.NoError(t, pool.Unpin(id, true))

	require.NoError(t, pool.FlushAllPages())
	s1 := pool.Stats()
	require.NoError(t, pool.FlushAllPages())
	s2 := pool.Stats()
	require.Equal(t, s1.Writes, s2.Writes, "second flush_all must write nothing new")
}

func TestPoolFlushPageNotResident(t *testing.T) {
	pool, _ := newTestPool(t, 1)
	err := pool.FlushPage(99)
	require.ErrorIs(t, err, ErrNotResident)
}
