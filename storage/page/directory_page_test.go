package page

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func freshDirectoryPage() *DirectoryPage {
	return NewDirectoryPage(make([]byte, testPageSize), 1)
}

func TestDirectoryPageAppendAndAccessors(t *testing.T) {
	d := freshDirectoryPage()
	idx, err := d.AppendEntry(5, 0, 1000)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, 1, d.EntryCount())
	require.Equal(t, ID(5), d.PageID(0))
	require.Equal(t, int16(0), d.RecordCount(0))
	require.Equal(t, int16(1000), d.FreeCount(0))

	d.SetRecordCount(0, 3)
	d.SetFreeCount(0, 500)
	require.Equal(t, int16(3), d.RecordCount(0))
	require.Equal(t, int16(500), d.FreeCount(0))
}

func TestDirectoryPageMaxEntries(t *testing.T) {
	d := freshDirectoryPage()
	require.Equal(t, (testPageSize-HeaderSize)/dirEntrySize, d.MaxEntries())

	for i := 0; i < d.MaxEntries(); i++ {
		_, err := d.AppendEntry(ID(i), 0, 0)
		require.NoError(t, err)
	}
	_, err := d.AppendEntry(999, 0, 0)
	require.ErrorIs(t, err, ErrDirectoryFull)
}

func TestDirectoryPageCompactDoesNotDecrementEntryCount(t *testing.T) {
	d := freshDirectoryPage()
	d.AppendEntry(10, 1, 100)
	d.AppendEntry(20, 2, 200)
	d.AppendEntry(30, 3, 300)
	require.Equal(t, 3, d.EntryCount())

	d.Compact(0)
	require.Equal(t, 3, d.EntryCount(), "Compact must not decrement entry_count; the caller does")
	require.Equal(t, ID(20), d.PageID(0))
	require.Equal(t, ID(30), d.PageID(1))

	d.SetEntryCount(d.EntryCount() - 1)
	require.Equal(t, 2, d.EntryCount())
}

func TestDirectoryPagePrevNextLinks(t *testing.T) {
	d := freshDirectoryPage()
	require.Equal(t, InvalidID, d.Header().PrevPage())
	require.Equal(t, InvalidID, d.Header().NextPage())

	d.Header().SetNextPage(42)
	require.Equal(t, ID(42), d.Header().NextPage())
}
