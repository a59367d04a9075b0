package page

import "encoding/binary"

// dirEntrySize is the size in bytes of one directory entry: {page_id int32,
// record_count int16, free_count int16}.
const dirEntrySize = 8

// DirectoryPage is a page of entries describing the data pages of a heap
// file, chained prev/next to form the file's directory (spec §4.2).
type DirectoryPage struct {
	buf    []byte
	header Header
}

// MaxEntries returns how many directory entries fit after the shared
// header on a page of the given size.
func MaxEntries(pageSize int) int {
	return (pageSize - HeaderSize) / dirEntrySize
}

// NewDirectoryPage formats buf as a fresh, empty directory page.
func NewDirectoryPage(buf []byte, id ID) *DirectoryPage {
	dp := &DirectoryPage{buf: buf, header: newHeader(buf)}
	dp.header.SetPrevPage(InvalidID)
	dp.header.SetNextPage(InvalidID)
	dp.header.SetCurrentPage(id)
	dp.header.SetPageType(TypeDirectory)
	dp.header.SetSlotCount(0)
	return dp
}

// LoadDirectoryPage wraps an existing, already-formatted directory page
// buffer.
func LoadDirectoryPage(buf []byte) *DirectoryPage {
	return &DirectoryPage{buf: buf, header: newHeader(buf)}
}

func (dp *DirectoryPage) Header() Header { return dp.header }
func (dp *DirectoryPage) Buf() []byte    { return dp.buf }

// EntryCount is an alias for the shared header's slot_count field — spec
// §6.1 notes entry_count IS slot_count on directory pages.
func (dp *DirectoryPage) EntryCount() int { return int(dp.header.SlotCount()) }
func (dp *DirectoryPage) SetEntryCount(n int) {
	dp.header.SetSlotCount(int16(n))
}

// MaxEntries returns how many entries this page's buffer has room for.
func (dp *DirectoryPage) MaxEntries() int { return MaxEntries(len(dp.buf)) }

func (dp *DirectoryPage) entryOffset(i int) int { return HeaderSize + i*dirEntrySize }

// PageID returns the data-page id referenced by entry i.
func (dp *DirectoryPage) PageID(i int) ID {
	off := dp.entryOffset(i)
	return ID(int32(binary.BigEndian.Uint32(dp.buf[off : off+4])))
}

func (dp *DirectoryPage) SetPageID(i int, id ID) {
	off := dp.entryOffset(i)
	binary.BigEndian.PutUint32(dp.buf[off:off+4], uint32(int32(id)))
}

// RecordCount returns the number of non-empty slots entry i's data page
// holds, as last reported to the directory.
func (dp *DirectoryPage) RecordCount(i int) int16 {
	off := dp.entryOffset(i)
	return int16(binary.BigEndian.Uint16(dp.buf[off+4 : off+6]))
}

func (dp *DirectoryPage) SetRecordCount(i int, n int16) {
	off := dp.entryOffset(i)
	binary.BigEndian.PutUint16(dp.buf[off+4:off+6], uint16(n))
}

// FreeCount returns entry i's data page's current free_space.
func (dp *DirectoryPage) FreeCount(i int) int16 {
	off := dp.entryOffset(i)
	return int16(binary.BigEndian.Uint16(dp.buf[off+6 : off+8]))
}

func (dp *DirectoryPage) SetFreeCount(i int, n int16) {
	off := dp.entryOffset(i)
	binary.BigEndian.PutUint16(dp.buf[off+6:off+8], uint16(n))
}

// AppendEntry adds a new trailing entry, failing if the page is already at
// MaxEntries.
func (dp *DirectoryPage) AppendEntry(pageID ID, recordCount, freeCount int16) (int, error) {
	n := dp.EntryCount()
	if n >= dp.MaxEntries() {
		return 0, ErrDirectoryFull
	}
	dp.SetPageID(n, pageID)
	dp.SetRecordCount(n, recordCount)
	dp.SetFreeCount(n, freeCount)
	dp.SetEntryCount(n + 1)
	return n, nil
}

// Compact shifts entries [index+1, entry_count) down by one, removing entry
// index. It does not decrement entry_count — the caller does, matching the
// heap file's entry-removal bookkeeping in spec §4.4.
func (dp *DirectoryPage) Compact(index int) {
	n := dp.EntryCount()
	for i := index + 1; i < n; i++ {
		dp.SetPageID(i-1, dp.PageID(i))
		dp.SetRecordCount(i-1, dp.RecordCount(i))
		dp.SetFreeCount(i-1, dp.FreeCount(i))
	}
}
