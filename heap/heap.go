// Package heap implements the heap file of spec.md §4.4: a named or
// temporary collection of data pages addressed through a directory chain,
// built entirely on top of the buffer pool.
package heap

import (
	"github.com/pkg/errors"

	"github.com/xmysql-server/minibase/buffer"
	"github.com/xmysql-server/minibase/logger"
	"github.com/xmysql-server/minibase/storage/disk"
	"github.com/xmysql-server/minibase/storage/page"
)

// HeapFile is a collection of records spread across data pages, indexed by
// a chain of directory pages starting at head. A HeapFile with an empty
// name is temporary: nothing registers it with the disk manager, so it
// disappears once DeleteFile is called (or is simply never persisted if
// the process exits first).
type HeapFile struct {
	name     string
	bp       *buffer.Pool
	disk     disk.Manager
	pageSize int
	head     page.ID
}

// Open resolves name via the disk manager's file-entry table. If name is
// already registered, the existing chain is opened at its recorded head.
// Otherwise (named-but-absent, or name == "" for a temporary file) a fresh,
// empty directory page is created and becomes the head; if name is
// non-empty it is registered against that head.
func Open(bp *buffer.Pool, d disk.Manager, name string) (*HeapFile, error) {
	if name != "" {
		if id, ok, err := d.GetFileEntry(name); err != nil {
			return nil, errors.Wrapf(err, "heap: look up %q", name)
		} else if ok {
			logger.Debugf("heap: opened %q at directory head %d", name, id)
			return &HeapFile{name: name, bp: bp, disk: d, pageSize: bp.PageSize(), head: id}, nil
		}
	}

	blank := make([]byte, bp.PageSize())
	id, buf, err := bp.NewPage(blank, 1)
	if err != nil {
		return nil, errors.Wrap(err, "heap: create directory head")
	}
	page.NewDirectoryPage(buf, id)
	if err := bp.Unpin(id, true); err != nil {
		return nil, err
	}

	if name != "" {
		if err := d.AddFileEntry(name, id); err != nil {
			_ = bp.FreePage(id)
			return nil, errors.Wrapf(err, "heap: register %q", name)
		}
	}
	logger.Debugf("heap: created %q with directory head %d", name, id)
	return &HeapFile{name: name, bp: bp, disk: d, pageSize: bp.PageSize(), head: id}, nil
}

// Name returns the registered name, or "" for a temporary heap file.
func (h *HeapFile) Name() string { return h.name }

// HeadPageID returns the directory chain's head page id.
func (h *HeapFile) HeadPageID() page.ID { return h.head }

// Insert places data on a data page with enough room, allocating a new one
// if the chain has none, and returns its RID.
func (h *HeapFile) Insert(data []byte) (page.RID, error) {
	if page.HeaderSize+4+len(data) > h.pageSize {
		return page.RID{}, ErrRecordTooLarge
	}

	for {
		rid, ok, err := h.tryInsertExisting(data)
		if err != nil {
			return page.RID{}, err
		}
		if ok {
			return rid, nil
		}
		if err := h.allocateDataPageAndAppendEntry(); err != nil {
			return page.RID{}, err
		}
	}
}

// tryInsertExisting walks the directory chain for an entry whose data page
// reports enough free space, inserts into it, and updates the entry. An
// entry's free_count already reserves room for one more slot descriptor, so
// it only has to cover the record bytes themselves.
func (h *HeapFile) tryInsertExisting(data []byte) (page.RID, bool, error) {
	need := int16(len(data))

	dirID := h.head
	for dirID != page.InvalidID {
		dirBuf, err := h.bp.Pin(dirID, nil, buffer.DiskIO)
		if err != nil {
			return page.RID{}, false, err
		}
		dp := page.LoadDirectoryPage(dirBuf)

		for i := 0; i < dp.EntryCount(); i++ {
			if dp.FreeCount(i) < need {
				continue
			}
			dataPageID := dp.PageID(i)
			dataBuf, err := h.bp.Pin(dataPageID, nil, buffer.DiskIO)
			if err != nil {
				_ = h.bp.Unpin(dirID, false)
				return page.RID{}, false, err
			}
			ddp := page.LoadDataPage(dataBuf)
			rid, err := ddp.InsertRecord(data)
			if err != nil {
				_ = h.bp.Unpin(dataPageID, false)
				_ = h.bp.Unpin(dirID, false)
				return page.RID{}, false, err
			}
			if err := h.bp.Unpin(dataPageID, true); err != nil {
				return page.RID{}, false, err
			}

			dp.SetRecordCount(i, dp.RecordCount(i)+1)
			dp.SetFreeCount(i, int16(ddp.FreeSpace()))
			if err := h.bp.Unpin(dirID, true); err != nil {
				return page.RID{}, false, err
			}
			return rid, true, nil
		}

		next := dp.Header().NextPage()
		if err := h.bp.Unpin(dirID, false); err != nil {
			return page.RID{}, false, err
		}
		dirID = next
	}
	return page.RID{}, false, nil
}

// allocateDataPageAndAppendEntry finds a directory page with room for one
// more entry (appending a fresh directory page to the tail if none has
// room), allocates a new empty data page, and records it.
func (h *HeapFile) allocateDataPageAndAppendEntry() error {
	dirID := h.head
	var tail page.ID = page.InvalidID

	for dirID != page.InvalidID {
		dirBuf, err := h.bp.Pin(dirID, nil, buffer.DiskIO)
		if err != nil {
			return err
		}
		dp := page.LoadDirectoryPage(dirBuf)

		if dp.EntryCount() < dp.MaxEntries() {
			if err := h.newDataPageEntry(dp); err != nil {
				_ = h.bp.Unpin(dirID, false)
				return err
			}
			return h.bp.Unpin(dirID, true)
		}

		next := dp.Header().NextPage()
		if err := h.bp.Unpin(dirID, false); err != nil {
			return err
		}
		tail = dirID
		dirID = next
	}

	// No directory page had room: append a fresh one to the tail.
	blankDir := make([]byte, h.pageSize)
	newDirID, newDirBuf, err := h.bp.NewPage(blankDir, 1)
	if err != nil {
		return errors.Wrap(err, "heap: append directory page")
	}
	ndp := page.NewDirectoryPage(newDirBuf, newDirID)
	ndp.Header().SetPrevPage(tail)

	if err := h.newDataPageEntry(ndp); err != nil {
		_ = h.bp.Unpin(newDirID, true)
		return err
	}
	if err := h.bp.Unpin(newDirID, true); err != nil {
		return err
	}

	tailBuf, err := h.bp.Pin(tail, nil, buffer.DiskIO)
	if err != nil {
		return err
	}
	tdp := page.LoadDirectoryPage(tailBuf)
	tdp.Header().SetNextPage(newDirID)
	return h.bp.Unpin(tail, true)
}

// newDataPageEntry allocates a fresh data page and appends its entry to dp.
func (h *HeapFile) newDataPageEntry(dp *page.DirectoryPage) error {
	blank := make([]byte, h.pageSize)
	dataID, dataBuf, err := h.bp.NewPage(blank, 1)
	if err != nil {
		return errors.Wrap(err, "heap: allocate data page")
	}
	ddp := page.NewDataPage(dataBuf, dataID)
	free := ddp.FreeSpace()
	if err := h.bp.Unpin(dataID, true); err != nil {
		return err
	}
	if _, err := dp.AppendEntry(dataID, 0, int16(free)); err != nil {
		_ = h.bp.FreePage(dataID)
		return err
	}
	return nil
}

// Select returns a copy of the record at rid.
func (h *HeapFile) Select(rid page.RID) ([]byte, error) {
	buf, err := h.bp.Pin(rid.PageID, nil, buffer.DiskIO)
	if err != nil {
		return nil, err
	}
	dp := page.LoadDataPage(buf)
	data, err := dp.SelectRecord(rid)
	if err != nil {
		_ = h.bp.Unpin(rid.PageID, false)
		return nil, err
	}
	if err := h.bp.Unpin(rid.PageID, false); err != nil {
		return nil, err
	}
	return data, nil
}

// Update overwrites the record at rid in place. newData must be the same
// length as the existing record (length-changing updates are not supported
// at this layer; callers delete and re-insert instead).
func (h *HeapFile) Update(rid page.RID, newData []byte) error {
	buf, err := h.bp.Pin(rid.PageID, nil, buffer.DiskIO)
	if err != nil {
		return err
	}
	dp := page.LoadDataPage(buf)
	if err := dp.UpdateRecord(rid, newData); err != nil {
		_ = h.bp.Unpin(rid.PageID, false)
		return err
	}
	return h.bp.Unpin(rid.PageID, true)
}

// Delete removes the record at rid, updates its data page's directory
// entry, and, if the data page is now empty, reclaims both the entry and
// the page.
func (h *HeapFile) Delete(rid page.RID) error {
	buf, err := h.bp.Pin(rid.PageID, nil, buffer.DiskIO)
	if err != nil {
		return err
	}
	dp := page.LoadDataPage(buf)
	if err := dp.DeleteRecord(rid); err != nil {
		_ = h.bp.Unpin(rid.PageID, false)
		return err
	}
	newFree := dp.FreeSpace()
	if err := h.bp.Unpin(rid.PageID, true); err != nil {
		return err
	}
	return h.updateDirectoryAfterDelete(rid.PageID, newFree)
}

func (h *HeapFile) updateDirectoryAfterDelete(dataPageID page.ID, newFree int) error {
	dirID := h.head
	for dirID != page.InvalidID {
		dirBuf, err := h.bp.Pin(dirID, nil, buffer.DiskIO)
		if err != nil {
			return err
		}
		dp := page.LoadDirectoryPage(dirBuf)

		for i := 0; i < dp.EntryCount(); i++ {
			if dp.PageID(i) != dataPageID {
				continue
			}
			rc := dp.RecordCount(i) - 1
			dp.SetRecordCount(i, rc)
			dp.SetFreeCount(i, int16(newFree))
			if rc < 1 {
				return h.removeEntryAndFreeDataPage(dirID, dp, i, dataPageID)
			}
			return h.bp.Unpin(dirID, true)
		}

		next := dp.Header().NextPage()
		if err := h.bp.Unpin(dirID, false); err != nil {
			return err
		}
		dirID = next
	}
	return errors.Errorf("heap: no directory entry for data page %d", dataPageID)
}

// removeEntryAndFreeDataPage frees dataPageID and compacts it out of dp's
// entry array. If that empties dp and dp is not the chain's head, dp
// itself is unlinked and freed — the head directory page is always
// retained, even when empty, so the file keeps its identity.
func (h *HeapFile) removeEntryAndFreeDataPage(dirID page.ID, dp *page.DirectoryPage, index int, dataPageID page.ID) error {
	if err := h.bp.FreePage(dataPageID); err != nil {
		_ = h.bp.Unpin(dirID, true)
		return err
	}
	dp.Compact(index)
	dp.SetEntryCount(dp.EntryCount() - 1)

	if dp.EntryCount() > 0 || dirID == h.head {
		return h.bp.Unpin(dirID, true)
	}

	prev := dp.Header().PrevPage()
	next := dp.Header().NextPage()

	if prev != page.InvalidID {
		prevBuf, err := h.bp.Pin(prev, nil, buffer.DiskIO)
		if err != nil {
			_ = h.bp.Unpin(dirID, true)
			return err
		}
		page.LoadDirectoryPage(prevBuf).Header().SetNextPage(next)
		if err := h.bp.Unpin(prev, true); err != nil {
			return err
		}
	}
	if next != page.InvalidID {
		nextBuf, err := h.bp.Pin(next, nil, buffer.DiskIO)
		if err != nil {
			_ = h.bp.Unpin(dirID, true)
			return err
		}
		page.LoadDirectoryPage(nextBuf).Header().SetPrevPage(prev)
		if err := h.bp.Unpin(next, true); err != nil {
			return err
		}
	}

	if err := h.bp.Unpin(dirID, false); err != nil {
		return err
	}
	return h.bp.FreePage(dirID)
}

// RecordCount sums every directory entry's record_count across the chain.
func (h *HeapFile) RecordCount() (int, error) {
	total := 0
	dirID := h.head
	for dirID != page.InvalidID {
		buf, err := h.bp.Pin(dirID, nil, buffer.DiskIO)
		if err != nil {
			return 0, err
		}
		dp := page.LoadDirectoryPage(buf)
		for i := 0; i < dp.EntryCount(); i++ {
			total += int(dp.RecordCount(i))
		}
		next := dp.Header().NextPage()
		if err := h.bp.Unpin(dirID, false); err != nil {
			return 0, err
		}
		dirID = next
	}
	return total, nil
}

// DeleteFile frees every data page and directory page in the chain, then,
// for a named (non-temporary) file, removes its entry from the disk
// manager's file-entry table so the name can be reused.
func (h *HeapFile) DeleteFile() error {
	dirID := h.head
	for dirID != page.InvalidID {
		buf, err := h.bp.Pin(dirID, nil, buffer.DiskIO)
		if err != nil {
			return err
		}
		dp := page.LoadDirectoryPage(buf)

		for i := 0; i < dp.EntryCount(); i++ {
			if err := h.bp.FreePage(dp.PageID(i)); err != nil {
				_ = h.bp.Unpin(dirID, false)
				return err
			}
		}

		next := dp.Header().NextPage()
		if err := h.bp.Unpin(dirID, false); err != nil {
			return err
		}
		if err := h.bp.FreePage(dirID); err != nil {
			return err
		}
		dirID = next
	}

	if h.name != "" {
		if err := h.disk.RemoveFileEntry(h.name); err != nil {
			return err
		}
	}
	logger.Debugf("heap: deleted file %q", h.name)
	return nil
}
