package heap

import (
	"errors"

	"github.com/xmysql-server/minibase/buffer"
	"github.com/xmysql-server/minibase/storage/page"
)

// Scan is a forward cursor over every live record in a heap file. It
// snapshots the chain's data-page ids at construction time, so structural
// changes made through the same HeapFile while a Scan is open (inserts
// that allocate new pages, deletes that free one) are not reflected in
// that Scan.
type Scan struct {
	h       *HeapFile
	pageIDs []page.ID
	next    int

	curPageID page.ID
	curDP     *page.DataPage
	slot      int16
	pinned    bool
	done      bool
}

// NewScan opens a Scan over h's current set of data pages.
func NewScan(h *HeapFile) (*Scan, error) {
	var ids []page.ID
	dirID := h.head
	for dirID != page.InvalidID {
		buf, err := h.bp.Pin(dirID, nil, buffer.DiskIO)
		if err != nil {
			return nil, err
		}
		dp := page.LoadDirectoryPage(buf)
		for i := 0; i < dp.EntryCount(); i++ {
			ids = append(ids, dp.PageID(i))
		}
		next := dp.Header().NextPage()
		if err := h.bp.Unpin(dirID, false); err != nil {
			return nil, err
		}
		dirID = next
	}
	return &Scan{h: h, pageIDs: ids, curPageID: page.InvalidID}, nil
}

func (s *Scan) advancePage() (bool, error) {
	if s.pinned {
		if err := s.h.bp.Unpin(s.curPageID, false); err != nil {
			return false, err
		}
		s.pinned = false
	}
	if s.next >= len(s.pageIDs) {
		return false, nil
	}
	id := s.pageIDs[s.next]
	s.next++

	buf, err := s.h.bp.Pin(id, nil, buffer.DiskIO)
	if err != nil {
		return false, err
	}
	s.curPageID = id
	s.curDP = page.LoadDataPage(buf)
	s.slot = 0
	s.pinned = true
	return true, nil
}

// Next returns the next live record's RID and bytes. The final, zero-value
// return and ok == false signal exhaustion; once that happens (or Next
// returns an error), every further call returns the same ok == false
// without touching curDP's now possibly-stale, unpinned frame.
func (s *Scan) Next() (page.RID, []byte, bool, error) {
	if s.done {
		return page.RID{}, nil, false, nil
	}

	if s.curPageID == page.InvalidID && !s.pinned {
		if ok, err := s.advancePage(); err != nil || !ok {
			s.done = true
			return page.RID{}, nil, false, err
		}
	}

	for {
		for int(s.slot) < int(s.curDP.Header().SlotCount()) {
			rid := page.RID{PageID: s.curPageID, Slot: s.slot}
			s.slot++
			data, err := s.curDP.SelectRecord(rid)
			if err != nil {
				if errors.Is(err, page.ErrInvalidRID) {
					continue
				}
				s.done = true
				return page.RID{}, nil, false, err
			}
			return rid, data, true, nil
		}
		ok, err := s.advancePage()
		if err != nil || !ok {
			s.done = true
			return page.RID{}, nil, false, err
		}
	}
}

// Close releases the currently pinned page, if any. It is safe to call
// more than once and after Next has returned ok == false.
func (s *Scan) Close() error {
	if s.pinned {
		err := s.h.bp.Unpin(s.curPageID, false)
		s.pinned = false
		return err
	}
	return nil
}
