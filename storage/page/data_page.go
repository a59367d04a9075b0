package page

import (
	"encoding/binary"
	"sort"
)

// slotEntrySize is the size in bytes of one slot descriptor: {offset,
// length int16}.
const slotEntrySize = 4

// emptySlotLength marks a retained-but-unused slot (spec §4.1).
const emptySlotLength = -1

// RID is the stable address of a record: a page id plus a slot number.
type RID struct {
	PageID ID
	Slot   int16
}

// DataPage is a slotted page: a forward-growing array of slot descriptors
// after the shared header, and a backward-growing region of record bytes
// ending at the buffer's tail. It wraps a caller-owned buffer — typically a
// buffer-pool frame — and never copies it.
type DataPage struct {
	buf    []byte
	header Header
}

// NewDataPage formats buf as a fresh, empty data page with the given id.
// buf must be exactly the configured page size and is retained, not copied.
func NewDataPage(buf []byte, id ID) *DataPage {
	dp := &DataPage{buf: buf, header: newHeader(buf)}
	dp.header.SetPrevPage(InvalidID)
	dp.header.SetNextPage(InvalidID)
	dp.header.SetCurrentPage(id)
	dp.header.SetPageType(TypeData)
	dp.header.SetSlotCount(0)
	dp.header.SetFreeSpacePtr(int16(len(buf)))
	return dp
}

// LoadDataPage wraps an existing, already-formatted data page buffer.
func LoadDataPage(buf []byte) *DataPage {
	return &DataPage{buf: buf, header: newHeader(buf)}
}

// Header exposes the shared page header for callers that need prev/next/id.
func (dp *DataPage) Header() Header { return dp.header }

// Buf returns the underlying buffer, for the buffer pool to read/write to
// disk.
func (dp *DataPage) Buf() []byte { return dp.buf }

func (dp *DataPage) slotOffset(i int) int { return HeaderSize + i*slotEntrySize }

func (dp *DataPage) getSlot(i int) (offset, length int16) {
	off := dp.slotOffset(i)
	offset = int16(binary.BigEndian.Uint16(dp.buf[off : off+2]))
	length = int16(binary.BigEndian.Uint16(dp.buf[off+2 : off+4]))
	return
}

func (dp *DataPage) setSlot(i int, offset, length int16) {
	off := dp.slotOffset(i)
	binary.BigEndian.PutUint16(dp.buf[off:off+2], uint16(offset))
	binary.BigEndian.PutUint16(dp.buf[off+2:off+4], uint16(length))
}

// FreeSpace returns the insertable size: the contiguous gap between the end
// of the slot array and the start of the record region, less the 4 bytes a
// new slot descriptor would need (spec §4.1).
func (dp *DataPage) FreeSpace() int {
	slotCount := int(dp.header.SlotCount())
	used := HeaderSize + slotCount*slotEntrySize
	free := int(dp.header.FreeSpacePtr()) - used - slotEntrySize
	if free < 0 {
		return 0
	}
	return free
}

// InsertRecord places data at the top of the record region, reusing the
// lowest-index empty slot if one exists, and returns the record's RID.
func (dp *DataPage) InsertRecord(data []byte) (RID, error) {
	if dp.FreeSpace() < len(data) {
		return RID{}, ErrNoSpace
	}

	slotCount := int(dp.header.SlotCount())
	idx := -1
	for i := 0; i < slotCount; i++ {
		if _, length := dp.getSlot(i); length == emptySlotLength {
			idx = i
			break
		}
	}
	appended := idx == -1
	if appended {
		idx = slotCount
	}

	newFreeSpacePtr := int(dp.header.FreeSpacePtr()) - len(data)
	copy(dp.buf[newFreeSpacePtr:newFreeSpacePtr+len(data)], data)
	dp.setSlot(idx, int16(newFreeSpacePtr), int16(len(data)))
	dp.header.SetFreeSpacePtr(int16(newFreeSpacePtr))
	if appended {
		dp.header.SetSlotCount(int16(slotCount + 1))
	}

	return RID{PageID: dp.header.CurrentPage(), Slot: int16(idx)}, nil
}

func (dp *DataPage) validSlot(slot int16) (offset, length int16, err error) {
	if slot < 0 || int(slot) >= int(dp.header.SlotCount()) {
		return 0, 0, ErrInvalidRID
	}
	offset, length = dp.getSlot(int(slot))
	if length == emptySlotLength {
		return 0, 0, ErrInvalidRID
	}
	return offset, length, nil
}

// SelectRecord returns a copy of the bytes stored at rid.Slot.
func (dp *DataPage) SelectRecord(rid RID) ([]byte, error) {
	offset, length, err := dp.validSlot(rid.Slot)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, dp.buf[offset:int(offset)+int(length)])
	return out, nil
}

// UpdateRecord overwrites the record at rid.Slot in place. newData must have
// the same length as the existing record — length-changing updates are not
// supported at this layer; callers delete and re-insert instead (spec §9).
func (dp *DataPage) UpdateRecord(rid RID, newData []byte) error {
	offset, length, err := dp.validSlot(rid.Slot)
	if err != nil {
		return err
	}
	if int(length) != len(newData) {
		return ErrLengthMismatch
	}
	copy(dp.buf[offset:int(offset)+int(length)], newData)
	return nil
}

// DeleteRecord marks rid.Slot empty and compacts the record region so that
// free space stays contiguous: every record whose bytes sit below the
// deleted one (i.e. was inserted more recently) shifts up to close the gap.
// If the deleted slot was the highest-indexed one, slot_count decreases.
func (dp *DataPage) DeleteRecord(rid RID) error {
	offset, length, err := dp.validSlot(rid.Slot)
	if err != nil {
		return err
	}

	// Slot index no longer tracks physical position once a freed slot is
	// reused by a later insert, so the shifted records must be visited in
	// descending-offset order (the one right below the deleted record
	// first): that record's destination is the deleted record's old,
	// already-vacated range, never the as-yet-unread source of another
	// shifting record. Visiting by slot index instead can make an
	// earlier-processed record's destination land on a later record's
	// still-unread source, corrupting it.
	slotCount := int(dp.header.SlotCount())
	type shifted struct {
		slot   int
		offset int16
		length int16
	}
	var toShift []shifted
	for i := 0; i < slotCount; i++ {
		if int16(i) == rid.Slot {
			continue
		}
		off, l := dp.getSlot(i)
		if l == emptySlotLength || off >= offset {
			continue
		}
		toShift = append(toShift, shifted{slot: i, offset: off, length: l})
	}
	sort.Slice(toShift, func(a, b int) bool { return toShift[a].offset > toShift[b].offset })

	for _, s := range toShift {
		copy(dp.buf[int(s.offset)+int(length):int(s.offset)+int(length)+int(s.length)], dp.buf[s.offset:int(s.offset)+int(s.length)])
		dp.setSlot(s.slot, s.offset+length, s.length)
	}
	dp.header.SetFreeSpacePtr(dp.header.FreeSpacePtr() + length)

	dp.setSlot(int(rid.Slot), 0, emptySlotLength)

	if int(rid.Slot) == slotCount-1 {
		dp.header.SetSlotCount(int16(slotCount - 1))
	}
	return nil
}
