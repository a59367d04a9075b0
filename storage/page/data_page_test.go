package page

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testPageSize = 1024

func freshDataPage() *DataPage {
	return NewDataPage(make([]byte, testPageSize), 7)
}

func TestDataPageInsertSelectRoundTrip(t *testing.T) {
	dp := freshDataPage()
	rid, err := dp.InsertRecord([]byte{0x41, 0x42, 0x43})
	require.NoError(t, err)
	require.Equal(t, ID(7), rid.PageID)
	require.Equal(t, int16(0), rid.Slot)

	got, err := dp.SelectRecord(rid)
	require.NoError(t, err)
	require.Equal(t, []byte{0x41, 0x42, 0x43}, got)
}

func TestDataPageInvalidRID(t *testing.T) {
	dp := freshDataPage()
	_, err := dp.SelectRecord(RID{PageID: 7, Slot: 0})
	require.ErrorIs(t, err, ErrInvalidRID)

	_, err = dp.SelectRecord(RID{PageID: 7, Slot: -1})
	require.ErrorIs(t, err, ErrInvalidRID)
}

func TestDataPageUpdateRequiresSameLength(t *testing.T) {
	dp := freshDataPage()
	rid, err := dp.InsertRecord([]byte("hello"))
	require.NoError(t, err)

	require.NoError(t, dp.UpdateRecord(rid, []byte("world")))
	got, err := dp.SelectRecord(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("world"), got)

	err = dp.UpdateRecord(rid, []byte("longer-value"))
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDataPageDeleteReusesSlot(t *testing.T) {
	dp := freshDataPage()
	r1, err := dp.InsertRecord([]byte("aaa"))
	require.NoError(t, err)
	_, err = dp.InsertRecord([]byte("bbb"))
	require.NoError(t, err)

	require.NoError(t, dp.DeleteRecord(r1))
	_, err = dp.SelectRecord(r1)
	require.ErrorIs(t, err, ErrInvalidRID)

	// Reuses slot 0 rather than appending a third slot.
	r3, err := dp.InsertRecord([]byte("ccc"))
	require.NoError(t, err)
	require.Equal(t, int16(0), r3.Slot)
}

func TestDataPageDeleteHighestSlotShrinksSlotCount(t *testing.T) {
	dp := freshDataPage()
	_, err := dp.InsertRecord([]byte("aaa"))
	require.NoError(t, err)
	r2, err := dp.InsertRecord([]byte("bbb"))
	require.NoError(t, err)
	require.Equal(t, int16(2), dp.Header().SlotCount())

	require.NoError(t, dp.DeleteRecord(r2))
	require.Equal(t, int16(1), dp.Header().SlotCount())
}

func TestDataPageFreeSpaceReservesOneSlot(t *testing.T) {
	dp := freshDataPage()
	initial := dp.FreeSpace()
	require.Equal(t, testPageSize-HeaderSize-slotEntrySize, initial)

	_, err := dp.InsertRecord(make([]byte, 100))
	require.NoError(t, err)
	require.Equal(t, initial-100-slotEntrySize, dp.FreeSpace())
}

func TestDataPageInsertFullPageRecord(t *testing.T) {
	dp := freshDataPage()
	// PAGE_SIZE - 24: header(20) + one slot(4), exactly fills the page.
	rid, err := dp.InsertRecord(make([]byte, testPageSize-24))
	require.NoError(t, err)
	require.Equal(t, int16(0), rid.Slot)
	require.Equal(t, 0, dp.FreeSpace())
}

func TestDataPageInsertTooLargeFails(t *testing.T) {
	dp := freshDataPage()
	_, err := dp.InsertRecord(make([]byte, testPageSize-23))
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestDataPageDeleteCompactsRecordRegion(t *testing.T) {
	dp := freshDataPage()
	r1, err := dp.InsertRecord([]byte("AAAA")) // occupies [1020,1024)
	require.NoError(t, err)
	r2, err := dp.InsertRecord([]byte("BB")) // occupies [1018,1020)
	require.NoError(t, err)
	r3, err := dp.InsertRecord([]byte("CCC")) // occupies [1015,1018)
	require.NoError(t, err)

	require.NoError(t, dp.DeleteRecord(r2))

	// r1 and r3 survive at their original bytes; only r2 is gone.
	got1, err := dp.SelectRecord(r1)
	require.NoError(t, err)
	require.Equal(t, []byte("AAAA"), got1)
	got3, err := dp.SelectRecord(r3)
	require.NoError(t, err)
	require.Equal(t, []byte("CCC"), got3)

	// Only r1 (4 bytes) and r3 (3 bytes) remain live; r2's 2 bytes are back
	// in FreeSpace.
	require.Equal(t, testPageSize-HeaderSize-3*slotEntrySize-4-4-3, dp.FreeSpace())
}

// TestDataPageDeleteCompactsOutOfSlotOrder reproduces a scenario where slot
// reuse breaks the slot-index/offset correlation: the slot holding the
// physically lower-offset (more recently inserted) record has a lower
// index than the slot holding a higher-offset one. Compaction must still
// shift records in offset order, not slot-index order, or it clobbers a
// not-yet-moved record with an earlier-processed one's bytes.
func TestDataPageDeleteCompactsOutOfSlotOrder(t *testing.T) {
	dp := freshDataPage()
	_, err := dp.InsertRecord([]byte("AAAAAAAAAA")) // slot 0, @[1014,1024)
	require.NoError(t, err)
	rb, err := dp.InsertRecord([]byte("BBBBBBBBBB")) // slot 1, @[1004,1014)
	require.NoError(t, err)
	rc, err := dp.InsertRecord([]byte("CCCCCCCCCC")) // slot 2, @[994,1004)
	require.NoError(t, err)

	ra := RID{PageID: dp.Header().CurrentPage(), Slot: 0}
	require.NoError(t, dp.DeleteRecord(ra)) // slot 0 freed; B, C shift to @[1014,1024) and @[1004,1014)

	// Reuses slot 0, landing at the current top of the record region:
	// @[994,1004).
	rd, err := dp.InsertRecord([]byte("DDDDDDDDDD"))
	require.NoError(t, err)
	require.Equal(t, int16(0), rd.Slot)

	// Now slot 0 (D) sits at a lower offset than slot 2 (C), which sits
	// lower than slot 1 (B) — slot index and physical offset disagree.
	require.NoError(t, dp.DeleteRecord(rb))

	gotC, err := dp.SelectRecord(rc)
	require.NoError(t, err)
	require.Equal(t, []byte("CCCCCCCCCC"), gotC)

	gotD, err := dp.SelectRecord(rd)
	require.NoError(t, err)
	require.Equal(t, []byte("DDDDDDDDDD"), gotD)
}
