// Package page implements the binary page layout primitives spec'd in
// §4.1/§4.2/§6.1: the 20-byte shared header, the slotted data page, and the
// directory page. All three share the big-endian, getter/setter-over-a-byte-
// slice style used by the teacher's storage/wrapper/page package.
package page

import "encoding/binary"

// ID identifies a disk page. InvalidID is the doubly-linked-list terminator.
type ID int32

// InvalidID is the sentinel used for "no such page" (prev/next chain ends,
// disk manager failures).
const InvalidID ID = -1

// Type distinguishes a data page from a directory page on disk.
type Type int16

const (
	TypeData      Type = 1
	TypeDirectory Type = 2
)

// HeaderSize is the size in bytes of the header every page type shares.
const HeaderSize = 20

// Header is the 20-byte prefix common to data and directory pages:
//
//	offset  size  field
//	 0       4    prev_page
//	 4       4    next_page
//	 8       4    current_page
//	12       2    free_space_ptr
//	14       2    slot_count
//	16       2    page_type
//	18       2    reserved
//
// A Header is a view over the first HeaderSize bytes of a page buffer; it
// does not own a copy.
type Header struct {
	buf []byte
}

func newHeader(buf []byte) Header {
	return Header{buf: buf[:HeaderSize:HeaderSize]}
}

func (h Header) PrevPage() ID { return ID(int32(binary.BigEndian.Uint32(h.buf[0:4]))) }
func (h Header) SetPrevPage(id ID) {
	binary.BigEndian.PutUint32(h.buf[0:4], uint32(int32(id)))
}

func (h Header) NextPage() ID { return ID(int32(binary.BigEndian.Uint32(h.buf[4:8]))) }
func (h Header) SetNextPage(id ID) {
	binary.BigEndian.PutUint32(h.buf[4:8], uint32(int32(id)))
}

func (h Header) CurrentPage() ID { return ID(int32(binary.BigEndian.Uint32(h.buf[8:12]))) }
func (h Header) SetCurrentPage(id ID) {
	binary.BigEndian.PutUint32(h.buf[8:12], uint32(int32(id)))
}

// FreeSpacePtr is the byte offset to the first byte of the record region on
// a data page (spec §6.1). Directory pages do not use it.
func (h Header) FreeSpacePtr() int16 { return int16(binary.BigEndian.Uint16(h.buf[12:14])) }
func (h Header) SetFreeSpacePtr(v int16) {
	binary.BigEndian.PutUint16(h.buf[12:14], uint16(v))
}

// SlotCount is the number of slot (data page) or entry (directory page)
// descriptors following the header.
func (h Header) SlotCount() int16 { return int16(binary.BigEndian.Uint16(h.buf[14:16])) }
func (h Header) SetSlotCount(v int16) {
	binary.BigEndian.PutUint16(h.buf[14:16], uint16(v))
}

func (h Header) PageType() Type { return Type(int16(binary.BigEndian.Uint16(h.buf[16:18]))) }
func (h Header) SetPageType(t Type) {
	binary.BigEndian.PutUint16(h.buf[16:18], uint16(t))
}
