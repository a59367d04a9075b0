package heap

import "errors"

// ErrRecordTooLarge is returned by Insert when a record cannot fit on any
// data page regardless of how empty it is: header + one slot + the record
// itself exceeds the configured page size.
var ErrRecordTooLarge = errors.New("heap: record too large for a page")
