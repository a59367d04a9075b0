package page

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRID is returned by data-page operations when a slot number
	// is out of range, or the slot it names is empty.
	ErrInvalidRID = errors.New("page: invalid rid")

	// ErrNoSpace is returned by InsertRecord when free space is smaller
	// than the record plus one slot descriptor.
	ErrNoSpace = errors.New("page: not enough free space")

	// ErrLengthMismatch is returned by UpdateRecord when the replacement
	// bytes are not the same length as the record being overwritten —
	// length-changing updates are not supported at this layer (spec §9).
	// It wraps ErrInvalidRID, so errors.Is matches either sentinel.
	ErrLengthMismatch = fmt.Errorf("%w: update must preserve record length", ErrInvalidRID)

	// ErrDirectoryFull is returned by DirectoryPage.AppendEntry once
	// entry_count has reached MAX_ENTRIES.
	ErrDirectoryFull = errors.New("page: directory page is full")

	// ErrBufferSize is returned when a caller-provided buffer isn't
	// exactly the configured page size.
	ErrBufferSize = errors.New("page: buffer is not page-sized")
)
