package buffer

import "errors"

var (
	// ErrExhausted is returned by Pin and NewPage when every frame is
	// pinned and pick_victim cannot find one to evict.
	ErrExhausted = errors.New("buffer: pool exhausted, all frames pinned")

	// ErrArgument is returned by Pin for a MEM_COPY request against an
	// already-resident, already-pinned page (the new_page leak guard).
	// Unpin and FreePage report their misuses with the sentinels below.
	ErrArgument = errors.New("buffer: invalid argument")

	// ErrNotResident is returned by Unpin and FlushPage when page_id has
	// no resident frame.
	ErrNotResident = errors.New("buffer: page is not resident")

	// ErrNotPinned is returned by Unpin when the resident frame's pin
	// count is already zero.
	ErrNotPinned = errors.New("buffer: page is not pinned")

	// ErrPagePinned is returned by FreePage when page_id is resident and
	// pinned.
	ErrPagePinned = errors.New("buffer: page is pinned")
)
