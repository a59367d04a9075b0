// Package disk implements the collaborator spec.md §6.2 treats purely as an
// oracle: page allocation, raw page I/O, and the named-file entry table.
// Manager is exactly that interface; FileManager is the one concrete,
// exercised implementation the rest of this repo runs against.
package disk

import (
	"errors"

	"github.com/xmysql-server/minibase/storage/page"
)

var (
	// ErrFileEntryNotFound is returned by RemoveFileEntry for an
	// unregistered name. GetFileEntry reports a missing name with ok == false
	// and a nil error instead.
	ErrFileEntryNotFound = errors.New("disk: file entry not found")

	// ErrFileEntryExists is returned by AddFileEntry when the name is
	// already registered.
	ErrFileEntryExists = errors.New("disk: file entry already exists")

	// ErrAlreadyOpen is returned when a backing file is locked by another
	// open FileManager.
	ErrAlreadyOpen = errors.New("disk: backing file is already open")
)

// Manager is the disk-manager interface the buffer pool and heap file
// consume; see spec.md §6.2.
type Manager interface {
	// AllocatePage allocates runSize consecutive pages and returns the id
	// of the first one.
	AllocatePage(runSize int) (page.ID, error)

	// DeallocatePage frees a single page for reuse.
	DeallocatePage(id page.ID) error

	// ReadPage reads exactly PageSize() bytes of page id into buf.
	ReadPage(id page.ID, buf []byte) error

	// WritePage writes exactly PageSize() bytes of buf to page id.
	WritePage(id page.ID, buf []byte) error

	// AddFileEntry maps name to head for later lookup by GetFileEntry.
	AddFileEntry(name string, head page.ID) error

	// GetFileEntry looks up the head page id registered under name.
	GetFileEntry(name string) (id page.ID, ok bool, err error)

	// RemoveFileEntry unregisters name, so the name can be reused.
	RemoveFileEntry(name string) error

	// PageSize reports the fixed page size this manager was opened with.
	PageSize() int
}
