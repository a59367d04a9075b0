package disk

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/xmysql-server/minibase/logger"
	"github.com/xmysql-server/minibase/storage/page"
)

// metaPageID holds the free-list head, the high-water allocation mark, and
// the named file-entry table. It is never handed out to callers.
const metaPageID page.ID = 0

// FileManager is a single-backing-file disk manager: page 0 is a private
// metadata page, and every other page is either live, free, or never
// allocated. Deallocated pages are threaded into a singly linked free list
// whose head is kept in the metadata page and whose links live in the first
// 4 bytes of each free page's own body — grounded on the laura-db disk
// manager's page-recycling strategy.
type FileManager struct {
	mu   sync.Mutex
	file *os.File

	pageSize int
	path     string
	lockPath string
	lockTok  string

	freeListHead page.ID
	nextPageID   page.ID
	entries      map[string]page.ID
}

// Open opens (creating if absent) the backing file dir/name at the given
// page size. Only one FileManager may hold a given path open at a time; a
// stale lock file from a crashed process must be removed by hand before
// Open will succeed again.
func Open(dir, name string, pageSize int) (*FileManager, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("disk: page size must be positive, got %d", pageSize)
	}
	path := filepath.Join(dir, name)
	lockPath := path + ".lock"

	tok := uuid.NewString()
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyOpen, lockPath)
		}
		return nil, fmt.Errorf("disk: create lock %s: %w", lockPath, err)
	}
	if _, err := lockFile.WriteString(tok); err != nil {
		lockFile.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("disk: write lock %s: %w", lockPath, err)
	}
	lockFile.Close()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}

	fm := &FileManager{
		file:         f,
		pageSize:     pageSize,
		path:         path,
		lockPath:     lockPath,
		lockTok:      tok,
		freeListHead: page.InvalidID,
		nextPageID:   1,
		entries:      make(map[string]page.ID),
	}

	info, err := f.Stat()
	if err != nil {
		fm.closeLocked()
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := fm.growTo(1); err != nil {
			fm.closeLocked()
			return nil, err
		}
		if err := fm.writeMeta(); err != nil {
			fm.closeLocked()
			return nil, err
		}
	} else {
		if err := fm.readMeta(); err != nil {
			fm.closeLocked()
			return nil, err
		}
	}

	logger.Infof("disk: opened %s (page_size=%d, next_page=%d)", path, pageSize, fm.nextPageID)
	return fm, nil
}

func (fm *FileManager) PageSize() int { return fm.pageSize }

func (fm *FileManager) offset(id page.ID) int64 {
	return int64(id) * int64(fm.pageSize)
}

func (fm *FileManager) growTo(numPages page.ID) error {
	return fm.file.Truncate(int64(numPages) * int64(fm.pageSize))
}

// AllocatePage allocates runSize consecutive pages and returns the first
// one's id. Single-page requests are served from the free list before the
// file is extended.
func (fm *FileManager) AllocatePage(runSize int) (page.ID, error) {
	if runSize <= 0 {
		return page.InvalidID, fmt.Errorf("disk: run size must be positive, got %d", runSize)
	}
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if runSize == 1 && fm.freeListHead != page.InvalidID {
		id := fm.freeListHead
		next, err := fm.readFreeLink(id)
		if err != nil {
			return page.InvalidID, err
		}
		fm.freeListHead = next
		if err := fm.writeMeta(); err != nil {
			return page.InvalidID, err
		}
		return id, nil
	}

	first := fm.nextPageID
	if err := fm.growTo(first + page.ID(runSize)); err != nil {
		return page.InvalidID, fmt.Errorf("disk: grow file: %w", err)
	}
	fm.nextPageID = first + page.ID(runSize)
	if err := fm.writeMeta(); err != nil {
		return page.InvalidID, err
	}
	return first, nil
}

// DeallocatePage returns id to the free list.
func (fm *FileManager) DeallocatePage(id page.ID) error {
	if id == metaPageID || id == page.InvalidID {
		return fmt.Errorf("disk: cannot deallocate reserved page %d", id)
	}
	fm.mu.Lock()
	defer fm.mu.Unlock()

	buf := make([]byte, fm.pageSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(int32(fm.freeListHead)))
	if _, err := fm.file.WriteAt(buf, fm.offset(id)); err != nil {
		return fmt.Errorf("disk: write free link for page %d: %w", id, err)
	}
	fm.freeListHead = id
	return fm.writeMeta()
}

func (fm *FileManager) readFreeLink(id page.ID) (page.ID, error) {
	buf := make([]byte, 4)
	if _, err := fm.file.ReadAt(buf, fm.offset(id)); err != nil {
		return page.InvalidID, fmt.Errorf("disk: read free link for page %d: %w", id, err)
	}
	return page.ID(int32(binary.BigEndian.Uint32(buf))), nil
}

// ReadPage reads page id's full body into buf, which must be exactly
// PageSize() bytes.
func (fm *FileManager) ReadPage(id page.ID, buf []byte) error {
	if len(buf) != fm.pageSize {
		return fmt.Errorf("%w: buffer is %d bytes, want %d", page.ErrBufferSize, len(buf), fm.pageSize)
	}
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if _, err := fm.file.ReadAt(buf, fm.offset(id)); err != nil {
		return fmt.Errorf("disk: read page %d: %w", id, err)
	}
	return nil
}

// WritePage writes buf, which must be exactly PageSize() bytes, as page id's
// full body.
func (fm *FileManager) WritePage(id page.ID, buf []byte) error {
	if len(buf) != fm.pageSize {
		return fmt.Errorf("%w: buffer is %d bytes, want %d", page.ErrBufferSize, len(buf), fm.pageSize)
	}
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if _, err := fm.file.WriteAt(buf, fm.offset(id)); err != nil {
		return fmt.Errorf("disk: write page %d: %w", id, err)
	}
	return nil
}

// AddFileEntry registers name -> head in the metadata page.
func (fm *FileManager) AddFileEntry(name string, head page.ID) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if _, ok := fm.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrFileEntryExists, name)
	}
	fm.entries[name] = head
	return fm.writeMeta()
}

// GetFileEntry looks up name's registered head page.
func (fm *FileManager) GetFileEntry(name string) (page.ID, bool, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	id, ok := fm.entries[name]
	return id, ok, nil
}

// RemoveFileEntry unregisters name.
func (fm *FileManager) RemoveFileEntry(name string) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if _, ok := fm.entries[name]; !ok {
		return fmt.Errorf("%w: %s", ErrFileEntryNotFound, name)
	}
	delete(fm.entries, name)
	return fm.writeMeta()
}

// writeMeta serializes free-list head, next-page high-water mark, and the
// file-entry table to the metadata page. Callers must hold fm.mu.
func (fm *FileManager) writeMeta() error {
	buf := make([]byte, fm.pageSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(int32(fm.freeListHead)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(int32(fm.nextPageID)))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(fm.entries)))

	off := 12
	for name, id := range fm.entries {
		need := 2 + len(name) + 4
		if off+need > fm.pageSize {
			return fmt.Errorf("disk: file-entry table overflows one page (%d entries)", len(fm.entries))
		}
		binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(name)))
		off += 2
		copy(buf[off:off+len(name)], name)
		off += len(name)
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(int32(id)))
		off += 4
	}

	if _, err := fm.file.WriteAt(buf, fm.offset(metaPageID)); err != nil {
		return fmt.Errorf("disk: write metadata page: %w", err)
	}
	return nil
}

// readMeta loads the metadata page written by writeMeta. Callers must hold
// fm.mu.
func (fm *FileManager) readMeta() error {
	buf := make([]byte, fm.pageSize)
	if _, err := fm.file.ReadAt(buf, fm.offset(metaPageID)); err != nil {
		return fmt.Errorf("disk: read metadata page: %w", err)
	}

	fm.freeListHead = page.ID(int32(binary.BigEndian.Uint32(buf[0:4])))
	fm.nextPageID = page.ID(int32(binary.BigEndian.Uint32(buf[4:8])))
	count := int(binary.BigEndian.Uint32(buf[8:12]))

	entries := make(map[string]page.ID, count)
	off := 12
	for i := 0; i < count; i++ {
		nameLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
		off += 2
		name := string(buf[off : off+nameLen])
		off += nameLen
		id := page.ID(int32(binary.BigEndian.Uint32(buf[off : off+4])))
		off += 4
		entries[name] = id
	}
	fm.entries = entries
	return nil
}

func (fm *FileManager) closeLocked() {
	fm.file.Close()
	os.Remove(fm.lockPath)
}

// Close flushes no buffered state of its own (every mutation already wrote
// the metadata page synchronously) and releases the backing file and lock.
func (fm *FileManager) Close() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	tok, err := os.ReadFile(fm.lockPath)
	if err == nil && string(tok) == fm.lockTok {
		os.Remove(fm.lockPath)
	}
	return fm.file.Close()
}
