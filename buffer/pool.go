// Package buffer implements the buffer pool manager of spec.md §4.3: a
// fixed-size table of frames, a disk_page_id -> frame_index map, and a
// clock replacer. It is the sole path by which the heap file touches disk
// pages.
package buffer

import (
	"fmt"
	"sync"

	"github.com/xmysql-server/minibase/logger"
	"github.com/xmysql-server/minibase/storage/disk"
	"github.com/xmysql-server/minibase/storage/page"
)

// PinMode selects how Pin populates a newly resident frame.
type PinMode int

const (
	// DiskIO reads the page's current on-disk contents into the frame.
	DiskIO PinMode = iota
	// MemCopy copies the caller-supplied buffer into the frame instead of
	// reading from disk — used by NewPage to install a freshly formatted
	// page without a wasted read.
	MemCopy
	// NoOp leaves the frame's bytes whatever they were left as by the
	// previous occupant (or zero, for a never-used frame).
	NoOp
)

// Pool is the buffer pool: a fixed table of frames, a page-id -> frame
// index map, and a clock cursor, all guarded by one mutex (spec §5: the
// core is logically single-threaded, so a coarse lock is sufficient).
type Pool struct {
	mu sync.Mutex

	disk     disk.Manager
	pageSize int

	frames []Frame
	index  map[page.ID]int
	cursor int

	stats Stats
}

// New creates a pool of numFrames frames backed by d, whose pages are
// pageSize bytes.
func New(d disk.Manager, numFrames, pageSize int) *Pool {
	frames := make([]Frame, numFrames)
	for i := range frames {
		frames[i].buf = make([]byte, pageSize)
		frames[i].diskPageID = page.InvalidID
	}
	return &Pool{
		disk:     d,
		pageSize: pageSize,
		frames:   frames,
		index:    make(map[page.ID]int, numFrames),
	}
}

// NumFrames reports the pool's fixed frame count.
func (p *Pool) NumFrames() int { return len(p.frames) }

// PageSize reports the fixed page size frames in this pool hold.
func (p *Pool) PageSize() int { return p.pageSize }

// Pin ensures pageID is resident and increments its pin count. out is the
// caller-supplied buffer for mode == MemCopy; it is ignored otherwise. The
// returned byte slice aliases the frame's buffer and must not be retained
// past the matching Unpin.
func (p *Pool) Pin(pageID page.ID, out []byte, mode PinMode) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.index[pageID]; ok {
		f := &p.frames[idx]
		if mode == MemCopy && f.pinCount > 0 {
			return nil, fmt.Errorf("%w: MEM_COPY pin of resident pinned page %d", ErrArgument, pageID)
		}
		f.pinCount++
		p.stats.recordHit()
		return f.buf, nil
	}
	p.stats.recordMiss()

	idx, ok := pickVictim(p.frames, &p.cursor)
	if !ok {
		return nil, ErrExhausted
	}
	f := &p.frames[idx]

	if f.valid {
		if f.dirty {
			if err := p.flushFrame(f); err != nil {
				return nil, err
			}
		}
		delete(p.index, f.diskPageID)
	}

	switch mode {
	case DiskIO:
		p.stats.recordRead()
		if err := p.disk.ReadPage(pageID, f.buf); err != nil {
			return nil, fmt.Errorf("buffer: pin %d: %w", pageID, err)
		}
	case MemCopy:
		copy(f.buf, out)
	case NoOp:
	}

	f.valid = true
	f.dirty = false
	f.diskPageID = pageID
	f.pinCount = 1
	f.refBit = false
	p.index[pageID] = idx

	logger.Debugf("buffer: pinned page %d into frame %d (mode=%d)", pageID, idx, mode)
	return f.buf, nil
}

// Unpin decrements pageID's pin count and ORs dirty into the frame's dirty
// bit. When the pin count reaches zero, ref_bit is set.
func (p *Pool) Unpin(pageID page.ID, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.index[pageID]
	if !ok {
		return fmt.Errorf("%w: page %d", ErrNotResident, pageID)
	}
	f := &p.frames[idx]
	if f.pinCount == 0 {
		return fmt.Errorf("%w: page %d", ErrNotPinned, pageID)
	}

	f.pinCount--
	if dirty {
		f.dirty = true
	}
	if f.pinCount == 0 {
		f.refBit = true
	}
	return nil
}

// NewPage allocates runSize consecutive disk pages and pins the first one
// with MemCopy, installing firstPage's contents. It returns the new page id
// and the pinned frame's buffer, holding a copy of firstPage's bytes, so the
// caller can stamp page-id-dependent header fields (e.g. current_page) into
// the frame before unpinning. On any failure after allocation the run is
// deallocated so it does not leak.
func (p *Pool) NewPage(firstPage []byte, runSize int) (page.ID, []byte, error) {
	id, err := p.disk.AllocatePage(runSize)
	if err != nil {
		return page.InvalidID, nil, fmt.Errorf("buffer: new_page: %w", err)
	}

	buf, err := p.Pin(id, firstPage, MemCopy)
	if err != nil {
		for i := 0; i < runSize; i++ {
			_ = p.disk.DeallocatePage(id + page.ID(i))
		}
		return page.InvalidID, nil, err
	}
	return id, buf, nil
}

// FreePage deallocates pageID. It fails if pageID is resident and pinned.
// A resident-but-unpinned frame is invalidated immediately, discarding its
// contents — the disk manager may hand the id straight back out to a
// future allocation, and a stale dirty frame must never be written back
// over whatever that future allocation stores there.
func (p *Pool) FreePage(pageID page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, resident := p.index[pageID]
	if resident && p.frames[idx].pinCount > 0 {
		return fmt.Errorf("%w: page %d", ErrPagePinned, pageID)
	}
	if err := p.disk.DeallocatePage(pageID); err != nil {
		return fmt.Errorf("buffer: free_page %d: %w", pageID, err)
	}
	if resident {
		f := &p.frames[idx]
		f.valid = false
		f.dirty = false
		f.refBit = false
		f.diskPageID = page.InvalidID
		delete(p.index, pageID)
	}
	return nil
}

// flushFrame writes f to disk if dirty and clears the dirty bit. Callers
// must hold p.mu.
func (p *Pool) flushFrame(f *Frame) error {
	if !f.dirty {
		return nil
	}
	if err := p.disk.WritePage(f.diskPageID, f.buf); err != nil {
		return fmt.Errorf("buffer: flush page %d: %w", f.diskPageID, err)
	}
	f.dirty = false
	p.stats.recordWrite()
	return nil
}

// FlushPage writes pageID's frame to disk if dirty, clearing the dirty bit.
// It fails if pageID is not resident.
func (p *Pool) FlushPage(pageID page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.index[pageID]
	if !ok {
		return fmt.Errorf("%w: page %d", ErrNotResident, pageID)
	}
	return p.flushFrame(&p.frames[idx])
}

// FlushAllPages writes every dirty resident frame to disk.
func (p *Pool) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.frames {
		if p.frames[i].valid {
			if err := p.flushFrame(&p.frames[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stats returns a snapshot of the pool's running counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
