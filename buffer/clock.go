package buffer

import "github.com/xmysql-server/minibase/storage/page"

// Frame is one in-memory slot of the buffer pool: a page-sized buffer plus
// the bookkeeping the replacer and the dirty-write-back path need (spec
// §3.2). A frame is free when valid is false.
type Frame struct {
	buf        []byte
	dirty      bool
	valid      bool
	diskPageID page.ID
	pinCount   int
	refBit     bool
}

// pickVictim rotates *cursor over frames looking for a frame to reuse,
// implementing the clock (second-chance) algorithm of spec §4.3:
//
//  1. if the frame is invalid, it is the victim immediately.
//  2. if pin_count == 0 and ref_bit is set, clear ref_bit and advance.
//  3. if pin_count == 0 and ref_bit is clear, it is the victim.
//  4. if pinned, advance.
//
// The scan is bounded at 2*len(frames) steps: any frame with ref_bit set is
// given exactly one pass to be cleared before a second encounter can select
// it, so two full sweeps are always enough when a victim exists.
func pickVictim(frames []Frame, cursor *int) (int, bool) {
	n := len(frames)
	if n == 0 {
		return 0, false
	}
	for steps := 0; steps < 2*n; steps++ {
		i := *cursor
		*cursor = (*cursor + 1) % n

		f := &frames[i]
		if !f.valid {
			return i, true
		}
		if f.pinCount == 0 {
			if f.refBit {
				f.refBit = false
				continue
			}
			return i, true
		}
	}
	return 0, false
}
