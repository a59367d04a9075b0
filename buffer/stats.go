package buffer

// Stats is a snapshot of the pool's running counters. Pool.Stats returns it
// by value under the pool's mutex, so callers get a consistent point-in-time
// copy without any atomics of their own.
type Stats struct {
	Hits   int64
	Misses int64
	Reads  int64
	Writes int64
}

func (s *Stats) recordHit()   { s.Hits++ }
func (s *Stats) recordMiss()  { s.Misses++ }
func (s *Stats) recordRead()  { s.Reads++ }
func (s *Stats) recordWrite() { s.Writes++ }
