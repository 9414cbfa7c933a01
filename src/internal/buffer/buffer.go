package buffer

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"logspool/src/internal/core"
)

// Buffer is the shared spool between request-handling producers and the
// flush scheduler. Entries are keyed by acceptance time in microseconds;
// the key generator bumps the key past the last issued one when the clock
// has not advanced, so keys are unique and strictly increasing. Because
// keys are issued in the same critical section as the append, the entry
// slice is always sorted by key and a drain is a prefix cut.
//
// Insert holds the mutex only for the clock read and the append; no I/O
// ever happens under the lock, so producers are never blocked behind a
// flush in progress.
type Buffer struct {
	mu      sync.Mutex
	entries []core.Entry
	lastKey int64

	// Statistics
	totalInserted atomic.Uint64
	totalDrained  atomic.Uint64
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Insert accepts one formatted line into the buffer under a fresh key and
// returns the key. It never fails and never blocks on a drain.
func (b *Buffer) Insert(line string) int64 {
	now := time.Now().UnixMicro()

	b.mu.Lock()
	key := now
	if key <= b.lastKey {
		key = b.lastKey + 1
	}
	b.lastKey = key
	b.entries = append(b.entries, core.Entry{Key: key, Line: line})
	b.mu.Unlock()

	b.totalInserted.Add(1)
	return key
}

// DrainUpTo atomically removes and returns, in ascending key order, every
// entry with key <= threshold. Later-keyed entries stay for a future
// drain. Inserts racing with a drain land on one side of the threshold or
// the other; none are lost or duplicated.
func (b *Buffer) DrainUpTo(threshold int64) []core.Entry {
	b.mu.Lock()
	cut := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].Key > threshold
	})
	if cut == 0 {
		b.mu.Unlock()
		return nil
	}
	drained := b.entries[:cut:cut]
	b.entries = b.entries[cut:]
	if len(b.entries) == 0 {
		b.entries = nil
	}
	b.mu.Unlock()

	b.totalDrained.Add(uint64(cut))
	return drained
}

// Size returns the number of accepted-but-not-yet-drained entries.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Stats contains buffer counters.
type Stats struct {
	Pending       int
	TotalInserted uint64
	TotalDrained  uint64
}

// GetStats returns buffer statistics.
func (b *Buffer) GetStats() Stats {
	return Stats{
		Pending:       b.Size(),
		TotalInserted: b.totalInserted.Load(),
		TotalDrained:  b.totalDrained.Load(),
	}
}
