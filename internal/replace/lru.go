package replace

// lruEngine tracks, per file, the logical timestamp of its last hit or
// admission. Ordering is ascending: smaller timestamp = older = evict
// first. Timestamps are a strictly increasing counter rather than wall
// time, so comparisons stay meaningful across arbitrarily fast test
// clocks and are trivially rebased on reload (see Restore).
type lruEngine struct {
	next    int64
	entries map[string]int64
}

func newLRUEngine() *lruEngine {
	return &lruEngine{entries: make(map[string]int64)}
}

func (e *lruEngine) Policy() Policy { return LRU }

func (e *lruEngine) tick() int64 {
	e.next++
	return e.next
}

func (e *lruEngine) Admit(filename string, sizeBytes int64) int64 {
	ts := e.tick()
	e.entries[filename] = ts
	return ts
}

func (e *lruEngine) Hit(filename string, sizeBytes int64) int64 {
	ts := e.tick()
	e.entries[filename] = ts
	return ts
}

func (e *lruEngine) Remove(filename string) {
	delete(e.entries, filename)
}

func (e *lruEngine) PeekKey(filename string) (int64, bool) {
	ts, ok := e.entries[filename]
	return ts, ok
}

// DefaultKey returns the timestamp a brand-new admission would receive
// right now, without consuming it. Used only for sorting untracked scan
// candidates relative to tracked ones; admission itself calls Admit,
// which allocates the real timestamp.
func (e *lruEngine) DefaultKey() int64 { return e.next + 1 }

func (e *lruEngine) Snapshot() Snapshot {
	entries := make([]LRUEntry, 0, len(e.entries))
	for filename, ts := range e.entries {
		entries = append(entries, LRUEntry{Filename: filename, Timestamp: ts})
	}
	return Snapshot{Type: LRU, LRUEntries: entries}
}

// Restore rebases loaded timestamps onto this engine's counter: next is
// set to the maximum loaded timestamp, so every subsequent new hit
// produces a timestamp strictly greater than any restored one (property
// 5 of the testable-properties section), while relative order among the
// restored entries is preserved exactly since no value is altered.
func (e *lruEngine) Restore(snap Snapshot) error {
	if snap.Type != LRU {
		return policyMismatchError(LRU, snap.Type)
	}
	e.entries = make(map[string]int64, len(snap.LRUEntries))
	var maxTimestamp int64
	for _, entry := range snap.LRUEntries {
		e.entries[entry.Filename] = entry.Timestamp
		if entry.Timestamp > maxTimestamp {
			maxTimestamp = entry.Timestamp
		}
	}
	e.next = maxTimestamp
	return nil
}
