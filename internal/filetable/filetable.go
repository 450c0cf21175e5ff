// Package filetable implements the prefix-keyed name to file-record
// mapping at the heart of the core: a map from endpoint name to
// [Record], with add/remove paired to subscribe/unsubscribe hooks, and
// a sorted-name index supporting the prefix-match folds the dispatch
// layer needs for OPTIONS (every endpoint matching "path/*") and the
// refresh loop needs for bulk removal.
//
// The design notes call this "a radix/prefix tree or an ordered map
// keyed by name"; this package takes the ordered-map alternative: a
// map[string]*Record for O(1) point lookups plus a sorted []string
// index maintained alongside it, searched with sort.Search to bound a
// prefix range in O(log n).
package filetable

import (
	"sort"
	"sync"
	"time"

	"github.com/cachedepot/filecached/internal/name"
)

// Access describes the filesystem access mode backing a file record.
type Access int

const (
	AccessNone Access = iota
	AccessRead
	AccessWrite
	AccessReadWrite
)

// WriteCapability names one of the write methods an endpoint exposes.
type WriteCapability int

const (
	WriteTruncate WriteCapability = 1 << iota
	WriteAppend
)

// MTimeCounter is the (modification time, same-mtime counter) pair that
// guarantees ETag uniqueness within a single mtime tick.
type MTimeCounter struct {
	ModTime time.Time
	Counter uint32
}

// Less reports whether m sorts strictly before other, lexicographically
// on (ModTime, Counter).
func (m MTimeCounter) Less(other MTimeCounter) bool {
	if !m.ModTime.Equal(other.ModTime) {
		return m.ModTime.Before(other.ModTime)
	}
	return m.Counter < other.Counter
}

// AppendChunk is one buffered byte-range write awaiting reassembly.
type AppendChunk struct {
	Index   int
	Start   int64
	End     int64 // inclusive
	Payload []byte
}

// PendingAppend is the in-flight state for one multipart id: the chunks
// received so far (kept sorted by Index) and a cancel function for the
// per-id timeout timer, nil once cancelled or never started.
type PendingAppend struct {
	Chunks []AppendChunk
	Cancel func() bool
}

// Notification describes one subscription fired on load/content-change.
type Notification struct {
	Target   string
	Multicast bool
	Timeout  time.Duration
	Priority int
}

// Record is the file table entry: one logical file's cached content,
// metadata, and write/notification state. The logical name (relative
// to the root, without method suffix) is the table key it is stored
// under, not a field of Record itself.
type Record struct {
	Contents []byte
	Path     string
	Headers  map[string]string
	MTime    MTimeCounter
	Access   Access
	Toggle   bool
	Notify   []Notification
	Write    WriteCapability
	Redirect string // empty when this endpoint is not a redirect

	// WriteAppends maps multipart id to its pending reassembly state.
	WriteAppends map[string]*PendingAppend
}

// Size returns the byte length of Contents.
func (r *Record) Size() int64 { return int64(len(r.Contents)) }

// Subscriber receives subscribe/unsubscribe calls as endpoint names
// enter and leave the table. The core wires this to the surrounding
// dispatch framework's subscription API (out of scope for this core,
// per the specification); in this repository it is implemented by
// internal/core's actor, which simply records the current name set.
type Subscriber interface {
	Subscribe(endpointName string)
	Unsubscribe(endpointName string)
}

// Table is the prefix-keyed name -> Record mapping. All methods are
// safe to call only from the single actor goroutine that owns the
// table; Table itself does no internal locking beyond what is needed
// to let a status/debug snapshot read it concurrently through Get,
// Names, Fold and Len.
type Table struct {
	mu      sync.RWMutex
	records map[string]*Record
	sorted  []string
	sub     Subscriber
}

// New returns an empty Table that calls sub.Subscribe/Unsubscribe as
// entries are added and removed.
func New(sub Subscriber) *Table {
	return &Table{
		records: make(map[string]*Record),
		sub:     sub,
	}
}

// Put stores record under endpointName, subscribing if the name was not
// already present.
func (t *Table) Put(endpointName string, record *Record) {
	t.mu.Lock()
	_, existed := t.records[endpointName]
	t.records[endpointName] = record
	if !existed {
		t.insertSorted(endpointName)
	}
	t.mu.Unlock()

	if !existed {
		t.sub.Subscribe(endpointName)
	}
}

// Get returns the record stored under endpointName, if any.
func (t *Table) Get(endpointName string) (*Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[endpointName]
	return r, ok
}

// Remove erases endpointName from the table and unsubscribes it, if it
// was present.
func (t *Table) Remove(endpointName string) {
	t.mu.Lock()
	_, existed := t.records[endpointName]
	if existed {
		delete(t.records, endpointName)
		t.removeSorted(endpointName)
	}
	t.mu.Unlock()

	if existed {
		t.sub.Unsubscribe(endpointName)
	}
}

// Names returns every endpoint name whose logical path exactly equals
// pathPrefix (i.e. names of the form pathPrefix+"/"+suffix, or the bare
// pathPrefix itself). Used by OPTIONS to enumerate subscribed methods
// and by writers adding/removing one file's full suffix set.
func (t *Table) Names(pathPrefix string) []string {
	lowerBound := pathPrefix
	upperBound := pathPrefix + "0" // "/" (0x2f) < "0" (0x30); bounds the "pathPrefix" and "pathPrefix/*" range

	t.mu.RLock()
	defer t.mu.RUnlock()

	lo := sort.SearchStrings(t.sorted, lowerBound)
	hi := sort.SearchStrings(t.sorted, upperBound)

	var out []string
	for _, candidate := range t.sorted[lo:hi] {
		if name.HasPrefixPattern(candidate, pathPrefix) {
			out = append(out, candidate)
		}
	}
	return out
}

// Fold calls fn for every (name, record) pair currently in the table,
// in sorted-name order. fn must not mutate the table.
func (t *Table) Fold(fn func(endpointName string, record *Record)) {
	t.mu.RLock()
	names := make([]string, len(t.sorted))
	copy(names, t.sorted)
	t.mu.RUnlock()

	for _, n := range names {
		t.mu.RLock()
		r, ok := t.records[n]
		t.mu.RUnlock()
		if ok {
			fn(n, r)
		}
	}
}

// Len returns the number of entries currently in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

func (t *Table) insertSorted(name string) {
	idx := sort.SearchStrings(t.sorted, name)
	t.sorted = append(t.sorted, "")
	copy(t.sorted[idx+1:], t.sorted[idx:])
	t.sorted[idx] = name
}

func (t *Table) removeSorted(name string) {
	idx := sort.SearchStrings(t.sorted, name)
	if idx < len(t.sorted) && t.sorted[idx] == name {
		t.sorted = append(t.sorted[:idx], t.sorted[idx+1:]...)
	}
}
