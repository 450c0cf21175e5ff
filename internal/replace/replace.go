// Package replace implements the cache-replacement engines: LFUDA (with
// either the LFUDA or GDSF priority formula) and LRU. An Engine tracks a
// per-file priority key, updates it on every hit, ages the whole policy
// on eviction, and persists/restores its index across restarts through
// lib/codec's CBOR encoding.
package replace

import "fmt"

// Policy names which replacement algorithm an Engine implements. The
// string values double as the persisted sidecar's type tag (section
// 4.4/6 of the specification).
type Policy string

const (
	// None disables replacement tracking entirely: the table grows
	// unbounded by priority (the size budget still applies independently)
	// and every file has the same, uninteresting priority key.
	None      Policy = "none"
	LFUDA     Policy = "lfuda"
	LFUDAGDSF Policy = "lfuda_gdsf"
	LRU       Policy = "lru"
)

// minGDSFSizeBytes is the minimum size used in the GDSF denominator, so
// a 0-byte file does not divide by zero.
const minGDSFSizeBytes = 1024

// Engine is a replacement algorithm instance, bound to one file table.
// All methods are called only from the single actor goroutine; Engine
// does no internal locking.
type Engine interface {
	// Policy identifies the algorithm this Engine implements.
	Policy() Policy

	// Admit registers a file newly entering the table and returns its
	// initial priority key. Must be called at most once per filename
	// between Admit and a matching Remove.
	Admit(filename string, sizeBytes int64) int64

	// Hit updates a tracked file's priority on a successful access and
	// returns the new key.
	Hit(filename string, sizeBytes int64) int64

	// Remove drops a file's tracked entry, aging the policy if the
	// removed entry's key exceeded the current age/start reference.
	Remove(filename string)

	// PeekKey returns the current priority key for a tracked file
	// without mutating state. ok is false if filename was never
	// admitted (or has since been removed).
	PeekKey(filename string) (key int64, ok bool)

	// DefaultKey returns the key a brand-new file would receive if
	// admitted right now; used by the refresh loop to sort untracked
	// scan candidates.
	DefaultKey() int64

	// Snapshot returns the current index in a form suitable for CBOR
	// persistence.
	Snapshot() Snapshot

	// Restore rebases the engine's state from a previously persisted
	// snapshot. Returns an error if snap's Type does not match this
	// Engine's Policy.
	Restore(snap Snapshot) error
}

// Snapshot is the tagged value persisted to the replacement-index
// sidecar file: (replace_type, list). Exactly one of LFUDAEntries or
// LRUEntries is populated, selected by Type.
type Snapshot struct {
	Type         Policy        `cbor:"type"`
	LFUDAEntries []LFUDAEntry  `cbor:"lfuda_entries,omitempty"`
	LRUEntries   []LRUEntry    `cbor:"lru_entries,omitempty"`
}

// LFUDAEntry is one persisted (filename, (K - age, hits)) pair.
type LFUDAEntry struct {
	Filename string `cbor:"filename"`
	Bias     int64  `cbor:"bias"` // K - age at the time of persistence
	Hits     int64  `cbor:"hits"`
}

// LRUEntry is one persisted (filename, timestamp) pair.
type LRUEntry struct {
	Filename  string `cbor:"filename"`
	Timestamp int64  `cbor:"timestamp"`
}

// New constructs an Engine for the given policy. LFUDA and LFUDAGDSF
// share an implementation distinguished only by the hit formula; LRU is
// a distinct, simpler implementation.
func New(policy Policy) (Engine, error) {
	switch policy {
	case None, "":
		return newNoopEngine(), nil
	case LFUDA, LFUDAGDSF:
		return newLFUDAEngine(policy), nil
	case LRU:
		return newLRUEngine(), nil
	default:
		return nil, fmt.Errorf("replace: unknown policy %q", policy)
	}
}
