// Package budget enforces the optional global byte ceiling across the
// file table's in-memory contents.
package budget

// Budget tracks current byte usage against an optional ceiling. The
// zero value is an unbounded budget (ceiling 0 means "no limit").
type Budget struct {
	ceilingBytes int64
	usedBytes    int64
}

// New returns a Budget with the given ceiling in bytes. A ceiling of 0
// means unbounded.
func New(ceilingBytes int64) *Budget {
	return &Budget{ceilingBytes: ceilingBytes}
}

// Used returns current tracked byte usage.
func (b *Budget) Used() int64 { return b.usedBytes }

// Ceiling returns the configured ceiling in bytes, or 0 if unbounded.
func (b *Budget) Ceiling() int64 { return b.ceilingBytes }

// TryAdmit computes prospective usage = (used - oldSize) + newSize and
// reports whether it fits under the ceiling. It does not mutate usage;
// call Commit with the same oldSize/newSize once the caller has
// actually applied the corresponding change.
func (b *Budget) TryAdmit(oldSize, newSize int64) (prospective int64, ok bool) {
	prospective = b.usedBytes - oldSize + newSize
	if b.ceilingBytes > 0 && prospective > b.ceilingBytes {
		return prospective, false
	}
	return prospective, true
}

// Commit applies a previously admitted change to tracked usage.
func (b *Budget) Commit(oldSize, newSize int64) {
	b.usedBytes += newSize - oldSize
}
