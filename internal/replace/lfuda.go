package replace

// lfudaState is the per-file tracked state: hits accumulated so far and
// bias, the size-independent contribution to priority computed at the
// last hit (or 0 if the file has never been hit since admission). The
// file's live priority key is always bias + engine.age; storing bias
// instead of a pre-added key is what lets eviction "age" every tracked
// file implicitly, without revisiting them.
type lfudaState struct {
	hits int64
	bias int64
}

type lfudaEngine struct {
	policy  Policy
	age     int64
	entries map[string]*lfudaState
}

func newLFUDAEngine(policy Policy) *lfudaEngine {
	return &lfudaEngine{
		policy:  policy,
		entries: make(map[string]*lfudaState),
	}
}

func (e *lfudaEngine) Policy() Policy { return e.policy }

func (e *lfudaEngine) Admit(filename string, sizeBytes int64) int64 {
	e.entries[filename] = &lfudaState{}
	return e.age
}

func (e *lfudaEngine) Hit(filename string, sizeBytes int64) int64 {
	st, ok := e.entries[filename]
	if !ok {
		st = &lfudaState{}
		e.entries[filename] = st
	}
	st.hits++
	st.bias = e.biasFor(st.hits, sizeBytes)
	return st.bias + e.age
}

func (e *lfudaEngine) Remove(filename string) {
	st, ok := e.entries[filename]
	if !ok {
		return
	}
	key := st.bias + e.age
	if key > e.age {
		e.age = key
	}
	delete(e.entries, filename)
}

func (e *lfudaEngine) PeekKey(filename string) (int64, bool) {
	st, ok := e.entries[filename]
	if !ok {
		return 0, false
	}
	return st.bias + e.age, true
}

func (e *lfudaEngine) DefaultKey() int64 { return e.age }

func (e *lfudaEngine) Snapshot() Snapshot {
	entries := make([]LFUDAEntry, 0, len(e.entries))
	for filename, st := range e.entries {
		entries = append(entries, LFUDAEntry{Filename: filename, Bias: st.bias, Hits: st.hits})
	}
	return Snapshot{Type: e.policy, LFUDAEntries: entries}
}

func (e *lfudaEngine) Restore(snap Snapshot) error {
	if snap.Type != e.policy {
		return policyMismatchError(e.policy, snap.Type)
	}
	e.entries = make(map[string]*lfudaState, len(snap.LFUDAEntries))
	for _, entry := range snap.LFUDAEntries {
		e.entries[entry.Filename] = &lfudaState{hits: entry.Hits, bias: entry.Bias}
	}
	// age stays 0: a fresh process lifetime, per the invariant that age
	// is non-decreasing only "over the process lifetime". Restored bias
	// values already encode each file's priority relative to whatever
	// age held at persistence time, so relative ordering between files
	// is preserved even though absolute key values are rebased to 0.
	e.age = 0
	return nil
}

// biasFor computes the size-independent contribution to priority for
// hits accumulated so far, per the policy's formula.
func (e *lfudaEngine) biasFor(hits, sizeBytes int64) int64 {
	if e.policy == LFUDAGDSF {
		denom := ceilDiv(max64(sizeBytes, minGDSFSizeBytes), 1024)
		return hits / denom
	}
	return hits
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 1
	}
	return (a + b - 1) / b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
