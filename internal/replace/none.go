package replace

// noopEngine backs Policy None: no file is ever tracked, no candidate
// is ever preferred over another, and the size budget (enforced
// independently of the replacement engine) is the only limit applied.
type noopEngine struct{}

func newNoopEngine() *noopEngine { return &noopEngine{} }

func (e *noopEngine) Policy() Policy { return None }

func (e *noopEngine) Admit(filename string, sizeBytes int64) int64 { return 0 }

func (e *noopEngine) Hit(filename string, sizeBytes int64) int64 { return 0 }

func (e *noopEngine) Remove(filename string) {}

func (e *noopEngine) PeekKey(filename string) (int64, bool) { return 0, false }

func (e *noopEngine) DefaultKey() int64 { return 0 }

func (e *noopEngine) Snapshot() Snapshot { return Snapshot{Type: None} }

func (e *noopEngine) Restore(snap Snapshot) error {
	if snap.Type != None {
		return policyMismatchError(None, snap.Type)
	}
	return nil
}
