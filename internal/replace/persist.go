package replace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cachedepot/filecached/lib/codec"
)

// ReservedPrefix names the sidecar file family; the scanner excludes
// any file whose name starts with this prefix from directory scans.
const ReservedPrefix = ".filecached-replace-"

func policyMismatchError(want, got Policy) error {
	return fmt.Errorf("replace: sidecar type %q does not match configured policy %q", got, want)
}

// SidecarPath returns the sidecar file path for the given root
// directory and process index.
func SidecarPath(rootDir string, processIndex int) string {
	return filepath.Join(rootDir, fmt.Sprintf("%s%d", ReservedPrefix, processIndex))
}

// Save writes snap to the sidecar file via a temp-file-then-rename, so
// a crash mid-write never leaves a partially written sidecar in place.
func Save(rootDir string, processIndex int, snap Snapshot) error {
	path := SidecarPath(rootDir, processIndex)
	tmpPath := path + "._tmp"

	data, err := codec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("replace: encoding sidecar: %w", err)
	}
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("replace: writing sidecar temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace: renaming sidecar into place: %w", err)
	}
	return nil
}

// Load reads and decodes the sidecar file for rootDir/processIndex. It
// returns os.ErrNotExist (wrapped) if no sidecar exists yet, which
// callers should treat as "nothing to restore", not a fatal error.
func Load(rootDir string, processIndex int) (Snapshot, error) {
	path := SidecarPath(rootDir, processIndex)
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := codec.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("replace: decoding sidecar %s: %w", path, err)
	}
	return snap, nil
}
