package scanner

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScanRecursiveSkipsSidecarAndFindsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "nested", "b.txt"), "world")
	writeFile(t, filepath.Join(dir, ".filecached-replace-0"), "sidecar")

	result := ScanRecursive(dir, discardLogger())

	names := map[string]bool{}
	for _, f := range result.Files {
		names[f.LogicalName] = true
	}
	if !names["a.txt"] || !names["nested/b.txt"] {
		t.Errorf("missing expected entries, got %v", names)
	}
	if names[".filecached-replace-0"] {
		t.Errorf("sidecar file should have been excluded")
	}
}

func TestScanRecursiveRejectsMetacharacterNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a[1].txt"), "x")

	result := ScanRecursive(dir, discardLogger())
	if len(result.Files) != 0 {
		t.Errorf("expected metacharacter file to be skipped, got %v", result.Files)
	}
	if len(result.Issues) != 1 {
		t.Errorf("expected one issue, got %d", len(result.Issues))
	}
}

func TestScanAllowlistAppliesSegment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "0123456789")

	offset := int64(2)
	length := int64(3)
	targets := []Target{{Name: "a.txt", Offset: &offset, Length: &length}}

	stat := func(name string) (string, fs.FileInfo, error) {
		abs := filepath.Join(dir, name)
		info, err := os.Stat(abs)
		return abs, info, err
	}

	result := ScanAllowlist(targets, stat, discardLogger())
	if len(result.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(result.Files))
	}
	f := result.Files[0]
	if f.SegmentOffset != 2 || f.SegmentLength != 3 {
		t.Errorf("segment = (%d,%d), want (2,3)", f.SegmentOffset, f.SegmentLength)
	}
}

func TestScanAllowlistMissingFileBecomesIssue(t *testing.T) {
	dir := t.TempDir()
	stat := func(name string) (string, fs.FileInfo, error) {
		abs := filepath.Join(dir, name)
		info, err := os.Stat(abs)
		return abs, info, err
	}

	result := ScanAllowlist([]Target{{Name: "missing.txt"}}, stat, discardLogger())
	if len(result.Files) != 0 || len(result.Issues) != 1 {
		t.Errorf("expected 0 files and 1 issue, got %d files, %d issues", len(result.Files), len(result.Issues))
	}
}

func TestResolveSegmentDefaultsToWholeFile(t *testing.T) {
	offset, length := ResolveSegment(100, nil, nil)
	if offset != 0 || length != 100 {
		t.Errorf("got (%d,%d), want (0,100)", offset, length)
	}
}

func TestResolveSegmentNegativeOffsetFromEnd(t *testing.T) {
	neg := int64(-10)
	offset, length := ResolveSegment(100, &neg, nil)
	if offset != 90 || length != 10 {
		t.Errorf("got (%d,%d), want (90,10)", offset, length)
	}
}

func TestResolveSegmentLengthClampedToRemaining(t *testing.T) {
	off := int64(90)
	ln := int64(1000)
	offset, length := ResolveSegment(100, &off, &ln)
	if offset != 90 || length != 10 {
		t.Errorf("got (%d,%d), want (90,10) clamped", offset, length)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}
