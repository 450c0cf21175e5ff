// Package scanner enumerates files under the content root, either by
// recursive directory walk or against an explicit allow-list of named
// segments, and reports enough filesystem metadata for the file table
// and replacement engine to decide what to do with each entry.
package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cachedepot/filecached/internal/filetable"
	"github.com/cachedepot/filecached/internal/replace"
)

// PatternMetachars are the characters reserved for subscription and
// redirect/notify pattern matching; a filename containing one of these
// cannot be safely turned into a literal endpoint name and is rejected.
const PatternMetachars = "*?[]"

// Target names one allow-listed file and the byte segment of it to
// serve. Offset and Length are nil when unspecified.
type Target struct {
	Name   string
	Offset *int64
	Length *int64
}

// ScannedFile is one file the scanner observed, ready for the file
// table to admit or update.
type ScannedFile struct {
	AbsPath     string
	LogicalName string
	ModTime     time.Time
	Access      filetable.Access

	// FullSizeBytes is the on-disk file's total size, independent of
	// any segment restriction.
	FullSizeBytes int64

	// SegmentOffset and SegmentLength describe the byte range to
	// read, already resolved against FullSizeBytes (negative offsets
	// and "no length" both resolved to concrete non-negative values).
	// SegmentLength of -1 outside ResolveSegment should never be
	// observed by callers; ResolveSegment always produces a concrete value.
	SegmentOffset int64
	SegmentLength int64
}

// Result is the outcome of one scan: usable entries plus logged-worthy
// problems for entries the scanner skipped.
type Result struct {
	Files  []ScannedFile
	Issues []Issue
}

// Issue describes one file the scanner chose not to surface, and why.
type Issue struct {
	Name string
	Err  error
}

func isReservedName(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, replace.ReservedPrefix)
}

func hasMetachar(name string) bool {
	return strings.ContainsAny(name, PatternMetachars)
}

// ScanRecursive walks the entire root directory, skipping the
// replacement-index sidecar family and any non-regular or unreadable
// files (logged as Issues, scan continues).
func ScanRecursive(root string, logger *slog.Logger) Result {
	var result Result

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			result.Issues = append(result.Issues, Issue{Name: path, Err: walkErr})
			logger.Warn("scanner: walk error", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			result.Issues = append(result.Issues, Issue{Name: path, Err: err})
			return nil
		}
		logicalName := filepath.ToSlash(rel)

		if isReservedName(logicalName) {
			return nil
		}

		if hasMetachar(logicalName) {
			result.Issues = append(result.Issues, Issue{Name: logicalName, Err: fmt.Errorf("scanner: name contains reserved pattern metacharacter")})
			logger.Warn("scanner: skipping file with reserved metacharacter", "name", logicalName)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Issues = append(result.Issues, Issue{Name: logicalName, Err: err})
			logger.Warn("scanner: stat failed", "name", logicalName, "error", err)
			return nil
		}

		if !info.Mode().IsRegular() {
			result.Issues = append(result.Issues, Issue{Name: logicalName, Err: fmt.Errorf("scanner: not a regular file")})
			logger.Warn("scanner: skipping non-regular file", "name", logicalName, "mode", info.Mode().String())
			return nil
		}

		result.Files = append(result.Files, ScannedFile{
			AbsPath:       path,
			LogicalName:   logicalName,
			ModTime:       info.ModTime(),
			Access:        accessFromMode(info.Mode()),
			FullSizeBytes: info.Size(),
			SegmentOffset: 0,
			SegmentLength: info.Size(),
		})
		return nil
	})
	if err != nil {
		result.Issues = append(result.Issues, Issue{Name: root, Err: err})
	}

	return result
}

// ScanAllowlist stats exactly the named targets, each restricted to its
// configured byte segment. A target naming a nonexistent or unreadable
// file is reported as an Issue and omitted from Files; the scan does
// not abort.
func ScanAllowlist(targets []Target, stat func(name string) (abs string, info fs.FileInfo, err error), logger *slog.Logger) Result {
	var result Result

	for _, target := range targets {
		if hasMetachar(target.Name) {
			result.Issues = append(result.Issues, Issue{Name: target.Name, Err: fmt.Errorf("scanner: name contains reserved pattern metacharacter")})
			logger.Warn("scanner: skipping allow-list entry with reserved metacharacter", "name", target.Name)
			continue
		}

		abs, info, err := stat(target.Name)
		if err != nil {
			result.Issues = append(result.Issues, Issue{Name: target.Name, Err: err})
			logger.Warn("scanner: allow-list stat failed", "name", target.Name, "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			result.Issues = append(result.Issues, Issue{Name: target.Name, Err: fmt.Errorf("scanner: not a regular file")})
			logger.Warn("scanner: skipping non-regular allow-list entry", "name", target.Name)
			continue
		}

		offset, length := ResolveSegment(info.Size(), target.Offset, target.Length)
		result.Files = append(result.Files, ScannedFile{
			AbsPath:       abs,
			LogicalName:   target.Name,
			ModTime:       info.ModTime(),
			Access:        accessFromMode(info.Mode()),
			FullSizeBytes: info.Size(),
			SegmentOffset: offset,
			SegmentLength: length,
		})
	}

	return result
}

// ResolveSegment turns an (offset, length) pair — either of which may
// be nil/absent — into concrete, clamped (offset, length) values
// against a file of the given full size. A nil offset means 0; a
// negative offset means "that many bytes before EOF". A nil length
// means "to EOF"; per the specification's append-engine suffix-length
// convention, a negative length is not meaningful here and is clamped
// to 0.
func ResolveSegment(fullSize int64, offset, length *int64) (resolvedOffset, resolvedLength int64) {
	resolvedOffset = 0
	if offset != nil {
		resolvedOffset = *offset
		if resolvedOffset < 0 {
			resolvedOffset = fullSize + resolvedOffset
		}
	}
	if resolvedOffset < 0 {
		resolvedOffset = 0
	}
	if resolvedOffset > fullSize {
		resolvedOffset = fullSize
	}

	remaining := fullSize - resolvedOffset
	resolvedLength = remaining
	if length != nil {
		resolvedLength = *length
		if resolvedLength < 0 {
			resolvedLength = 0
		}
		if resolvedLength > remaining {
			resolvedLength = remaining
		}
	}
	return resolvedOffset, resolvedLength
}

// accessFromMode approximates the file's access mode from its owner
// permission bits. The specification's {read, write, read-write, none}
// access set is filesystem-derived; this repository has no syscall
// access() probe available in the standard library alone, so owner
// read/write permission bits are used as the practical substitute.
func accessFromMode(mode fs.FileMode) filetable.Access {
	perm := mode.Perm()
	readable := perm&0o400 != 0
	writable := perm&0o200 != 0
	switch {
	case readable && writable:
		return filetable.AccessReadWrite
	case readable:
		return filetable.AccessRead
	case writable:
		return filetable.AccessWrite
	default:
		return filetable.AccessNone
	}
}
