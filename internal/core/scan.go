package core

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/cachedepot/filecached/internal/filetable"
	"github.com/cachedepot/filecached/internal/scanner"
)

func secondsToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

func (c *Core) scanDirectory() scanner.Result {
	if len(c.cfg.Read) == 0 {
		return scanner.ScanRecursive(c.cfg.Directory, c.logger)
	}

	targets := make([]scanner.Target, 0, len(c.cfg.Read))
	for _, r := range c.cfg.Read {
		targets = append(targets, scanner.Target{Name: r.Name, Offset: r.Offset, Length: r.Length})
	}
	stat := func(logicalName string) (string, fs.FileInfo, error) {
		abs := c.abs(logicalName)
		info, err := os.Stat(abs)
		return abs, info, err
	}
	return scanner.ScanAllowlist(targets, stat, c.logger)
}

func (c *Core) writeCapabilityFor(logicalName string) filetable.WriteCapability {
	var capability filetable.WriteCapability
	if matchesAny(c.cfg.WriteTruncate, logicalName) {
		capability |= filetable.WriteTruncate
	}
	if matchesAny(c.cfg.WriteAppend, logicalName) {
		capability |= filetable.WriteAppend
	}
	return capability
}

func matchesAny(patterns []string, logicalName string) bool {
	for _, pattern := range patterns {
		if _, ok := MatchPattern(pattern, logicalName); ok {
			return true
		}
	}
	return false
}

func (c *Core) notificationsFor(logicalName string) []filetable.Notification {
	var out []filetable.Notification
	for _, rule := range c.cfg.NotifyOne {
		if _, ok := MatchPattern(rule.Pattern, logicalName); ok {
			out = append(out, filetable.Notification{Target: rule.Target, Multicast: false, Timeout: defaultNotifyTimeout, Priority: 0})
		}
	}
	for _, rule := range c.cfg.NotifyAll {
		if _, ok := MatchPattern(rule.Pattern, logicalName); ok {
			out = append(out, filetable.Notification{Target: rule.Target, Multicast: true, Timeout: defaultNotifyTimeout, Priority: 0})
		}
	}
	return out
}

const defaultNotifyTimeout = 10 * time.Second

// checkWritePatternsMatch fails startup if a write_truncate/write_append
// pattern matches no scanned file, the same requirement redirect
// patterns are held to.
func (c *Core) checkWritePatternsMatch() error {
	for _, pattern := range c.cfg.WriteTruncate {
		if !patternMatchesAny(pattern, c.logicalNames) {
			return fmt.Errorf("core: write_truncate pattern %q matched no files", pattern)
		}
	}
	for _, pattern := range c.cfg.WriteAppend {
		if !patternMatchesAny(pattern, c.logicalNames) {
			return fmt.Errorf("core: write_append pattern %q matched no files", pattern)
		}
	}
	return nil
}

// checkNotifyPatternsMatch fails startup if a notify_one/notify_all
// pattern matches no scanned file.
func (c *Core) checkNotifyPatternsMatch() error {
	for _, rule := range c.cfg.NotifyOne {
		if !patternMatchesAny(rule.Pattern, c.logicalNames) {
			return fmt.Errorf("core: notify_one pattern %q matched no files", rule.Pattern)
		}
	}
	for _, rule := range c.cfg.NotifyAll {
		if !patternMatchesAny(rule.Pattern, c.logicalNames) {
			return fmt.Errorf("core: notify_all pattern %q matched no files", rule.Pattern)
		}
	}
	return nil
}

func patternMatchesAny(pattern string, logicalNames map[string]bool) bool {
	for logicalName := range logicalNames {
		if _, ok := MatchPattern(pattern, logicalName); ok {
			return true
		}
	}
	return false
}

// checkWriteTargetsReadWrite fails startup if a file matched by a
// write_truncate/write_append pattern isn't read-write accessible on
// disk: the write capability would be granted but every PUT/POST
// against it would fail.
func (c *Core) checkWriteTargetsReadWrite(files []scanner.ScannedFile) error {
	for _, f := range files {
		if f.Access == filetable.AccessReadWrite {
			continue
		}
		if matchesAny(c.cfg.WriteTruncate, f.LogicalName) || matchesAny(c.cfg.WriteAppend, f.LogicalName) {
			return fmt.Errorf("core: %q is requested for write but is not read-write accessible", f.LogicalName)
		}
	}
	return nil
}
