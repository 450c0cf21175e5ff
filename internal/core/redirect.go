package core

import (
	"fmt"

	"github.com/cachedepot/filecached/internal/name"
)

// resolveRedirects evaluates every configured redirect pattern against
// the currently known logical names and stores the computed redirect
// target on each matching file's record. A pattern matching zero files
// is a startup failure.
func (c *Core) resolveRedirects() error {
	for _, rule := range c.cfg.Redirect {
		matched := 0
		for logicalName := range c.logicalNames {
			capture, ok := MatchPattern(rule.Pattern, logicalName)
			if !ok {
				continue
			}
			matched++
			c.applyRedirect(logicalName, Substitute(rule.TargetPattern, capture))
		}
		if matched == 0 {
			return fmt.Errorf("core: redirect pattern %q matched no files", rule.Pattern)
		}
	}
	return nil
}

func (c *Core) applyRedirect(logicalName, target string) {
	for _, endpointName := range c.table.Names(logicalName) {
		record, ok := c.table.Get(endpointName)
		if !ok {
			continue
		}
		_, method, hasSuffix := name.Split(endpointName)
		if hasSuffix && method != name.Get && method != name.Head {
			continue
		}
		clone := *record
		clone.Redirect = target
		c.table.Put(endpointName, &clone)
	}
}
