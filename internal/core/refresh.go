package core

import (
	"sort"

	"github.com/cachedepot/filecached/internal/replace"
)

// refresh rescans the directory, admits or updates every candidate
// (in priority order when a replacement engine is active, stopping at
// the first one the budget rejects), removes files no longer present,
// and persists the replacement-index sidecar if configured.
func (c *Core) refresh() {
	result := c.scanDirectory()
	for _, issue := range result.Issues {
		c.logger.Warn("core: refresh scan issue", "name", issue.Name, "error", issue.Err)
	}

	candidates := result.Files
	if c.replaceActive() {
		sort.SliceStable(candidates, func(i, j int) bool {
			ki, kj := c.priorityKey(candidates[i].LogicalName), c.priorityKey(candidates[j].LogicalName)
			if ki != kj {
				return ki > kj
			}
			return candidates[i].FullSizeBytes < candidates[j].FullSizeBytes
		})
	}

	seen := make(map[string]bool, len(candidates))
	for _, f := range candidates {
		seen[f.LogicalName] = true
		if !c.admitOrUpdate(f) {
			c.logger.Warn("core: refresh budget exhausted, dropping remaining lower-priority candidates", "at", f.LogicalName)
			break
		}
	}

	for logicalName := range c.logicalNames {
		if !seen[logicalName] {
			c.removeAllMethods(logicalName)
		}
	}

	if c.cfg.ReplaceIndex {
		if err := replace.Save(c.cfg.Directory, c.cfg.ProcessIndex, c.engine.Snapshot()); err != nil {
			c.logger.Warn("core: failed to persist replacement index", "error", err)
		}
	}
}
