package core

import (
	"os"

	"github.com/cachedepot/filecached/internal/filetable"
	"github.com/cachedepot/filecached/internal/name"
	"github.com/cachedepot/filecached/internal/scanner"
)

// priorityKey returns f's current replacement-engine priority, or the
// default a never-seen file would receive.
func (c *Core) priorityKey(logicalName string) int64 {
	if key, ok := c.engine.PeekKey(logicalName); ok {
		return key
	}
	return c.engine.DefaultKey()
}

// admitOrUpdate reads f's bytes from disk and either inserts a new
// record or updates an existing one, subject to the size budget. It
// returns false when admission failed because the budget ceiling would
// be exceeded, which the refresh loop uses to stop considering lower-
// priority candidates.
func (c *Core) admitOrUpdate(f scanner.ScannedFile) bool {
	data, err := os.ReadFile(f.AbsPath)
	if err != nil {
		c.logger.Warn("core: read failed, skipping", "name", f.LogicalName, "error", err)
		return true
	}
	offset := f.SegmentOffset
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	end := offset + f.SegmentLength
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	data = data[offset:end]

	existing, hadExisting := c.table.Get(name.Suffixed(f.LogicalName, name.Get, c.cfg.UseHTTPMethodRouting))
	var oldSize int64
	if hadExisting {
		oldSize = existing.Size()
	}
	newSize := int64(len(data))

	if _, ok := c.bud.TryAdmit(oldSize, newSize); !ok {
		c.logger.Warn("core: admission would exceed size budget, skipping", "name", f.LogicalName)
		return false
	}

	var mtime filetable.MTimeCounter
	changed := true
	if hadExisting {
		if existing.MTime.ModTime.Unix() == f.ModTime.Unix() {
			if string(existing.Contents) == string(data) {
				mtime = existing.MTime
				changed = false
			} else {
				mtime = filetable.MTimeCounter{ModTime: f.ModTime, Counter: existing.MTime.Counter + 1}
			}
		} else {
			mtime = filetable.MTimeCounter{ModTime: f.ModTime, Counter: 0}
		}
	} else {
		mtime = filetable.MTimeCounter{ModTime: f.ModTime, Counter: 0}
	}

	if !changed {
		return true
	}

	c.bud.Commit(oldSize, newSize)
	if c.replaceActive() && !hadExisting {
		c.engine.Admit(f.LogicalName, newSize)
	}

	record := &filetable.Record{
		Contents: data,
		Path:     f.AbsPath,
		Headers:  map[string]string{},
		MTime:    mtime,
		Access:   f.Access,
		Write:    c.writeCapabilityFor(f.LogicalName),
		Notify:   c.notificationsFor(f.LogicalName),
	}
	c.putAllMethods(f.LogicalName, record)
	c.logicalNames[f.LogicalName] = true

	if hadExisting {
		c.notifier.Fire(f.LogicalName, record.Notify, record.Contents)
	}
	return true
}

// putAllMethods stores record under every method-suffixed endpoint
// name the file's access and write capability permit, plus the
// index-alias names if applicable.
func (c *Core) putAllMethods(logicalName string, record *filetable.Record) {
	routing := c.cfg.UseHTTPMethodRouting
	if !routing {
		c.table.Put(logicalName, record)
		return
	}

	if record.Access == filetable.AccessRead || record.Access == filetable.AccessReadWrite {
		for _, m := range name.ReadMethods {
			c.table.Put(name.Suffixed(logicalName, m, routing), record)
		}
	}
	if record.Write&filetable.WriteTruncate != 0 {
		c.table.Put(name.Suffixed(logicalName, name.Put, routing), record)
	}
	if record.Write&filetable.WriteAppend != 0 {
		c.table.Put(name.Suffixed(logicalName, name.Post, routing), record)
	}

	if alias, ok := name.IndexAlias(logicalName); ok {
		for _, m := range name.ReadMethods {
			c.table.Put(name.Suffixed(alias, m, routing), record)
		}
	}
}

// removeAllMethods unsubscribes and erases every endpoint name
// belonging to logicalName.
func (c *Core) removeAllMethods(logicalName string) {
	for _, endpointName := range c.table.Names(logicalName) {
		c.table.Remove(endpointName)
	}
	if alias, ok := name.IndexAlias(logicalName); ok {
		for _, endpointName := range c.table.Names(alias) {
			c.table.Remove(endpointName)
		}
	}
	delete(c.logicalNames, logicalName)
	c.engine.Remove(logicalName)
}
