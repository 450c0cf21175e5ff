package core

import "github.com/cachedepot/filecached/internal/name"

// Status is the JSON-serializable snapshot cmd/filecached exposes at
// /debug/status for the companion viewer to poll.
type Status struct {
	Directory    string       `json:"directory"`
	Policy       string       `json:"replace_policy"`
	UsedBytes    int64        `json:"used_bytes"`
	CeilingBytes int64        `json:"ceiling_bytes"`
	FileCount    int          `json:"file_count"`
	Files        []FileStatus `json:"files"`
}

// FileStatus is one row of the status table.
type FileStatus struct {
	Name            string `json:"name"`
	SizeBytes       int64  `json:"size_bytes"`
	PriorityKey     int64  `json:"priority_key"`
	SubscriberCount int    `json:"subscriber_count"`
}

// Status builds a point-in-time snapshot. Safe to call from outside
// the actor goroutine: it only reads via Table's own locking and the
// replacement engine's read-only Peek, at the cost of a possibly
// slightly stale view if called concurrently with a refresh.
func (c *Core) Status() Status {
	snap := Status{
		Directory:    c.cfg.Directory,
		Policy:       string(c.cfg.Replace),
		UsedBytes:    c.bud.Used(),
		CeilingBytes: c.bud.Ceiling(),
	}

	c.mu.Lock()
	subscribersByLogical := make(map[string]int, len(c.logicalNames))
	for endpointName := range c.subscribedNames {
		logical, _, ok := name.Split(endpointName)
		if !ok {
			logical = endpointName
		}
		subscribersByLogical[logical]++
	}
	c.mu.Unlock()

	for logicalName := range c.logicalNames {
		key, _ := c.engine.PeekKey(logicalName)
		getName := name.Suffixed(logicalName, name.Get, c.cfg.UseHTTPMethodRouting)
		var size int64
		if record, ok := c.table.Get(getName); ok {
			size = record.Size()
		}
		snap.Files = append(snap.Files, FileStatus{
			Name:            logicalName,
			SizeBytes:       size,
			PriorityKey:     key,
			SubscriberCount: subscribersByLogical[logicalName],
		})
	}
	snap.FileCount = len(snap.Files)
	return snap
}
