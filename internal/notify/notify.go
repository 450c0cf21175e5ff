// Package notify dispatches a file's contents to its configured
// subscriber list: on startup (if enabled), after every successful
// write, and after every refresh that changes a file's mtime.
package notify

import (
	"log/slog"
	"time"

	"github.com/cachedepot/filecached/internal/filetable"
)

// Sender is the dispatching framework's async-send surface, as
// consumed by the core: deliver payload to target, unicast or
// multicast, bounded by timeout, at the given priority.
type Sender interface {
	Send(target string, multicast bool, payload []byte, timeout time.Duration, priority int) error
}

// Dispatcher fires a file's notification list through a Sender,
// logging (not failing) individual send errors — a notification
// failure is isolated to that target, per the propagation policy.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

// New returns a Dispatcher that delivers through sender.
func New(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Fire delivers contents to every entry in notifications.
func (d *Dispatcher) Fire(logicalName string, notifications []filetable.Notification, contents []byte) {
	for _, n := range notifications {
		if err := d.sender.Send(n.Target, n.Multicast, contents, n.Timeout, n.Priority); err != nil {
			d.logger.Warn("notify: send failed", "file", logicalName, "target", n.Target, "error", err)
		}
	}
}

// FireOnStart delivers every tracked file's current contents to its
// notification list, used once at startup when notify_on_start is set.
func (d *Dispatcher) FireOnStart(table *filetable.Table) {
	// One file is stored under several endpoint names (one per method,
	// plus index aliases); deliver once per file, keyed by its path.
	seen := make(map[string]bool)
	table.Fold(func(name string, record *filetable.Record) {
		if len(record.Notify) == 0 {
			return
		}
		key := record.Path
		if key == "" {
			key = name
		}
		if seen[key] {
			return
		}
		seen[key] = true
		d.Fire(name, record.Notify, record.Contents)
	})
}
