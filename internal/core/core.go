// Package core implements the single-threaded actor that owns the file
// table, the size budget, and the replacement engine, and answers every
// request the dispatch layer delivers to it.
//
// All state mutation happens on one goroutine (Run); everything else
// talks to the actor through Submit, which is safe to call from any
// goroutine.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cachedepot/filecached/internal/appendengine"
	"github.com/cachedepot/filecached/internal/budget"
	"github.com/cachedepot/filecached/internal/filetable"
	"github.com/cachedepot/filecached/internal/httpcache"
	"github.com/cachedepot/filecached/internal/notify"
	"github.com/cachedepot/filecached/internal/replace"
	"github.com/cachedepot/filecached/lib/clock"
	"github.com/cachedepot/filecached/lib/config"
)

// Core is the cache's actor: it owns the file table, budget, and
// replacement engine, and serializes every request, refresh tick, and
// append timeout through a single goroutine.
type Core struct {
	cfg    config.Config
	logger *slog.Logger
	clk    clock.Clock

	table    *filetable.Table
	bud      *budget.Budget
	engine   replace.Engine
	appendBuf *appendengine.Buffer
	notifier *notify.Dispatcher

	cacheSeconds int64

	requests     chan requestMsg
	appendExpiry chan appendExpiryMsg
	ticker       *clock.Ticker

	mu              sync.Mutex
	subscribedNames map[string]bool
	logicalNames    map[string]bool
}

type requestMsg struct {
	endpointName string
	headers      map[string]string
	body         []byte
	reply        chan Response
}

// appendExpiryMsg reports that a multipart append's timeout fired. The
// timer itself runs on its own goroutine (clk.AfterFunc); it only ever
// sends on this channel, never touches table state directly, so every
// mutation still happens on the actor goroutine in Run.
type appendExpiryMsg struct {
	logicalPath string
	id          string
}

// Response is what the dispatch layer sends back over the wire.
type Response struct {
	Status  int
	Headers []httpcache.HeaderField
	Body    []byte
}

// New constructs a Core from cfg: it performs the initial directory
// scan, resolves redirect patterns (failing if any pattern matches no
// file), restores the replacement-index sidecar if enabled, and fires
// startup notifications if configured. The returned Core has not yet
// started its actor loop; call Run for that.
func New(cfg config.Config, logger *slog.Logger, clk clock.Clock, sender notify.Sender) (*Core, error) {
	engine, err := replace.New(replacePolicy(cfg.Replace))
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	c := &Core{
		cfg:             cfg,
		logger:          logger,
		clk:             clk,
		bud:             budget.New(cfg.FilesSizeKiB * 1024),
		engine:          engine,
		appendBuf:       appendengine.New(clk),
		notifier:        notify.New(sender, logger),
		requests:        make(chan requestMsg, 64),
		appendExpiry:    make(chan appendExpiryMsg, 64),
		subscribedNames: make(map[string]bool),
		logicalNames:    make(map[string]bool),
		cacheSeconds:    resolveCacheSeconds(cfg),
	}
	c.table = filetable.New(c)

	if cfg.ReplaceIndex {
		if snap, err := replace.Load(cfg.Directory, cfg.ProcessIndex); err == nil {
			if err := c.engine.Restore(snap); err != nil {
				logger.Warn("core: replacement sidecar type mismatch, ignoring", "error", err)
			}
		} else if !os.IsNotExist(err) {
			logger.Warn("core: replacement sidecar unreadable, ignoring", "error", err)
		}
	}

	result := c.scanDirectory()
	for _, issue := range result.Issues {
		logger.Warn("core: scan issue", "name", issue.Name, "error", issue.Err)
	}
	for _, f := range result.Files {
		c.admitOrUpdate(f)
	}

	if err := c.resolveRedirects(); err != nil {
		return nil, err
	}
	if err := c.checkWritePatternsMatch(); err != nil {
		return nil, err
	}
	if err := c.checkNotifyPatternsMatch(); err != nil {
		return nil, err
	}
	if err := c.checkWriteTargetsReadWrite(result.Files); err != nil {
		return nil, err
	}

	if cfg.NotifyOnStart {
		c.notifier.FireOnStart(c.table)
	}

	return c, nil
}

func replacePolicy(p config.ReplacePolicy) replace.Policy {
	switch p {
	case config.ReplaceLFUDA:
		return replace.LFUDA
	case config.ReplaceLFUDAGDSF:
		return replace.LFUDAGDSF
	case config.ReplaceLRU:
		return replace.LRU
	default:
		return replace.None
	}
}

func (c *Core) replaceActive() bool {
	return c.cfg.Replace == config.ReplaceLFUDA || c.cfg.Replace == config.ReplaceLFUDAGDSF || c.cfg.Replace == config.ReplaceLRU
}

func resolveCacheSeconds(cfg config.Config) int64 {
	if cfg.Cache == "refresh" {
		half := cfg.RefreshSeconds / 2
		if half < 1 {
			half = 1
		}
		return half
	}
	var seconds int64
	_, _ = fmt.Sscanf(cfg.Cache, "%d", &seconds)
	return seconds
}

// Subscribe implements filetable.Subscriber.
func (c *Core) Subscribe(endpointName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribedNames[endpointName] = true
}

// Unsubscribe implements filetable.Subscriber.
func (c *Core) Unsubscribe(endpointName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribedNames, endpointName)
}

// SubscribedNames returns a sorted snapshot of every endpoint name
// currently registered.
func (c *Core) SubscribedNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subscribedNames))
	for n := range c.subscribedNames {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Submit enqueues one request for the actor to process and blocks for
// its reply. Safe to call from any goroutine.
func (c *Core) Submit(ctx context.Context, endpointName string, headers map[string]string, body []byte) (Response, error) {
	msg := requestMsg{endpointName: endpointName, headers: headers, body: body, reply: make(chan Response, 1)}
	select {
	case c.requests <- msg:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case resp := <-msg.reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Run is the actor loop: it processes requests and refresh ticks one
// at a time until ctx is cancelled. RefreshSeconds == 0 disables the
// refresh loop; the table is then populated once, at New.
func (c *Core) Run(ctx context.Context) {
	var tickC <-chan time.Time
	if c.cfg.RefreshSeconds > 0 {
		c.ticker = c.clk.NewTicker(secondsToDuration(c.cfg.RefreshSeconds))
		defer c.ticker.Stop()
		tickC = c.ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.requests:
			msg.reply <- c.dispatch(msg.endpointName, msg.headers, msg.body)
		case exp := <-c.appendExpiry:
			c.handleAppendExpiry(exp.logicalPath, exp.id)
		case <-tickC:
			c.refresh()
		}
	}
}

func (c *Core) abs(logicalName string) string {
	return filepath.Join(c.cfg.Directory, logicalName)
}
