package core

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cachedepot/filecached/internal/appendengine"
	"github.com/cachedepot/filecached/internal/filetable"
	"github.com/cachedepot/filecached/internal/httpcache"
	"github.com/cachedepot/filecached/internal/name"
)

// dispatch answers one request against the current file table. This
// is the only place request handling touches table state, and it
// always runs on the actor goroutine.
func (c *Core) dispatch(endpointName string, headers map[string]string, body []byte) Response {
	record, ok := c.table.Get(endpointName)
	if !ok {
		return Response{Status: 404}
	}

	logicalPath, method, hasSuffix := name.Split(endpointName)
	if !hasSuffix {
		// HTTP-method routing disabled: the single subscription always reads.
		return c.dispatchRead(logicalPath, record, headers, false)
	}

	switch method {
	case name.Options:
		return c.dispatchOptions(logicalPath)
	case name.Head:
		return c.dispatchRead(logicalPath, record, headers, true)
	case name.Get:
		return c.dispatchRead(logicalPath, record, headers, false)
	case name.Put:
		return c.dispatchPut(logicalPath, record, headers, body)
	case name.Post:
		return c.dispatchPost(logicalPath, record, headers, body)
	default:
		return Response{Status: 404}
	}
}

func (c *Core) dispatchOptions(logicalPath string) Response {
	var tails []string
	for _, endpointName := range c.table.Names(logicalPath) {
		if _, method, ok := name.Split(endpointName); ok {
			tails = append(tails, string(method))
		}
	}
	return Response{
		Status:  200,
		Headers: []httpcache.HeaderField{{Key: "allow", Value: httpcache.AllowHeader(tails)}},
	}
}

func (c *Core) dispatchRead(logicalPath string, record *filetable.Record, headers map[string]string, isHead bool) Response {
	if record.Redirect != "" {
		return Response{Status: 301, Headers: []httpcache.HeaderField{{Key: "location", Value: record.Redirect}}}
	}

	etag := httpcache.ETag(record.MTime)
	opts := httpcache.Options{
		ClockSkewMax:         secondsToDuration(c.cfg.HTTPClockSkewMaxSeconds),
		CachingEnabled:       c.cacheSeconds > 0,
		UseExpires:           c.cfg.UseExpires,
		CacheSeconds:         c.cacheSeconds,
		MethodRoutingEnabled: c.cfg.UseHTTPMethodRouting,
		IsHead:               isHead,
	}

	result := httpcache.Evaluate(record.Contents, headers, etag, record.MTime.ModTime, c.clk.Now(), opts)
	if c.replaceActive() && (result.Status == 200 || result.Status == 206) {
		c.engine.Hit(logicalPath, record.Size())
	}
	resp := Response{Status: result.Status, Headers: result.Headers}

	if result.Boundary != "" {
		resp.Body = httpcache.RenderMultipart(result.Boundary, result.Parts)
	} else {
		resp.Body = result.Body
	}

	if c.cfg.UseContentTypes && result.Status < 300 {
		if ct := mime.TypeByExtension(filepath.Ext(logicalPath)); ct != "" {
			resp.Headers = append(resp.Headers, httpcache.HeaderField{Key: "content-type", Value: ct})
		}
	}
	if c.cfg.UseContentDisposition && result.Status < 300 {
		resp.Headers = append(resp.Headers, httpcache.HeaderField{
			Key:   "content-disposition",
			Value: fmt.Sprintf("attachment; filename=%q", filepath.Base(logicalPath)),
		})
	}
	return resp
}

func (c *Core) dispatchPut(logicalPath string, record *filetable.Record, headers map[string]string, body []byte) Response {
	if record.Write&filetable.WriteTruncate == 0 {
		return Response{Status: 404}
	}
	if headers["range"] != "" {
		return Response{Status: 400}
	}

	oldSize := record.Size()
	newSize := int64(len(body))
	if _, ok := c.bud.TryAdmit(oldSize, newSize); !ok {
		c.logger.Warn("core: PUT rejected, would exceed size budget", "name", logicalPath)
		return Response{Status: 400}
	}

	if err := os.WriteFile(record.Path, body, 0o644); err != nil {
		c.logger.Warn("core: PUT write failed", "name", logicalPath, "error", err)
		return Response{Status: 400}
	}
	c.bud.Commit(oldSize, newSize)

	info, err := os.Stat(record.Path)
	if err != nil {
		c.logger.Warn("core: PUT restat failed", "name", logicalPath, "error", err)
		return Response{Status: 400}
	}

	clone := *record
	clone.Contents = body
	// ETags carry whole seconds, so a rewrite within the same second
	// bumps the counter to keep the new ETag distinct.
	if clone.MTime.ModTime.Unix() == info.ModTime().Unix() {
		clone.MTime = filetable.MTimeCounter{ModTime: info.ModTime(), Counter: clone.MTime.Counter + 1}
	} else {
		clone.MTime = filetable.MTimeCounter{ModTime: info.ModTime(), Counter: 0}
	}
	c.putAllMethods(logicalPath, &clone)

	c.notifier.Fire(logicalPath, clone.Notify, clone.Contents)

	return c.dispatchRead(logicalPath, &clone, headers, false)
}

func (c *Core) dispatchPost(logicalPath string, record *filetable.Record, headers map[string]string, body []byte) Response {
	if record.Write&filetable.WriteAppend == 0 {
		return Response{Status: 404}
	}

	decision := appendengine.Decide(headers, int64(len(body)), record.Size())
	if decision.Status != 0 {
		return Response{Status: decision.Status}
	}

	chunk := filetable.AppendChunk{Index: decision.Index, Start: decision.Start, End: decision.End, Payload: body}

	if !decision.IsLast {
		timeout := parseTimeout(headers)
		c.appendBuf.Stage(record, decision.ID, chunk, timeout, func(id string) {
			c.appendExpiry <- appendExpiryMsg{logicalPath: logicalPath, id: id}
		})
		return Response{Status: 200}
	}

	var chunks []filetable.AppendChunk
	if decision.ID != "" {
		c.appendBuf.Stage(record, decision.ID, chunk, parseTimeout(headers), func(string) {})
		chunks = appendengine.Finish(record, decision.ID)
	} else {
		chunks = []filetable.AppendChunk{chunk}
	}

	newContents := appendengine.Apply(append([]byte{}, record.Contents...), chunks)

	oldSize := record.Size()
	newSize := int64(len(newContents))
	if _, ok := c.bud.TryAdmit(oldSize, newSize); !ok {
		c.logger.Warn("core: POST rejected, would exceed size budget", "name", logicalPath)
		return Response{Status: 400}
	}

	if err := os.WriteFile(record.Path, newContents, 0o644); err != nil {
		c.logger.Warn("core: POST write failed", "name", logicalPath, "error", err)
		return Response{Status: 400}
	}
	c.bud.Commit(oldSize, newSize)

	info, err := os.Stat(record.Path)
	if err != nil {
		c.logger.Warn("core: POST restat failed", "name", logicalPath, "error", err)
		return Response{Status: 400}
	}

	clone := *record
	clone.Contents = newContents
	if clone.MTime.ModTime.Unix() == info.ModTime().Unix() {
		clone.MTime = filetable.MTimeCounter{ModTime: info.ModTime(), Counter: clone.MTime.Counter + 1}
	} else {
		clone.MTime = filetable.MTimeCounter{ModTime: info.ModTime(), Counter: 0}
	}
	c.putAllMethods(logicalPath, &clone)

	c.notifier.Fire(logicalPath, clone.Notify, clone.Contents)

	// The request's Range header described the write, not a read, so
	// the reply is the full-body read response.
	return c.dispatchRead(logicalPath, &clone, map[string]string{}, false)
}

// handleAppendExpiry runs on the actor goroutine in response to a timer
// firing on its own goroutine; it is the only place a fired append
// timeout touches table state, so WriteAppends stays serialized with
// every other record mutation.
func (c *Core) handleAppendExpiry(logicalPath, id string) {
	record, ok := c.recordFor(logicalPath)
	if !ok {
		return
	}
	c.logger.Warn("core: multipart append expired, discarding pending chunks", "name", logicalPath, "id", id)
	appendengine.Finish(record, id)
}

// recordFor looks up logicalPath's current record regardless of
// whether HTTP-method routing is enabled, so callers outside dispatch
// (the append-expiry handler) don't need to know the table's key
// format.
func (c *Core) recordFor(logicalPath string) (*filetable.Record, bool) {
	if !c.cfg.UseHTTPMethodRouting {
		return c.table.Get(logicalPath)
	}
	return c.table.Get(name.Suffixed(logicalPath, name.Post, true))
}

func parseTimeout(headers map[string]string) time.Duration {
	if v := headers["x-multipart-timeout"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 30 * time.Second
}
