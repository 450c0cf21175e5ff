package core

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cachedepot/filecached/lib/clock"
	"github.com/cachedepot/filecached/lib/config"
	"github.com/cachedepot/filecached/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noopSender struct{}

func (noopSender) Send(target string, multicast bool, payload []byte, timeout time.Duration, priority int) error {
	return nil
}

func header(resp Response, key string) (string, bool) {
	for _, h := range resp.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("writeFile %s: %v", name, err)
	}
}

func newTestCore(t *testing.T, mutate func(*config.Config)) *Core {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "hello.txt", "hello, world")

	cfg := *config.Default()
	cfg.Directory = dir
	cfg.HTTPClockSkewMaxSeconds = 300
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg, discardLogger(), clock.Real(), noopSender{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestPlainGetServesFullBodyWithETagAndDate(t *testing.T) {
	c := newTestCore(t, nil)
	resp := c.dispatch("hello.txt/get", map[string]string{}, nil)

	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != "hello, world" {
		t.Fatalf("body = %q", resp.Body)
	}
	if _, ok := header(resp, "etag"); !ok {
		t.Error("missing etag header")
	}
}

func TestSingleByteRangeReturns206(t *testing.T) {
	c := newTestCore(t, nil)
	resp := c.dispatch("hello.txt/get", map[string]string{"range": "bytes=0-4"}, nil)

	if resp.Status != 206 {
		t.Fatalf("status = %d, want 206", resp.Status)
	}
	if string(resp.Body) != "hello" {
		t.Fatalf("body = %q, want %q", resp.Body, "hello")
	}
	if cr, _ := header(resp, "content-range"); cr != "bytes 0-4/12" {
		t.Errorf("content-range = %q", cr)
	}
}

func TestIfNoneMatchCurrentETagYields304(t *testing.T) {
	c := newTestCore(t, nil)
	first := c.dispatch("hello.txt/get", map[string]string{}, nil)
	etag, _ := header(first, "etag")

	second := c.dispatch("hello.txt/get", map[string]string{"if-none-match": etag}, nil)
	if second.Status != 304 {
		t.Fatalf("status = %d, want 304", second.Status)
	}
	if len(second.Body) != 0 {
		t.Errorf("304 body should be empty, got %q", second.Body)
	}
}

func TestUnknownEndpointNameYields404(t *testing.T) {
	c := newTestCore(t, nil)
	resp := c.dispatch("missing.txt/get", map[string]string{}, nil)
	if resp.Status != 404 {
		t.Fatalf("status = %d, want 404", resp.Status)
	}
}

func TestOptionsListsSubscribedMethods(t *testing.T) {
	c := newTestCore(t, nil)
	resp := c.dispatch("hello.txt/options", map[string]string{}, nil)
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	allow, ok := header(resp, "allow")
	if !ok {
		t.Fatal("missing allow header")
	}
	if allow == "" {
		t.Error("allow header is empty")
	}
}

func TestMethodRoutingDisabledAlwaysReads(t *testing.T) {
	c := newTestCore(t, func(cfg *config.Config) {
		cfg.UseHTTPMethodRouting = false
	})
	resp := c.dispatch("hello.txt", map[string]string{}, nil)
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != "hello, world" {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestPutWithoutWriteCapabilityYields404(t *testing.T) {
	c := newTestCore(t, nil)
	resp := c.dispatch("hello.txt/put", map[string]string{}, []byte("new contents"))
	if resp.Status != 404 {
		t.Fatalf("status = %d, want 404", resp.Status)
	}
}

func TestPutTruncatesAndUpdatesETag(t *testing.T) {
	c := newTestCore(t, func(cfg *config.Config) {
		cfg.WriteTruncate = []string{"hello.txt"}
	})
	before := c.dispatch("hello.txt/get", map[string]string{}, nil)
	beforeETag, _ := header(before, "etag")

	put := c.dispatch("hello.txt/put", map[string]string{}, []byte("replaced"))
	if put.Status != 200 {
		t.Fatalf("put status = %d, want 200", put.Status)
	}
	if string(put.Body) != "replaced" {
		t.Fatalf("put body = %q", put.Body)
	}
	afterETag, _ := header(put, "etag")
	if afterETag == beforeETag {
		t.Error("etag did not change after PUT")
	}

	get := c.dispatch("hello.txt/get", map[string]string{}, nil)
	if string(get.Body) != "replaced" {
		t.Fatalf("subsequent GET body = %q", get.Body)
	}
}

func TestPutWithRangeHeaderIsRejected(t *testing.T) {
	c := newTestCore(t, func(cfg *config.Config) {
		cfg.WriteTruncate = []string{"hello.txt"}
	})
	resp := c.dispatch("hello.txt/put", map[string]string{"range": "bytes=0-3"}, []byte("x"))
	if resp.Status != 400 {
		t.Fatalf("status = %d, want 400", resp.Status)
	}
}

func TestPostAppendWithoutIDIsTerminal(t *testing.T) {
	c := newTestCore(t, func(cfg *config.Config) {
		cfg.WriteAppend = []string{"hello.txt"}
	})
	resp := c.dispatch("hello.txt/post", map[string]string{}, []byte("!"))
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}

	get := c.dispatch("hello.txt/get", map[string]string{}, nil)
	if string(get.Body) != "hello, world!" {
		t.Fatalf("body after append = %q", get.Body)
	}
}

func TestPostMultipartReassemblyByIndex(t *testing.T) {
	c := newTestCore(t, func(cfg *config.Config) {
		cfg.WriteAppend = []string{"hello.txt"}
	})

	headers1 := map[string]string{
		"range":            "bytes=0-4",
		"x-multipart-id":   "batch-1",
		"x-multipart-last": "false",
	}
	first := c.dispatch("hello.txt/post", headers1, []byte("HELLO"))
	if first.Status != 200 {
		t.Fatalf("first chunk status = %d, want 200", first.Status)
	}

	headers2 := map[string]string{
		"range":            "bytes=5-11",
		"x-multipart-id":   "batch-1",
		"x-multipart-last": "true",
	}
	second := c.dispatch("hello.txt/post", headers2, []byte(", WORLD"))
	if second.Status != 200 {
		t.Fatalf("final chunk status = %d, want 200", second.Status)
	}

	get := c.dispatch("hello.txt/get", map[string]string{}, nil)
	if string(get.Body) != "HELLO, WORLD" {
		t.Fatalf("body = %q, want %q", get.Body, "HELLO, WORLD")
	}
}

func TestRedirectPatternMatchingZeroFilesFailsStartup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hello.txt", "hi")

	cfg := *config.Default()
	cfg.Directory = dir
	cfg.Redirect = []config.RedirectRule{{Pattern: "nonexistent-*", TargetPattern: "/elsewhere/*"}}

	if _, err := New(cfg, discardLogger(), clock.Real(), noopSender{}); err == nil {
		t.Fatal("expected startup error for unmatched redirect pattern")
	}
}

func TestRedirectAppliesToMatchingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "old.txt", "hi")

	cfg := *config.Default()
	cfg.Directory = dir
	cfg.Redirect = []config.RedirectRule{{Pattern: "old.txt", TargetPattern: "/new.txt"}}

	c, err := New(cfg, discardLogger(), clock.Real(), noopSender{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp := c.dispatch("old.txt/get", map[string]string{}, nil)
	if resp.Status != 301 {
		t.Fatalf("status = %d, want 301", resp.Status)
	}
	if loc, _ := header(resp, "location"); loc != "/new.txt" {
		t.Errorf("location = %q, want /new.txt", loc)
	}
}

func TestRefreshRemovesDeletedFileAndPicksUpNewOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "aaa")

	cfg := *config.Default()
	cfg.Directory = dir
	cfg.RefreshSeconds = 60

	c, err := New(cfg, discardLogger(), clock.Real(), noopSender{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "a.txt")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "b.txt", "bbb")

	c.refresh()

	if resp := c.dispatch("a.txt/get", map[string]string{}, nil); resp.Status != 404 {
		t.Errorf("a.txt/get status = %d, want 404 after deletion", resp.Status)
	}
	if resp := c.dispatch("b.txt/get", map[string]string{}, nil); resp.Status != 200 {
		t.Errorf("b.txt/get status = %d, want 200 after refresh", resp.Status)
	}
}

func TestRefreshRespectsSizeBudgetWithReplacementPolicy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.txt", "12345")

	cfg := *config.Default()
	cfg.Directory = dir
	cfg.RefreshSeconds = 60
	cfg.FilesSizeKiB = 1
	cfg.Replace = config.ReplaceLRU

	c, err := New(cfg, discardLogger(), clock.Real(), noopSender{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	status := c.Status()
	if status.UsedBytes > status.CeilingBytes {
		t.Fatalf("used %d exceeds ceiling %d", status.UsedBytes, status.CeilingBytes)
	}
}

func TestRunProcessesSubmittedRequest(t *testing.T) {
	c := newTestCore(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	resp, err := c.Submit(ctx, "hello.txt/get", map[string]string{}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != "hello, world" {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestRunProcessesQueuedRequestsInSubmissionOrder(t *testing.T) {
	c := newTestCore(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	// Bypass Submit and drive the actor's request channel directly, so
	// a stuck actor loop fails the test instead of hanging it.
	first := requestMsg{endpointName: testutil.UniqueID("hello.txt/get"), headers: map[string]string{}, reply: make(chan Response, 1)}
	second := requestMsg{endpointName: "hello.txt/get", headers: map[string]string{}, reply: make(chan Response, 1)}

	testutil.RequireSend(t, c.requests, first, time.Second, "submitting first request")
	testutil.RequireSend(t, c.requests, second, time.Second, "submitting second request")

	firstResp := testutil.RequireReceive(t, first.reply, time.Second, "waiting for first reply")
	if firstResp.Status != 404 {
		t.Errorf("first response status = %d, want 404 for unknown endpoint %q", firstResp.Status, first.endpointName)
	}

	secondResp := testutil.RequireReceive(t, second.reply, time.Second, "waiting for second reply")
	if secondResp.Status != 200 {
		t.Errorf("second response status = %d, want 200", secondResp.Status)
	}
}

func TestStatusReflectsSubscribedFiles(t *testing.T) {
	c := newTestCore(t, nil)
	status := c.Status()
	if status.FileCount != 1 {
		t.Fatalf("file count = %d, want 1", status.FileCount)
	}
	if status.Files[0].Name != "hello.txt" {
		t.Errorf("file name = %q, want hello.txt", status.Files[0].Name)
	}
	if status.Files[0].SizeBytes != int64(len("hello, world")) {
		t.Errorf("size = %d", status.Files[0].SizeBytes)
	}
}
