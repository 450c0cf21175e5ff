package httpcache

import (
	"testing"
	"time"

	"github.com/cachedepot/filecached/internal/filetable"
)

func baseOpts() Options {
	return Options{
		ClockSkewMax:         5 * time.Minute,
		CachingEnabled:       true,
		CacheSeconds:         60,
		MethodRoutingEnabled: true,
	}
}

func TestScenarioPlainGet(t *testing.T) {
	contents := []byte("abc")
	mtime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})
	now := mtime.Add(time.Hour)

	resp := Evaluate(contents, map[string]string{}, etag, mtime, now, baseOpts())
	if resp.Status != 200 || string(resp.Body) != "abc" {
		t.Fatalf("got status %d body %q, want 200 abc", resp.Status, resp.Body)
	}
	if !hasHeader(resp, "accept-ranges", "bytes") {
		t.Errorf("missing Accept-Ranges: bytes")
	}
}

func TestScenarioSingleByteRange(t *testing.T) {
	contents := []byte("abc")
	mtime := time.Now()
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})
	now := mtime

	req := map[string]string{"range": "bytes=0-0"}
	resp := Evaluate(contents, req, etag, mtime, now, baseOpts())
	if resp.Status != 206 || string(resp.Body) != "a" {
		t.Fatalf("got status %d body %q, want 206 a", resp.Status, resp.Body)
	}
	if !hasHeader(resp, "content-range", "bytes 0-0/3") {
		t.Errorf("missing expected Content-Range, got %v", resp.Headers)
	}
}

func TestScenarioMultipartByteRanges(t *testing.T) {
	contents := []byte("abc")
	mtime := time.Now()
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})

	req := map[string]string{"range": "bytes=0-0,2-2"}
	resp := Evaluate(contents, req, etag, mtime, mtime, baseOpts())
	if resp.Status != 206 || len(resp.Parts) != 2 {
		t.Fatalf("got status %d parts %d, want 206 with 2 parts", resp.Status, len(resp.Parts))
	}
	if string(resp.Parts[0].Data) != "a" || string(resp.Parts[1].Data) != "c" {
		t.Errorf("part bodies = %q, %q; want a, c", resp.Parts[0].Data, resp.Parts[1].Data)
	}
}

func TestScenarioIfNoneMatchCurrentEtag(t *testing.T) {
	contents := []byte("abc")
	mtime := time.Now()
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})

	req := map[string]string{"if-none-match": etag}
	resp := Evaluate(contents, req, etag, mtime, mtime, baseOpts())
	if resp.Status != 304 {
		t.Fatalf("got status %d, want 304", resp.Status)
	}
	if !hasHeaderKey(resp, "last-modified") || !hasHeaderKey(resp, "date") {
		t.Errorf("304 response missing Last-Modified/Date: %v", resp.Headers)
	}
}

func TestIfModifiedSinceFutureBeyondSkewCeilingYields200(t *testing.T) {
	mtime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := mtime
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})

	future := now.Add(time.Hour).Format(httpDateLayout)
	req := map[string]string{"if-modified-since": future}

	status := EvaluateConditional(req, etag, mtime, now, 5*time.Minute)
	if status != 200 {
		t.Errorf("got %d, want 200 (future date beyond skew ceiling)", status)
	}
}

func TestIfNoneMatchWildcard(t *testing.T) {
	mtime := time.Now()
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})
	status := EvaluateConditional(map[string]string{"if-none-match": "*"}, etag, mtime, mtime, time.Minute)
	if status != 304 {
		t.Errorf("got %d, want 304", status)
	}
}

func TestUnsatisfiableRangeYields416(t *testing.T) {
	contents := []byte("abc")
	mtime := time.Now()
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})

	req := map[string]string{"range": "bytes=10-20"}
	resp := Evaluate(contents, req, etag, mtime, mtime, baseOpts())
	if resp.Status != 416 {
		t.Fatalf("got %d, want 416", resp.Status)
	}
	if !hasHeader(resp, "content-range", "bytes */3") {
		t.Errorf("missing Content-Range: bytes */3, got %v", resp.Headers)
	}
}

func TestNonByteRangeUnitYields416(t *testing.T) {
	contents := []byte("abc")
	mtime := time.Now()
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})
	req := map[string]string{"range": "lines=0-1"}
	resp := Evaluate(contents, req, etag, mtime, mtime, baseOpts())
	if resp.Status != 416 {
		t.Errorf("got %d, want 416", resp.Status)
	}
}

func TestMalformedRangeYields400(t *testing.T) {
	contents := []byte("abc")
	mtime := time.Now()
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})
	req := map[string]string{"range": "bytes=abc"}
	resp := Evaluate(contents, req, etag, mtime, mtime, baseOpts())
	if resp.Status != 400 {
		t.Errorf("got %d, want 400", resp.Status)
	}
}

func TestIfRangeMismatchFallsBackToFullBody(t *testing.T) {
	contents := []byte("abc")
	mtime := time.Now()
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})
	req := map[string]string{"range": "bytes=0-0", "if-range": "\"stale-etag\""}
	resp := Evaluate(contents, req, etag, mtime, mtime, baseOpts())
	if resp.Status != 200 || string(resp.Body) != "abc" {
		t.Errorf("got status %d body %q, want 200 abc", resp.Status, resp.Body)
	}
}

func TestHeadRequestHasNoBody(t *testing.T) {
	contents := []byte("abc")
	mtime := time.Now()
	etag := ETag(filetable.MTimeCounter{ModTime: mtime})
	opts := baseOpts()
	opts.IsHead = true
	resp := Evaluate(contents, map[string]string{}, etag, mtime, mtime, opts)
	if resp.Status != 200 || resp.Body != nil {
		t.Errorf("HEAD got status %d body %q, want 200 with empty body", resp.Status, resp.Body)
	}
}

func TestDistinctGenerationsHaveDistinctETags(t *testing.T) {
	mtime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := ETag(filetable.MTimeCounter{ModTime: mtime, Counter: 0})
	b := ETag(filetable.MTimeCounter{ModTime: mtime, Counter: 1})
	if a == b {
		t.Errorf("same-mtime generations produced identical ETags: %s", a)
	}
}

func hasHeader(resp Response, key, value string) bool {
	for _, h := range resp.Headers {
		if h.Key == key && h.Value == value {
			return true
		}
	}
	return false
}

func hasHeaderKey(resp Response, key string) bool {
	for _, h := range resp.Headers {
		if h.Key == key {
			return true
		}
	}
	return false
}
