// Package httpcache implements the conditional-GET and byte-range
// state machine: ETag/Last-Modified/Date computation, If-* precondition
// evaluation, Range/If-Range handling, and construction of the
// resulting 200/206/304/400/412/416 response (including
// multipart/byteranges bodies). An If-Range that does not match
// yields the full 200 response.
//
// Nothing here touches the filesystem or the file table; every
// function takes the content bytes and metadata it needs and returns a
// Response the caller can translate into whatever wire format it uses.
package httpcache

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cachedepot/filecached/internal/filetable"
)

// HeaderField is one (key, value) pair in the ordered response header
// list the dispatching framework expects.
type HeaderField struct {
	Key   string
	Value string
}

// Part is one body segment of a multipart/byteranges response.
type Part struct {
	Start, End, ContentLength int64
	Data                      []byte
}

// Response is the fully computed outcome of evaluating one GET or HEAD
// request against a file's current state.
type Response struct {
	Status   int
	Headers  []HeaderField
	Body     []byte
	Parts    []Part
	Boundary string
}

// Options carries the per-file, per-config knobs the state machine
// needs beyond the request headers and file metadata.
type Options struct {
	ClockSkewMax         time.Duration
	CachingEnabled       bool
	UseExpires           bool
	CacheSeconds         int64
	MethodRoutingEnabled bool
	IsHead               bool
}

const httpDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// ETag formats a file's (mtime, same-mtime counter) pair into the
// quoted hex ETag the cache reports for it.
func ETag(mt filetable.MTimeCounter) string {
	return fmt.Sprintf("\"%x%x\"", mt.ModTime.Unix(), mt.Counter)
}

// FormatDate renders t as an RFC1123 GMT timestamp.
func FormatDate(t time.Time) string {
	return t.UTC().Format(httpDateLayout)
}

// ParseDate parses an HTTP date in any of the three formats RFC 7231
// permits (RFC1123, RFC850, and ANSI C asctime).
func ParseDate(s string) (time.Time, bool) {
	t, err := http.ParseTime(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NewBoundary generates a fresh multipart/byteranges boundary token.
func NewBoundary() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return "filecached-" + hex.EncodeToString(buf[:])
}

// Evaluate runs the full conditional/range state machine for one
// GET/HEAD request and returns the response to send.
func Evaluate(contents []byte, req map[string]string, etag string, mtime time.Time, now time.Time, opts Options) Response {
	contentLength := int64(len(contents))

	switch status := EvaluateConditional(req, etag, mtime, now, opts.ClockSkewMax); status {
	case 304, 412:
		return shortCircuitResponse(status, etag, mtime, now, opts)
	}

	rangeHeader := req["range"]
	if rangeHeader == "" {
		return fullResponse(200, contents, etag, mtime, now, opts)
	}

	specs, err := ParseRangeHeader(rangeHeader)
	if err != nil {
		if err == ErrNotByteRanges {
			return rangeNotSatisfiable(etag, mtime, now, opts, contentLength)
		}
		return shortCircuitResponse(400, etag, mtime, now, opts)
	}

	if ifRange := req["if-range"]; ifRange != "" && !ifRangeMatches(ifRange, etag, mtime) {
		return fullResponse(200, contents, etag, mtime, now, opts)
	}

	resolved := make([]resolvedRange, 0, len(specs))
	for _, spec := range specs {
		start, end, ok := ResolveRange(spec, contentLength)
		if !ok {
			return rangeNotSatisfiable(etag, mtime, now, opts, contentLength)
		}
		resolved = append(resolved, resolvedRange{start: start, end: end})
	}

	if len(resolved) == 1 {
		return singleRangeResponse(resolved[0], contents, etag, mtime, now, opts)
	}
	return multipartRangeResponse(resolved, contents, etag, mtime, now, opts)
}

func ifRangeMatches(ifRange, etag string, mtime time.Time) bool {
	if ifRange == etag {
		return true
	}
	if date, ok := ParseDate(ifRange); ok {
		return date.Equal(mtime)
	}
	return false
}

func commonHeaders(etag string, mtime, now time.Time, opts Options) []HeaderField {
	headers := []HeaderField{
		{"etag", etag},
		{"last-modified", FormatDate(mtime)},
		{"date", FormatDate(now)},
	}
	if opts.CachingEnabled {
		if opts.UseExpires {
			headers = append(headers, HeaderField{"cache-control", "public"})
			headers = append(headers, HeaderField{"expires", FormatDate(now.Add(time.Duration(opts.CacheSeconds) * time.Second))})
		} else {
			headers = append(headers, HeaderField{"cache-control", fmt.Sprintf("public,max-age=%d", opts.CacheSeconds)})
		}
	}
	if opts.MethodRoutingEnabled {
		headers = append(headers, HeaderField{"accept-ranges", "bytes"})
	}
	return headers
}

func shortCircuitResponse(status int, etag string, mtime, now time.Time, opts Options) Response {
	return Response{Status: status, Headers: commonHeaders(etag, mtime, now, opts)}
}

func fullResponse(status int, contents []byte, etag string, mtime, now time.Time, opts Options) Response {
	resp := Response{Status: status, Headers: commonHeaders(etag, mtime, now, opts)}
	if !opts.IsHead {
		resp.Body = contents
	}
	return resp
}

func rangeNotSatisfiable(etag string, mtime, now time.Time, opts Options, contentLength int64) Response {
	headers := commonHeaders(etag, mtime, now, opts)
	headers = append(headers, HeaderField{"content-range", fmt.Sprintf("bytes */%d", contentLength)})
	headers = append(headers, HeaderField{"accept-ranges", "bytes"})
	return Response{Status: 416, Headers: headers}
}

func singleRangeResponse(r resolvedRange, contents []byte, etag string, mtime, now time.Time, opts Options) Response {
	headers := commonHeaders(etag, mtime, now, opts)
	headers = append(headers, HeaderField{"content-type", "application/octet-stream"})
	headers = append(headers, HeaderField{"content-range", fmt.Sprintf("bytes %d-%d/%d", r.start, r.end, int64(len(contents)))})
	resp := Response{Status: 206, Headers: headers}
	if !opts.IsHead {
		resp.Body = contents[r.start : r.end+1]
	}
	return resp
}

func multipartRangeResponse(ranges []resolvedRange, contents []byte, etag string, mtime, now time.Time, opts Options) Response {
	boundary := NewBoundary()
	headers := commonHeaders(etag, mtime, now, opts)
	headers = append(headers, HeaderField{"content-type", "multipart/byteranges; boundary=" + boundary})

	resp := Response{Status: 206, Headers: headers, Boundary: boundary}
	if opts.IsHead {
		return resp
	}

	total := int64(len(contents))
	parts := make([]Part, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, Part{
			Start:         r.start,
			End:           r.end,
			ContentLength: total,
			Data:          contents[r.start : r.end+1],
		})
	}
	resp.Parts = parts
	return resp
}

// RenderMultipart serializes a multipart/byteranges response body
// exactly the way Response.Parts describes it.
func RenderMultipart(boundary string, parts []Part) []byte {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("--")
		b.WriteString(boundary)
		b.WriteString("\r\n")
		b.WriteString("Content-Type: application/octet-stream\r\n")
		fmt.Fprintf(&b, "Content-Range: bytes %d-%d/%d\r\n\r\n", p.Start, p.End, p.ContentLength)
		b.Write(p.Data)
		b.WriteString("\r\n")
	}
	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("--\r\n")
	return []byte(b.String())
}
