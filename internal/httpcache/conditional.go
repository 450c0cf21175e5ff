package httpcache

import (
	"strings"
	"time"
)

// EvaluateConditional runs the If-None-Match / If-Match / If-Modified-
// Since / If-Unmodified-Since chain in that order and returns either
// 200 ("proceed to range evaluation") or a short-circuiting 304/412.
func EvaluateConditional(req map[string]string, etag string, mtime, now time.Time, clockSkewMax time.Duration) int {
	ceiling := now.Add(clockSkewMax)

	if v := req["if-none-match"]; v != "" {
		if v == "*" || strings.Contains(v, etag) {
			return 304
		}
	}

	if v := req["if-match"]; v != "" && v != "*" {
		if !strings.Contains(v, etag) {
			return 412
		}
	}

	if v := req["if-modified-since"]; v != "" {
		if date, ok := ParseDate(v); ok {
			if mtime.After(date) || date.After(ceiling) {
				return 200
			}
			return 304
		}
		// Unparseable date: fall through to If-Unmodified-Since.
	}

	if v := req["if-unmodified-since"]; v != "" {
		if date, ok := ParseDate(v); ok {
			if !mtime.After(date) && !date.After(ceiling) {
				return 412
			}
		}
		return 200
	}

	return 200
}
