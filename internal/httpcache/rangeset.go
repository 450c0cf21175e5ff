package httpcache

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotByteRanges is returned when a Range header's unit is not
// "bytes"; callers should translate it to a 416 response.
var ErrNotByteRanges = errors.New("httpcache: range unit is not bytes")

// ErrMalformedRange is returned for a syntactically broken Range
// header; callers should translate it to a 400 response.
var ErrMalformedRange = errors.New("httpcache: malformed range header")

// RangeSpec is one comma-separated unit of a parsed Range header,
// still relative to an as-yet-unknown content length.
type RangeSpec struct {
	Start  int64
	HasEnd bool
	End    int64
}

type resolvedRange struct {
	start, end int64
}

// ParseRangeHeader parses a "Range: bytes=..." header value into its
// component specs, without resolving them against a content length.
func ParseRangeHeader(value string) ([]RangeSpec, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(value, prefix) {
		return nil, ErrNotByteRanges
	}
	rest := strings.TrimPrefix(value, prefix)
	if rest == "" {
		return nil, ErrMalformedRange
	}

	tokens := strings.Split(rest, ",")
	specs := make([]RangeSpec, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		dash := strings.IndexByte(token, '-')
		if dash < 0 {
			return nil, ErrMalformedRange
		}
		startStr, endStr := token[:dash], token[dash+1:]

		if startStr == "" {
			if endStr == "" {
				return nil, ErrMalformedRange
			}
			suffix, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				return nil, ErrMalformedRange
			}
			specs = append(specs, RangeSpec{Start: -suffix, HasEnd: false})
			continue
		}

		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return nil, ErrMalformedRange
		}
		if endStr == "" {
			specs = append(specs, RangeSpec{Start: start, HasEnd: false})
			continue
		}
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, ErrMalformedRange
		}
		specs = append(specs, RangeSpec{Start: start, HasEnd: true, End: end})
	}
	return specs, nil
}

// ResolveRange turns one spec into concrete (start, end) byte offsets
// against a known content length, and reports whether the result is a
// valid range per the validity rule: 0 <= start <= end and the range's
// length does not exceed the bytes remaining from start to EOF.
func ResolveRange(spec RangeSpec, contentLength int64) (start, end int64, ok bool) {
	if spec.HasEnd {
		start = spec.Start
		if start < 0 {
			start = contentLength + start
		}
		end = spec.End
	} else if spec.Start >= 0 {
		start = spec.Start
		end = contentLength - 1
	} else {
		start = contentLength + spec.Start
		end = contentLength - 1
	}

	if start < 0 || start > end {
		return 0, 0, false
	}
	if end-start+1 > contentLength-start {
		return 0, 0, false
	}
	return start, end, true
}
