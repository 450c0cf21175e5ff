// Package appendengine implements POST append/range-write handling:
// deciding whether one incoming chunk is terminal, buffering
// non-terminal chunks per multipart id with a cancellable timeout, and
// splicing a completed chunk list into a file's in-memory contents.
package appendengine

import (
	"sort"
	"strconv"
	"time"

	"github.com/cachedepot/filecached/internal/filetable"
	"github.com/cachedepot/filecached/internal/httpcache"
	"github.com/cachedepot/filecached/lib/clock"
)

// Decision is the outcome of classifying one POST request against the
// file's current contents: either a short-circuit status, or the
// resolved (start, end, id, index, isLast) tuple to act on.
type Decision struct {
	Status int // 0 means proceed; otherwise one of 400/416
	ID     string
	Index  int
	IsLast bool
	Start  int64
	End    int64
}

// Decide classifies one POST request's Range/x-multipart-* headers
// against the file's current content length and this chunk's payload
// size.
func Decide(req map[string]string, payloadLen int64, contentLength int64) Decision {
	rangeHeader := req["range"]
	id := req["x-multipart-id"]

	if rangeHeader == "" && id == "" {
		return Decision{ID: "", Index: 0, IsLast: true, Start: contentLength, End: contentLength + payloadLen - 1}
	}

	specs, err := httpcache.ParseRangeHeader(rangeHeader)
	if err != nil {
		if err == httpcache.ErrNotByteRanges {
			return Decision{Status: 416}
		}
		return Decision{Status: 400}
	}
	if len(specs) == 0 {
		return Decision{Status: 400}
	}

	index := 0
	isLast := true
	if id != "" {
		isLast = parseIsLast(req["x-multipart-last"])
		if v, ok := req["x-multipart-index"]; ok {
			index = parseIndex(v)
		}
	}

	spec := specs[0]
	if len(specs) > 1 {
		if index < 0 || index >= len(specs) {
			return Decision{Status: 400}
		}
		spec = specs[index]
	}

	start, end, ok := resolvePostRange(spec, contentLength, payloadLen)
	if !ok {
		return Decision{Status: 416}
	}

	return Decision{ID: id, Index: index, IsLast: isLast, Start: start, End: end}
}

func parseIsLast(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func parseIndex(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

// resolvePostRange mirrors httpcache.ResolveRange but computes the end
// of an open-ended range from the payload length (what's being
// written) rather than from the existing content length (what's being
// read).
func resolvePostRange(spec httpcache.RangeSpec, contentLength, payloadLen int64) (start, end int64, ok bool) {
	switch {
	case spec.HasEnd:
		start = spec.Start
		if start < 0 {
			start = contentLength + start
		}
		end = spec.End
	case spec.Start >= 0:
		start = spec.Start
		end = start + payloadLen - 1
	default:
		start = contentLength + spec.Start
		end = start + payloadLen - 1
	}
	if start < 0 || start > end {
		return 0, 0, false
	}
	return start, end, true
}

// Buffer holds the pending chunks and cancellation timer for one
// incomplete multipart append, backed by the file record's
// WriteAppends map.
type Buffer struct {
	clk clock.Clock
}

// New returns a Buffer that schedules expiry timers on clk.
func New(clk clock.Clock) *Buffer {
	return &Buffer{clk: clk}
}

// Stage appends one chunk to the record's pending list for id,
// starting an expiry timer on the first chunk for a brand-new id. On
// expiry, onExpire is invoked with id so the caller can drop the list
// and release any resources tied to it.
func (b *Buffer) Stage(record *filetable.Record, id string, chunk filetable.AppendChunk, timeout time.Duration, onExpire func(id string)) {
	if record.WriteAppends == nil {
		record.WriteAppends = make(map[string]*filetable.PendingAppend)
	}
	pending, ok := record.WriteAppends[id]
	if !ok {
		pending = &filetable.PendingAppend{}
		record.WriteAppends[id] = pending
		timer := b.clk.AfterFunc(timeout, func() { onExpire(id) })
		pending.Cancel = timer.Stop
	}
	pending.Chunks = append(pending.Chunks, chunk)
	sort.SliceStable(pending.Chunks, func(i, j int) bool { return pending.Chunks[i].Index < pending.Chunks[j].Index })
}

// Finish cancels id's expiry timer (a no-op if it already fired or
// there was none), removes it from the record, and returns its chunks
// sorted by index, ready for Apply.
func Finish(record *filetable.Record, id string) []filetable.AppendChunk {
	pending, ok := record.WriteAppends[id]
	if !ok {
		return nil
	}
	if pending.Cancel != nil {
		pending.Cancel()
	}
	delete(record.WriteAppends, id)

	chunks := pending.Chunks
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks
}

// Apply splices a list of ordered chunks into contents, honoring the
// splice rules: a chunk fully inside the current length overwrites in
// place; one overlapping the tail truncates the rest; one starting
// exactly at the current length appends; one starting past the
// current length zero-fills the gap first.
func Apply(contents []byte, chunks []filetable.AppendChunk) []byte {
	for _, chunk := range chunks {
		contents = applyOne(contents, chunk.Start, chunk.End, chunk.Payload)
	}
	return contents
}

func applyOne(contents []byte, start, end int64, payload []byte) []byte {
	rangeLen := end - start + 1
	data := fitPayload(payload, rangeLen)

	cur := int64(len(contents))
	switch {
	case start > cur:
		gap := make([]byte, start-cur)
		contents = append(contents, gap...)
		contents = append(contents, data...)
	case start == cur:
		contents = append(contents, data...)
	case end < cur:
		copy(contents[start:start+rangeLen], data)
	default:
		contents = append(contents[:start], data...)
	}
	return contents
}

func fitPayload(payload []byte, length int64) []byte {
	if int64(len(payload)) == length {
		return payload
	}
	if int64(len(payload)) > length {
		return payload[:length]
	}
	fitted := make([]byte, length)
	copy(fitted, payload)
	return fitted
}
