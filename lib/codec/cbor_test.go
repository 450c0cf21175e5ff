// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

// sidecarEntry mirrors the shape of one replacement-engine sidecar
// record: a filename and the two counters persisted for it.
type sidecarEntry struct {
	Filename string `cbor:"filename"`
	Bias     int64  `cbor:"bias,omitempty"`
	Hits     int64  `cbor:"hits"`
}

// sidecarHeader is representative of a type that might need to share
// its field names with a JSON representation (e.g. a future --json
// inspection command for the sidecar).
type sidecarHeader struct {
	Version int    `json:"version"`
	Policy  string `json:"policy"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sidecarEntry{
		Filename: "videos/intro.mp4",
		Bias:     42,
		Hits:     7,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sidecarEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	entry := sidecarEntry{
		Filename: "manifest.json",
		Bias:     3,
		Hits:     11,
	}

	first, err := Marshal(entry)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}

	second, err := Marshal(entry)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	entries := []sidecarEntry{
		{Filename: "a.bin", Bias: 1, Hits: 1},
		{Filename: "b.bin", Bias: 2, Hits: 0},
		{Filename: "c.bin", Hits: 5},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range entries {
		var got sidecarEntry
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode entry %d: %v", i, err)
		}
		if got != want {
			t.Errorf("entry %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	// A type carrying only json tags should still encode/decode
	// correctly, using those tag names as CBOR map keys.
	original := sidecarHeader{Version: 3, Policy: "lfuda"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sidecarHeader
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded != original {
		t.Errorf("json-tag roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestOmitemptyRespected(t *testing.T) {
	withBias := sidecarEntry{Filename: "a", Bias: 9, Hits: 1}
	withoutBias := sidecarEntry{Filename: "a", Hits: 1}

	dataWith, err := Marshal(withBias)
	if err != nil {
		t.Fatal(err)
	}
	dataWithout, err := Marshal(withoutBias)
	if err != nil {
		t.Fatal(err)
	}

	if len(dataWithout) >= len(dataWith) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes",
			len(dataWithout), len(dataWith))
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var entry sidecarEntry
	err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &entry)
	if err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestByteStringRoundtrip(t *testing.T) {
	// []byte fields must encode as CBOR byte strings (major type 2),
	// not text strings.
	type envelope struct {
		Payload []byte `cbor:"payload"`
	}

	original := envelope{Payload: []byte("partial chunk bytes")}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("byte string roundtrip: got %q, want %q", decoded.Payload, original.Payload)
	}
}

func BenchmarkMarshal(b *testing.B) {
	entry := sidecarEntry{Filename: "videos/intro.mp4", Bias: 42, Hits: 7}

	b.ReportAllocs()
	for b.Loop() {
		Marshal(entry)
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"policy": "lru"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	if !strings.Contains(notation, `"policy"`) {
		t.Errorf("notation %q does not contain \"policy\"", notation)
	}
	if !strings.Contains(notation, `"lru"`) {
		t.Errorf("notation %q does not contain \"lru\"", notation)
	}
}

func TestDiagnoseFirst(t *testing.T) {
	item1, err := Marshal("hello")
	if err != nil {
		t.Fatalf("Marshal item 1: %v", err)
	}
	item2, err := Marshal(int64(42))
	if err != nil {
		t.Fatalf("Marshal item 2: %v", err)
	}

	var sequence []byte
	sequence = append(sequence, item1...)
	sequence = append(sequence, item2...)

	notation, remaining, err := DiagnoseFirst(sequence)
	if err != nil {
		t.Fatalf("DiagnoseFirst: %v", err)
	}

	if !strings.Contains(notation, `"hello"`) {
		t.Errorf("first item notation %q does not contain \"hello\"", notation)
	}
	if len(remaining) == 0 {
		t.Fatal("expected remaining bytes after first item")
	}

	notation2, remaining2, err := DiagnoseFirst(remaining)
	if err != nil {
		t.Fatalf("DiagnoseFirst second: %v", err)
	}
	if !strings.Contains(notation2, "42") {
		t.Errorf("second item notation %q does not contain \"42\"", notation2)
	}
	if len(remaining2) != 0 {
		t.Errorf("expected no remaining bytes, got %d", len(remaining2))
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	entry := sidecarEntry{Filename: "videos/intro.mp4", Bias: 42, Hits: 7}
	data, err := Marshal(entry)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for b.Loop() {
		var decoded sidecarEntry
		Unmarshal(data, &decoded)
	}
}
