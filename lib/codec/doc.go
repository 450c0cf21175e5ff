// SPDX-License-Identifier: Apache-2.0

// Package codec provides filecached's shared CBOR encoding configuration.
//
// filecached speaks two serialization formats, split along a clear
// boundary:
//
//   - JSON for the external interfaces: the /debug/status snapshot the
//     companion viewer polls, and any --json CLI output.
//   - CBOR for internal persistence: the replacement-engine sidecar
//     file that survives a restart.
//
// This package centralizes the encoding and decoding modes so the
// sidecar format doesn't drift between writer and reader. The encoder
// uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items. The same
// logical value always produces identical bytes, which matters for a
// file that gets compared byte-for-byte across process restarts.
//
// For buffer-oriented operations (the sidecar file):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations, should a future component need one:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// # Struct tags
//
// Sidecar types use `cbor` struct tags exclusively — they never cross
// the JSON boundary, so there is no fallback concern. Don't mix `cbor`
// and `json` tags on the same field; pick the one the type actually
// needs.
package codec
