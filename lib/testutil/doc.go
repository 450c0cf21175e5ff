// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for filecached packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so that
// individual tests do not need direct time.After calls when exercising
// the core actor's request/refresh/append-timeout channels.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, useful for distinguishing multipart ids and endpoint
// names across subtests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no filecached-internal dependencies.
package testutil
