// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns "prefix-N" for a process-wide monotonically
// increasing N. Tests use this instead of a clock-derived value when
// they need distinct multipart append ids, endpoint names, or record
// keys that won't collide across parallel subtests.
//
//	id := testutil.UniqueID("append")   // "append-1", "append-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
