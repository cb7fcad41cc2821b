// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now()
// when tests need unique message keys or bodies that must be
// distinguishable in shared rooms.
//
//	key := testutil.UniqueID("m")           // "m-1", "m-2", ...
//	body := testutil.UniqueID("hello-from") // "hello-from-3", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
