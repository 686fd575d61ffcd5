// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueClassName returns an internal class name of the form
// "pkg/ClassN" where N is a monotonically increasing integer.
//
//	name := testutil.UniqueClassName("com/example") // "com/example/Class1", ...
func UniqueClassName(pkg string) string {
	return fmt.Sprintf("%s/Class%d", pkg, uniqueCounter.Add(1))
}
