// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for classforge packages.
//
// [NewClass] starts a [ClassBuilder], which assembles class files byte
// by byte without going through lib/classfile. Tests use it to produce
// inputs whose exact layout they control (constant pool order,
// duplicate entries, hand-written bytecode) and to check the parser and
// remapper against bytes they did not produce themselves. Builders
// default to class file version 45.3, whose header is the one the
// pipeline expects from unobfuscated modules.
//
// [WriteTree] materializes a map of relative paths to contents under
// t.TempDir(), for tests of commands that walk directories, and
// [ReadTree] reads one back.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) so that individual tests do not
// need direct time.After calls.
//
// [UniqueClassName] generates distinct internal class names for tests
// that write from many goroutines at once.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no classforge-internal dependencies.
package testutil
