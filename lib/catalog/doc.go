// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog maps content keys to binary patches.
//
// A [Catalog] is built once from a list of [Entry] values and is
// read-only afterwards. Each entry names a content key (see
// lib/contentid), the [Locator] of the patch blob, and a human-readable
// module name used only in logs. Lookups are exact: a class whose bytes
// differ in any way from the catalogued build gets no patch.
//
// Patch blobs are fetched through a [Source]. [FSSource] reads from any
// fs.FS (a directory on disk via [NewDirSource], or an embedded tree),
// and [ChainSource] tries several sources in order. A locator that no
// source holds produces an error matching [ErrResourceMissing]; the
// pipeline treats that as "skip the patch stage", not as a failure.
package catalog
