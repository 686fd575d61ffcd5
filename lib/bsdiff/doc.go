// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bsdiff applies BSDIFF40 binary patches.
//
// A patch reconstructs a target buffer from a known source buffer. The
// format is the one written by bsdiff 4.x and by jbsdiff:
//
//	offset  size  field
//	0       8     magic "BSDIFF40"
//	8       8     compressed length of the control block
//	16      8     compressed length of the diff block
//	24      8     length of the reconstructed output
//	32      ...   control block, diff block, extra block
//
// The three length fields, and every integer in the control block, use
// the bsdiff sign-magnitude encoding: 63 bits of little-endian
// magnitude with the sign in the top bit of the last byte.
//
// The control block is a sequence of (add, copy, seek) triples. For each
// triple, add bytes of the diff block are added bytewise to the source
// at the current source position, then copy bytes of the extra block are
// appended verbatim, then the source position moves by seek (which may
// be negative).
//
// Each block is an independent compressed stream. bsdiff always uses
// bzip2; jbsdiff lets the author pick any commons-compress codec and
// detects it on read. [Apply] does the same by stream magic and accepts
// bzip2, gzip, zstd and LZ4 frames.
//
// [Apply] is deterministic and has no side effects. Malformed input of
// any kind returns an error matching [ErrCorrupt]. [Encode] writes a
// valid, deliberately simple patch (one control triple); it exists for
// authoring fixtures and catalog entries, not for minimal diffs.
package bsdiff
