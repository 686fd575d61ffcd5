// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contentid computes content keys for class files.
//
// The patch catalog identifies the modules it corrects by the bytes
// they contain, not by name: two builds of the same class with
// different contents must never receive each other's patch. A content
// key is a 32-byte digest of the complete class file rendered as
// standard padded Base64 (44 characters). The default algorithm is
// SHA3-256, which matches the keys of the stock patch catalog.
//
// The API surface:
//
//   - [New] -- builds an [Identifier] for a named [Algorithm]. Unknown
//     algorithms fail with [ErrUnsupportedAlgorithm]; callers treat
//     this as a startup error, never a per-module one
//   - [Identifier.Sum] and [Identifier.Key] -- digest a buffer
//   - [FormatKey] and [ParseKey] -- convert between [Digest] and [Key]
//
// An Identifier holds no mutable state and is safe for concurrent use.
package contentid
