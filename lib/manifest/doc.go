// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest records what a batch run did to each class.
//
// A manifest is a CBOR sequence (RFC 8742) in the deterministic
// encoding of lib/codec: one [Header] item followed by one [Entry] per
// class, in the order the batch finished them. `classforge batch
// --manifest` writes one with a [Writer]; `classforge manifest show`
// reads it back with [Read].
//
// Class bytes are identified by BLAKE3 keyed hashes with fixed domain
// keys, one domain for inputs and one for outputs, so an input hash can
// never be mistaken for an output hash of the same bytes. [Manifest.RunHash]
// folds every (path, output) pair into a single run-domain hash: two
// runs that produced identical output trees have identical run hashes
// regardless of the order workers finished in.
package manifest
