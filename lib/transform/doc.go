// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transform runs the class transformation pipeline: the single
// entry point a class-load hook calls with a class name and its bytes.
//
// Each class moves through a fixed sequence of stages:
//
//	Start → Filtered → Digested → PatchChecked → Patched | Unpatched
//	      → SkipChecked → Remapped | Decrypted | Unchanged → Done
//
// Classes outside the configured namespace leave at Start as
// Passthrough. A class whose content key is in the patch catalog has
// its patch applied. A class whose header marks it as obfuscated is
// then decoded with the next key table and not remapped, whether or not
// it is in the skip set. Of the remaining classes, skipped ones stop
// there and every other class goes through the remapper.
//
// The pipeline fails open. An error in any stage is logged with the
// class name and the class continues with the most recent bytes that
// were produced successfully, usually its original bytes. [Transformer.Transform]
// never returns an error; [Transformer.Process] returns the same
// bytes together with the stage trail and the error for diagnostics.
//
// A [Transformer] is safe for concurrent use. Everything it holds is
// immutable after construction except the key-table decoder, which
// synchronizes itself.
package transform
