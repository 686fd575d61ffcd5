// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package classfile parses, edits, re-serializes and verifies JVM class
// files.
//
// The model is deliberately shallow. [Parse] decodes the constant pool
// into [Constant] values and the field, method and attribute tables
// into [Member] and [Attribute] records, but keeps every attribute body
// as raw bytes. Callers that need to look inside an attribute decode it
// themselves ([ParseCode] for Code) and write it back. Because nothing
// is normalized, [ClassFile.Bytes] reproduces an unmodified parse byte
// for byte; attribute lengths and the constant pool count are always
// recomputed, so edits that grow the pool or an attribute need no
// bookkeeping.
//
// The constant [Pool] supports appending new entries ([Pool.AddUtf8],
// [Pool.AddNameAndType], and the general [Pool.Add]) with
// deduplication against existing entries, so rewriters can give one
// reference a new value without disturbing the indices that bytecode
// already embeds.
//
// Descriptor and signature helpers ([MapDescriptor], [MapClassName],
// [MapSignature]) rewrite every class name embedded in a type string
// through a caller-supplied function. The grammar checks
// ([ValidInternalName], [ValidFieldDescriptor], [ValidMethodDescriptor])
// are shared with [Verify], which checks the structural invariants a
// JVM's format checker enforces before linking: pool index ranges and
// tags, descriptor grammar, member uniqueness, and Code attribute
// bounds. Verify does not type-check bytecode.
package classfile
