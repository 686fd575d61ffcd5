// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package remap rewrites symbolic references inside class files.
//
// A [Table] holds three kinds of renames: classes (old internal name to
// new), methods keyed by owner, name and descriptor, and fields keyed
// by owner and name. Keys always use the names a class file carries
// before remapping; a method rename whose owner class is also renamed
// is still keyed by the old owner and the old descriptor. Tables reject
// chains (a rename whose result is itself renamed), which makes
// remapping idempotent.
//
// A [Remapper] applies a Table to one class at a time:
//
//   - Classes named in its [SkipSet] are returned untouched and never
//     parsed. These are the classes that implement the replaced
//     subsystem and its replacement.
//   - Class constants, member references, NameAndType and MethodType
//     descriptors, declared fields and methods, Signature,
//     LocalVariableTable, LocalVariableTypeTable, EnclosingMethod and
//     annotation type references are rewritten.
//   - Utf8 constants are never modified in place, because one Utf8
//     entry is routinely shared between unrelated references. New
//     values are appended to the constant pool (reusing an identical
//     existing entry when there is one) and the referencing entry is
//     repointed, so every index embedded in bytecode stays valid.
//   - A class with nothing to rewrite is returned as the same slice.
//   - The rewritten class is re-serialized and verified; any failure
//     is reported as an [*Error].
//
// String constants are not rewritten, and neither are type annotations
// or the simple names recorded in InnerClasses.
package remap
