// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keytable decodes obfuscated class files with an ordered
// sequence of single-use XOR keys.
//
// Some class files reach the loader with their first eight bytes
// replaced: the magic number and version are missing and the rest of
// the file is XORed against one of a small number of key tables. The
// loader that produced them consumed the tables in order, blanking each
// one after use, so the decoder does the same: the first obfuscated
// class decodes with table 0, the next with table 1, and so on. Once
// every table has been used, further obfuscated classes pass through
// untouched.
//
// Detection is a header comparison and nothing else. A class whose
// leading eight bytes differ from [Options.Expected] needs decoding.
// The decoded output is eight bytes longer than its input: the
// canonical header is restored in front of the XORed body.
//
// A [Decoder] owns its cursor and remaining tables behind one mutex.
// There is no package-level state; construct one Decoder per pipeline
// and share it between goroutines.
package keytable
