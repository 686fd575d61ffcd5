// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides classforge's standard CBOR encoding
// configuration.
//
// classforge uses two serialization formats with a clear boundary:
//
//   - YAML and JSON for files people write: the pipeline configuration
//     and the `--json` output of the CLI.
//   - CBOR for files tools write: compiled configuration
//     (`classforge config compile`) and batch manifests.
//
// This package holds the shared CBOR encoding and decoding modes so
// every package encodes identically. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items. The same logical data
// always produces identical bytes, so a compiled configuration or a
// manifest can itself be content-addressed.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For streams (a manifest written while a batch runs):
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// # Struct Tag Rules
//
//   - `cbor` tag: the type is only ever serialized as CBOR. The
//     manifest header and entries are examples.
//   - `json` tag: the type may be serialized as JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags when `cbor` tags are absent,
//     so one tag controls field naming and omitempty for both. The
//     configuration types use this (alongside `yaml`).
//
// Never use both `cbor` and `json` tags on the same field.
package codec
