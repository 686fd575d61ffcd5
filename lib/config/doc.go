// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the fixed tables a classforge pipeline runs
// with: the namespace filter, the digest algorithm, the patch catalog,
// the remap table, the skip set and the decryption key tables.
//
// Configuration comes from exactly one place. [LoadFile] reads the
// file named by a --config flag; [Load] reads the file named by the
// CLASSFORGE_CONFIG environment variable, or returns [Default] when it
// is unset. There is no search path and no per-field environment
// override. The embedded default (default.yaml) carries the stock
// IL-2 tables, so an empty environment reproduces the shipped pipeline
// exactly.
//
// A file is merged over the default key by key: a key the file leaves
// out keeps its default value, and a list the file sets replaces the
// default list. Supported formats, chosen by extension:
//
//   - .yaml, .yml: YAML
//   - .json, .jsonc: JSON, with comments and trailing commas allowed
//   - .cbor: the compiled form written by [Config.Compile]
//
// Variable expansion is performed on patch_dir only: ${HOME},
// ${CLASSFORGE_CONFIG_DIR} and ${VAR:-default} patterns are expanded,
// and a relative result is resolved against the directory holding the
// configuration file.
//
// Loaded values are plain data. [Config.Catalog], [Config.RemapTable],
// [Config.SkipSet] and [Config.KeyTables] convert them into the
// immutable collaborators the pipeline uses; [Config.Validate] runs
// every conversion and reports all problems together.
package config
