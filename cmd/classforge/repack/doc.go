// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package repack implements the commands that run the class pipeline
// outside a class loader: "transform" for a single class file and
// "batch" for a directory or jar, plus "manifest show" for reading the
// outcome records batch writes.
//
// Every command builds its pipeline with [transform.NewFromConfig]
// from the file named by --config (or CLASSFORGE_CONFIG, or the
// embedded tables), so a repack run behaves exactly like the loader
// hook with the same configuration. Stage failures never abort a run:
// the affected class keeps its previous bytes and the failure is
// logged, recorded in the manifest, and optionally turned into exit
// code 2 with --strict.
package repack
