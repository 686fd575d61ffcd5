// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config implements "classforge config": validating a
// configuration file, printing the effective configuration, and
// compiling it to the deterministic CBOR form.
package config
