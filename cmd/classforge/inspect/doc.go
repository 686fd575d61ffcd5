// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package inspect implements the read-only class commands: "digest"
// prints the catalog key of files, and "inspect" lists what a class
// declares and references alongside what the configured rename table
// would do to each name.
package inspect
