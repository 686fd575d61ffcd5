// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package patch implements "classforge patch": creating BSDIFF40
// patches between class versions, applying them, and describing their
// headers and block codecs.
package patch
