// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Classforge applies the class-load pipeline to class files outside
// the JVM. It transforms single classes and whole directory or jar
// trees (transform, batch), records every decision in a CBOR manifest
// (manifest), reports what the pipeline would do to a class (inspect,
// digest), and maintains the patch catalog and configuration (patch,
// config).
package main
