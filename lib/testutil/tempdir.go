// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree writes files (slash-separated relative path to contents)
// under a fresh temporary directory and returns the directory. Parent
// directories are created as needed. The directory is removed when the
// test completes.
//
//	dir := testutil.WriteTree(t, map[string][]byte{
//		"com/maddox/rts/SFS.class": classBytes,
//	})
func WriteTree(t *testing.T, files map[string][]byte) string {
	t.Helper()

	directory := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(directory, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, contents, 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return directory
}

// ReadTree returns every regular file under directory keyed by its
// slash-separated relative path.
func ReadTree(t *testing.T, directory string) map[string][]byte {
	t.Helper()

	files := make(map[string][]byte)
	err := filepath.WalkDir(directory, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		relative, err := filepath.Rel(directory, path)
		if err != nil {
			return err
		}
		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(relative)] = contents
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", directory, err)
	}
	return files
}
