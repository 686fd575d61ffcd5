// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrResourceMissing is matched by [Source.Fetch] errors for locators
// the source does not hold.
var ErrResourceMissing = errors.New("patch resource missing")

// Source resolves locators to patch blobs. Implementations must be
// safe for concurrent use.
type Source interface {
	Fetch(locator Locator) ([]byte, error)
}

// FSSource reads patch blobs from a file system. A leading slash on the
// locator is ignored.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource returns a Source over fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// NewDirSource returns a Source over a directory on disk.
func NewDirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir))
}

// Fetch reads the blob at locator.
func (s *FSSource) Fetch(locator Locator) ([]byte, error) {
	name := strings.TrimPrefix(string(locator), "/")
	if !fs.ValidPath(name) || name == "." {
		return nil, fmt.Errorf("invalid patch locator %q", locator)
	}
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResourceMissing, locator)
		}
		return nil, fmt.Errorf("reading patch %s: %w", locator, err)
	}
	return data, nil
}

// ChainSource tries each source in order and returns the first blob
// found. Errors other than [ErrResourceMissing] stop the search.
type ChainSource []Source

// Fetch implements [Source].
func (c ChainSource) Fetch(locator Locator) ([]byte, error) {
	for _, source := range c {
		data, err := source.Fetch(locator)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrResourceMissing) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrResourceMissing, locator)
}
