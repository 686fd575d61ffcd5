// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bureau-foundation/classforge/lib/contentid"
)

// Locator names a patch blob within a [Source]. Locators look like
// classpath resources ("/Aircraft.patch").
type Locator string

// Entry associates one content key with a patch.
type Entry struct {
	// Key is the content key of the unpatched class.
	Key contentid.Key

	// Locator is where the patch blob lives.
	Locator Locator

	// Name is a label for logs, typically the class it patches.
	Name string
}

// Catalog is an immutable key-to-patch index.
type Catalog struct {
	entries map[contentid.Key]Entry
}

// New builds a catalog. Every key must parse as a content key and
// appear at most once, and every entry needs a locator. All problems
// are reported together.
func New(entries []Entry) (*Catalog, error) {
	index := make(map[contentid.Key]Entry, len(entries))
	var errs []error
	for i, entry := range entries {
		if _, err := contentid.ParseKey(string(entry.Key)); err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i, entry.Name, err))
			continue
		}
		if entry.Locator == "" {
			errs = append(errs, fmt.Errorf("entry %d (%s): empty locator", i, entry.Name))
			continue
		}
		if existing, ok := index[entry.Key]; ok {
			errs = append(errs, fmt.Errorf("entry %d (%s): duplicate key %s (already used by %s)",
				i, entry.Name, entry.Key, existing.Locator))
			continue
		}
		index[entry.Key] = entry
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("building patch catalog: %w", errors.Join(errs...))
	}
	return &Catalog{entries: index}, nil
}

// Lookup returns the entry for key.
func (c *Catalog) Lookup(key contentid.Key) (Entry, bool) {
	entry, ok := c.entries[key]
	return entry, ok
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of every entry, sorted by locator.
func (c *Catalog) Entries() []Entry {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Locator != entries[j].Locator {
			return entries[i].Locator < entries[j].Locator
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}
