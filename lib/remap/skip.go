// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remap

import "sort"

// SkipSet is an immutable set of internal class names the remapper
// leaves alone. A nil SkipSet contains nothing.
type SkipSet struct {
	names map[string]struct{}
}

// NewSkipSet returns a set of names. Duplicates collapse.
func NewSkipSet(names ...string) *SkipSet {
	set := &SkipSet{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		set.names[name] = struct{}{}
	}
	return set
}

// Contains reports whether name is in the set.
func (s *SkipSet) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[name]
	return ok
}

// Len returns the number of names.
func (s *SkipSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the names in sorted order.
func (s *SkipSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
