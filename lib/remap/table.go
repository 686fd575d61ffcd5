// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bureau-foundation/classforge/lib/classfile"
)

// ClassRename renames a class. Both names are in internal form.
type ClassRename struct {
	From string
	To   string
}

// MemberRename renames a method or field of Owner. For methods,
// Descriptor is part of the key; for fields it is ignored.
type MemberRename struct {
	Owner      string
	Name       string
	Descriptor string
	To         string
}

type memberKey struct {
	owner, name, descriptor string
}

// Table is an immutable set of renames.
type Table struct {
	classes map[string]string
	targets map[string]bool
	methods map[memberKey]string
	fields  map[memberKey]string
}

// NewTable validates and indexes renames. All problems are reported
// together.
func NewTable(classes []ClassRename, methods, fields []MemberRename) (*Table, error) {
	table := &Table{
		classes: make(map[string]string, len(classes)),
		targets: make(map[string]bool, len(classes)),
		methods: make(map[memberKey]string, len(methods)),
		fields:  make(map[memberKey]string, len(fields)),
	}
	var errs []error

	for _, rename := range classes {
		switch {
		case !classfile.ValidInternalName(rename.From):
			errs = append(errs, fmt.Errorf("class rename: malformed name %q", rename.From))
		case !classfile.ValidInternalName(rename.To):
			errs = append(errs, fmt.Errorf("class rename %s: malformed target %q", rename.From, rename.To))
		case rename.From == rename.To:
			errs = append(errs, fmt.Errorf("class rename %s: renames to itself", rename.From))
		case table.classes[rename.From] != "":
			errs = append(errs, fmt.Errorf("class rename %s: declared twice", rename.From))
		case table.targets[rename.To]:
			errs = append(errs, fmt.Errorf("class rename %s: %s is already the target of another rename", rename.From, rename.To))
		default:
			table.classes[rename.From] = rename.To
			table.targets[rename.To] = true
		}
	}
	for from, to := range table.classes {
		if _, chained := table.classes[to]; chained {
			errs = append(errs, fmt.Errorf("class rename %s -> %s: target is itself renamed", from, to))
		}
	}

	for _, rename := range methods {
		if err := table.addMember(rename, true); err != nil {
			errs = append(errs, err)
		}
	}
	for _, rename := range fields {
		if err := table.addMember(rename, false); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, table.checkMemberChains()...)

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid remap table: %w", errors.Join(errs...))
	}
	return table, nil
}

func (t *Table) addMember(rename MemberRename, method bool) error {
	kind, index := "field", t.fields
	if method {
		kind, index = "method", t.methods
	}
	label := fmt.Sprintf("%s rename %s.%s%s", kind, rename.Owner, rename.Name, rename.Descriptor)

	if !classfile.ValidInternalName(rename.Owner) {
		return fmt.Errorf("%s: malformed owner", label)
	}
	if t.targets[rename.Owner] {
		return fmt.Errorf("%s: owner is the target of a class rename; key member renames by the old owner", label)
	}
	if !classfile.ValidMemberName(rename.Name, method) || !classfile.ValidMemberName(rename.To, method) {
		return fmt.Errorf("%s: malformed name or target %q", label, rename.To)
	}
	if method && (rename.To == "<init>" || rename.To == "<clinit>" || rename.Name == "<init>" || rename.Name == "<clinit>") {
		return fmt.Errorf("%s: initializers cannot be renamed", label)
	}
	if rename.Name == rename.To {
		return fmt.Errorf("%s: renames to itself", label)
	}

	key := memberKey{owner: rename.Owner, name: rename.Name}
	if method {
		if !classfile.ValidMethodDescriptor(rename.Descriptor) {
			return fmt.Errorf("%s: malformed method descriptor", label)
		}
		names, _ := classfile.DescriptorClasses(rename.Descriptor)
		for _, name := range names {
			if t.targets[name] {
				return fmt.Errorf("%s: descriptor mentions %s, the target of a class rename; key member renames by the old descriptor", label, name)
			}
		}
		key.descriptor = rename.Descriptor
	} else if rename.Descriptor != "" && !classfile.ValidFieldDescriptor(rename.Descriptor) {
		return fmt.Errorf("%s: malformed field descriptor", label)
	}

	if _, ok := index[key]; ok {
		return fmt.Errorf("%s: declared twice", label)
	}
	index[key] = rename.To
	return nil
}

// checkMemberChains rejects member renames whose result is renamed
// again.
func (t *Table) checkMemberChains() []error {
	var errs []error
	for key, to := range t.methods {
		if _, chained := t.methods[memberKey{owner: key.owner, name: to, descriptor: key.descriptor}]; chained {
			errs = append(errs, fmt.Errorf("method rename %s.%s%s -> %s: target is itself renamed", key.owner, key.name, key.descriptor, to))
		}
	}
	for key, to := range t.fields {
		if _, chained := t.fields[memberKey{owner: key.owner, name: to}]; chained {
			errs = append(errs, fmt.Errorf("field rename %s.%s -> %s: target is itself renamed", key.owner, key.name, to))
		}
	}
	return errs
}

// MapType returns the new name of class name, or name itself. It is a
// [classfile.NameMapper].
func (t *Table) MapType(name string) string {
	if to, ok := t.classes[name]; ok {
		return to
	}
	return name
}

// Class returns the new name of a renamed class.
func (t *Table) Class(name string) (string, bool) {
	to, ok := t.classes[name]
	return to, ok
}

// Method returns the new name of a renamed method, looked up by its
// old owner, name and descriptor.
func (t *Table) Method(owner, name, descriptor string) (string, bool) {
	to, ok := t.methods[memberKey{owner: owner, name: name, descriptor: descriptor}]
	return to, ok
}

// Field returns the new name of a renamed field, looked up by its old
// owner and name.
func (t *Table) Field(owner, name string) (string, bool) {
	to, ok := t.fields[memberKey{owner: owner, name: name}]
	return to, ok
}

// Targets returns the sorted new names of every renamed class.
func (t *Table) Targets() []string {
	targets := make([]string, 0, len(t.targets))
	for name := range t.targets {
		targets = append(targets, name)
	}
	sort.Strings(targets)
	return targets
}

// Empty reports whether the table renames nothing.
func (t *Table) Empty() bool {
	return len(t.classes) == 0 && len(t.methods) == 0 && len(t.fields) == 0
}

// Classes returns every class rename sorted by old name.
func (t *Table) Classes() []ClassRename {
	renames := make([]ClassRename, 0, len(t.classes))
	for from, to := range t.classes {
		renames = append(renames, ClassRename{From: from, To: to})
	}
	sort.Slice(renames, func(i, j int) bool { return renames[i].From < renames[j].From })
	return renames
}

// Methods returns every method rename sorted by key.
func (t *Table) Methods() []MemberRename {
	return sortedMembers(t.methods)
}

// Fields returns every field rename sorted by key.
func (t *Table) Fields() []MemberRename {
	return sortedMembers(t.fields)
}

func sortedMembers(index map[memberKey]string) []MemberRename {
	renames := make([]MemberRename, 0, len(index))
	for key, to := range index {
		renames = append(renames, MemberRename{Owner: key.owner, Name: key.name, Descriptor: key.descriptor, To: to})
	}
	sort.Slice(renames, func(i, j int) bool {
		a, b := renames[i], renames[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Descriptor < b.Descriptor
	})
	return renames
}
