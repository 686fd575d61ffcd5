// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remap

import (
	"fmt"

	"github.com/bureau-foundation/classforge/lib/classfile"
)

// Error reports a class the remapper could not rewrite. The caller
// should load the class as it was before remapping.
type Error struct {
	// Class is the internal name the class was submitted under.
	Class string

	// Err is the underlying parse, rewrite or verification failure.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remapping %s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Remapper applies a [Table] to class files. It holds no mutable state
// and is safe for concurrent use.
type Remapper struct {
	table *Table
	skip  *SkipSet
}

// NewRemapper returns a Remapper. A nil table renames nothing; a nil
// skip set skips nothing.
func NewRemapper(table *Table, skip *SkipSet) *Remapper {
	if table == nil {
		table = &Table{}
	}
	return &Remapper{table: table, skip: skip}
}

// Table returns the remapper's rename table.
func (r *Remapper) Table() *Table {
	return r.table
}

// Skips reports whether name is exempt from remapping.
func (r *Remapper) Skips(name string) bool {
	return r.skip.Contains(name)
}

// Remap rewrites the class data submitted under name. Skipped classes,
// and classes with no reference to anything in the table, are returned
// as the same slice. data is never modified.
func (r *Remapper) Remap(name string, data []byte) ([]byte, error) {
	if r.skip.Contains(name) || r.table.Empty() {
		return data, nil
	}

	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, &Error{Class: name, Err: err}
	}

	rw, err := newRewriter(r.table, cf)
	if err != nil {
		return nil, &Error{Class: name, Err: err}
	}
	changed, err := rw.run()
	if err != nil {
		return nil, &Error{Class: name, Err: err}
	}
	if !changed {
		return data, nil
	}

	out, err := cf.Bytes()
	if err != nil {
		return nil, &Error{Class: name, Err: fmt.Errorf("serializing: %w", err)}
	}
	if err := classfile.Verify(out); err != nil {
		return nil, &Error{Class: name, Err: err}
	}
	return out, nil
}
