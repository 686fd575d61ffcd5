// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keytable

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
)

// HeaderSize is the length of the class file header that identifies
// an obfuscated class and that decoding restores.
const HeaderSize = 8

// Header is a class file magic number followed by its minor and major
// version.
type Header [HeaderSize]byte

var (
	// DefaultExpected is the header of a plain class file as the host
	// expects it: magic CAFEBABE, version 45.3.
	DefaultExpected = Header{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x03, 0x00, 0x2D}

	// DefaultCanonical is the header written in front of decoded
	// classes: magic CAFEBABE, version 47.0.
	DefaultCanonical = Header{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x00, 0x00, 0x2F}
)

// Options configures a Decoder.
type Options struct {
	// Tables are the XOR keys, consumed in index order. Every key must
	// be non-empty. The slices are copied.
	Tables [][]byte

	// Expected is the header of a class that needs no decoding. The
	// zero value selects DefaultExpected.
	Expected Header

	// Canonical is the header restored in front of decoded output. The
	// zero value selects DefaultCanonical.
	Canonical Header
}

// Decoded is the outcome of [Decoder.Decode].
type Decoded struct {
	// Data is the decoded class, or the input slice itself when
	// nothing was applied.
	Data []byte

	// Index is the key table used, or -1.
	Index int

	// Applied reports whether a key table was consumed.
	Applied bool
}

// Decoder holds the remaining key tables and the cursor over them.
// It is safe for concurrent use.
type Decoder struct {
	expected  Header
	canonical Header

	mu        sync.Mutex
	tables    map[int][]byte
	cursor    int
	remaining int
	total     int
}

// New returns a Decoder over a copy of options.Tables.
func New(options Options) (*Decoder, error) {
	var errs []error
	tables := make(map[int][]byte, len(options.Tables))
	for index, key := range options.Tables {
		if len(key) == 0 {
			errs = append(errs, fmt.Errorf("key table %d is empty", index))
			continue
		}
		tables[index] = bytes.Clone(key)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	decoder := &Decoder{
		expected:  options.Expected,
		canonical: options.Canonical,
		tables:    tables,
		remaining: len(tables),
		total:     len(options.Tables),
	}
	if decoder.expected == (Header{}) {
		decoder.expected = DefaultExpected
	}
	if decoder.canonical == (Header{}) {
		decoder.canonical = DefaultCanonical
	}
	return decoder, nil
}

// NeedsDecoding reports whether data's leading bytes differ from the
// expected header. Input shorter than the header is compared as if
// padded with zero bytes.
func (d *Decoder) NeedsDecoding(data []byte) bool {
	var leading Header
	copy(leading[:], data)
	return leading != d.expected
}

// Claim takes the key table at the cursor and advances the cursor past
// it. The cursor moves only when a table is returned, so a claim
// against an exhausted decoder changes nothing. Each table is returned
// by at most one call.
func (d *Decoder) Claim() (int, []byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key, ok := d.tables[d.cursor]
	if !ok {
		return -1, nil, false
	}
	index := d.cursor
	delete(d.tables, index)
	d.cursor++
	d.remaining--
	return index, key, true
}

// Decode decodes data if its header marks it as obfuscated and a key
// table remains. It never fails: when data needs no decoding, or every
// table has been consumed, the input slice is returned as is.
func (d *Decoder) Decode(data []byte) Decoded {
	if !d.NeedsDecoding(data) {
		return Decoded{Data: data, Index: -1}
	}
	index, key, ok := d.Claim()
	if !ok {
		return Decoded{Data: data, Index: -1}
	}
	return Decoded{Data: d.apply(key, data), Index: index, Applied: true}
}

func (d *Decoder) apply(key, data []byte) []byte {
	out := make([]byte, len(data)+HeaderSize)
	copy(out, d.canonical[:])
	body := out[HeaderSize:]
	for i, b := range data {
		body[i] = b ^ key[i%len(key)]
	}
	return out
}

// Remaining returns how many key tables have not been consumed.
func (d *Decoder) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remaining
}

// Cursor returns the index of the next table to be claimed.
func (d *Decoder) Cursor() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// Len returns the number of key tables the decoder started with.
func (d *Decoder) Len() int {
	return d.total
}

// Expected returns the header of a class that needs no decoding.
func (d *Decoder) Expected() Header {
	return d.expected
}

// String renders a header as spaced hex, as used in configuration.
func (h Header) String() string {
	return fmt.Sprintf("% X", h[:])
}

// ParseHeader parses eight hex bytes, optionally separated by spaces.
func ParseHeader(text string) (Header, error) {
	key, err := ParseKey(text)
	if err != nil {
		return Header{}, err
	}
	if len(key) != HeaderSize {
		return Header{}, fmt.Errorf("header %q: want %d bytes, got %d", text, HeaderSize, len(key))
	}
	return Header(key), nil
}
