// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/classforge/lib/codec"
	"github.com/bureau-foundation/classforge/lib/contentid"
	"github.com/bureau-foundation/classforge/lib/transform"
)

// FormatVersion is the manifest format written by this package.
const FormatVersion = 1

// Header is the first item of a manifest.
type Header struct {
	// Format is the manifest format version.
	Format int `cbor:"format" json:"format"`

	// Tool is the version string of the binary that wrote it.
	Tool string `cbor:"tool" json:"tool"`

	// Input and Output describe the batch source and destination.
	Input  string `cbor:"input" json:"input"`
	Output string `cbor:"output" json:"output"`

	// Config is the path of the configuration file, empty for the
	// embedded default.
	Config string `cbor:"config,omitempty" json:"config,omitempty"`

	// Digest is the content-key algorithm of the run.
	Digest contentid.Algorithm `cbor:"digest" json:"digest"`
}

// Entry records one class.
type Entry struct {
	// Path is the class file's path inside the input tree or archive.
	Path string `cbor:"path"`

	// Module is the internal class name the class was processed under.
	Module string `cbor:"module"`

	// Final is the state the class ended in.
	Final transform.State `cbor:"final"`

	// Key is the catalog key of the input.
	Key contentid.Key `cbor:"key,omitempty"`

	// Locator names the patch that matched, if any.
	Locator string `cbor:"locator,omitempty"`

	// KeyTable is the key table that decoded the class, or -1.
	KeyTable int `cbor:"key_table"`

	InputHash  Hash `cbor:"input_hash"`
	OutputHash Hash `cbor:"output_hash"`
	InputSize  int  `cbor:"input_size"`
	OutputSize int  `cbor:"output_size"`

	// Error is the stage failure, if any.
	Error string `cbor:"error,omitempty"`
}

// NewEntry builds the entry for one processed class.
func NewEntry(path, module string, input []byte, result transform.Result) Entry {
	entry := Entry{
		Path:       path,
		Module:     module,
		Final:      result.Final(),
		Key:        result.Key,
		KeyTable:   result.KeyTable,
		InputHash:  HashInput(input),
		OutputHash: HashOutput(result.Data),
		InputSize:  len(input),
		OutputSize: len(result.Data),
	}
	if result.Patch != nil {
		entry.Locator = string(result.Patch.Locator)
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	return entry
}

// Writer appends entries to a manifest stream. It is safe for
// concurrent use by batch workers.
type Writer struct {
	mu      sync.Mutex
	encoder *codec.Encoder
	count   int
}

// NewWriter writes header to w and returns a Writer for the entries.
func NewWriter(w io.Writer, header Header) (*Writer, error) {
	if header.Format == 0 {
		header.Format = FormatVersion
	}
	encoder := codec.NewEncoder(w)
	if err := encoder.Encode(header); err != nil {
		return nil, fmt.Errorf("writing manifest header: %w", err)
	}
	return &Writer{encoder: encoder}, nil
}

// Write appends one entry.
func (w *Writer) Write(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.encoder.Encode(entry); err != nil {
		return fmt.Errorf("writing manifest entry for %s: %w", entry.Path, err)
	}
	w.count++
	return nil
}

// Count returns the number of entries written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Manifest is a decoded manifest.
type Manifest struct {
	Header  Header
	Entries []Entry
}

// Read decodes a manifest stream.
func Read(r io.Reader) (*Manifest, error) {
	decoder := codec.NewDecoder(r)

	var manifest Manifest
	if err := decoder.Decode(&manifest.Header); err != nil {
		return nil, fmt.Errorf("reading manifest header: %w", err)
	}
	if manifest.Header.Format != FormatVersion {
		return nil, fmt.Errorf("unsupported manifest format %d (want %d)", manifest.Header.Format, FormatVersion)
	}
	for {
		var entry Entry
		err := decoder.Decode(&entry)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading manifest entry %d: %w", len(manifest.Entries), err)
		}
		manifest.Entries = append(manifest.Entries, entry)
	}
	return &manifest, nil
}

// Sorted returns the entries ordered by path.
func (m *Manifest) Sorted() []Entry {
	entries := make([]Entry, len(m.Entries))
	copy(entries, m.Entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// Counts returns the number of entries per final state.
func (m *Manifest) Counts() map[transform.State]int {
	counts := make(map[transform.State]int)
	for _, entry := range m.Entries {
		counts[entry.Final]++
	}
	return counts
}

// Failures returns the entries that recorded a stage error.
func (m *Manifest) Failures() []Entry {
	var failures []Entry
	for _, entry := range m.Sorted() {
		if entry.Error != "" {
			failures = append(failures, entry)
		}
	}
	return failures
}

// RunHash hashes every (path, output hash) pair in path order.
func (m *Manifest) RunHash() Hash {
	hasher, err := blake3.NewKeyed(runDomainKey[:])
	if err != nil {
		panic("manifest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	for _, entry := range m.Sorted() {
		// Length-prefix the path so ("ab", h) and ("a", "b"+h) differ.
		var length [4]byte
		binary.BigEndian.PutUint32(length[:], uint32(len(entry.Path)))
		hasher.Write(length[:])
		hasher.Write([]byte(entry.Path))
		hasher.Write(entry.OutputHash[:])
	}
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
