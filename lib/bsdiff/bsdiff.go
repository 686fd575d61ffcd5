// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bsdiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the leading signature of every patch.
const Magic = "BSDIFF40"

// HeaderSize is the fixed size of the patch header.
const HeaderSize = 32

// MaxOutputSize bounds the reconstructed output. Class files are far
// smaller; a header claiming more is treated as corrupt rather than
// allocated.
const MaxOutputSize = 64 << 20

// controlTripleSize is the encoded size of one (add, copy, seek) triple.
const controlTripleSize = 24

// ErrCorrupt is matched by every error caused by malformed patch data.
var ErrCorrupt = errors.New("corrupt patch")

// Header is the decoded fixed-size patch header.
type Header struct {
	// ControlLength is the compressed size of the control block.
	ControlLength int64

	// DiffLength is the compressed size of the diff block.
	DiffLength int64

	// OutputLength is the size of the reconstructed buffer.
	OutputLength int64
}

// ParseHeader decodes and validates the patch header. It checks that
// the declared blocks fit inside patch.
func ParseHeader(patch []byte) (Header, error) {
	if len(patch) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(patch))
	}
	if !bytes.Equal(patch[:8], []byte(Magic)) {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrCorrupt, patch[:8])
	}

	header := Header{
		ControlLength: readOffset(patch[8:16]),
		DiffLength:    readOffset(patch[16:24]),
		OutputLength:  readOffset(patch[24:32]),
	}

	if header.ControlLength < 0 || header.DiffLength < 0 || header.OutputLength < 0 {
		return Header{}, fmt.Errorf("%w: negative length in header", ErrCorrupt)
	}
	if header.OutputLength > MaxOutputSize {
		return Header{}, fmt.Errorf("%w: output length %d exceeds %d", ErrCorrupt, header.OutputLength, MaxOutputSize)
	}
	body := int64(len(patch) - HeaderSize)
	if header.ControlLength > body || header.DiffLength > body-header.ControlLength {
		return Header{}, fmt.Errorf("%w: blocks (%d+%d bytes) exceed patch body of %d bytes",
			ErrCorrupt, header.ControlLength, header.DiffLength, body)
	}

	return header, nil
}

// Apply reconstructs the target buffer from original and patch.
func Apply(original, patch []byte) ([]byte, error) {
	header, err := ParseHeader(patch)
	if err != nil {
		return nil, err
	}

	controlStart := int64(HeaderSize)
	diffStart := controlStart + header.ControlLength
	extraStart := diffStart + header.DiffLength

	outputLength := header.OutputLength
	control, err := decompressBlock(patch[controlStart:diffStart], controlTripleSize*(outputLength+1))
	if err != nil {
		return nil, fmt.Errorf("control block: %w", err)
	}
	diff, err := decompressBlock(patch[diffStart:extraStart], outputLength)
	if err != nil {
		return nil, fmt.Errorf("diff block: %w", err)
	}
	extra, err := decompressBlock(patch[extraStart:], outputLength)
	if err != nil {
		return nil, fmt.Errorf("extra block: %w", err)
	}

	output := make([]byte, outputLength)
	var outputPosition, originalPosition int64
	oldLength := int64(len(original))

	for outputPosition < outputLength {
		if len(control) < controlTripleSize {
			return nil, fmt.Errorf("%w: control block ends at output offset %d of %d",
				ErrCorrupt, outputPosition, outputLength)
		}
		addLength := readOffset(control[0:8])
		copyLength := readOffset(control[8:16])
		seek := readOffset(control[16:24])
		control = control[controlTripleSize:]

		if addLength < 0 || copyLength < 0 {
			return nil, fmt.Errorf("%w: negative control length", ErrCorrupt)
		}

		if addLength > outputLength-outputPosition {
			return nil, fmt.Errorf("%w: add length %d overruns output", ErrCorrupt, addLength)
		}
		if addLength > int64(len(diff)) {
			return nil, fmt.Errorf("%w: diff block exhausted", ErrCorrupt)
		}
		for i := int64(0); i < addLength; i++ {
			value := diff[i]
			if source := originalPosition + i; source >= 0 && source < oldLength {
				value += original[source]
			}
			output[outputPosition+i] = value
		}
		diff = diff[addLength:]
		outputPosition += addLength
		originalPosition += addLength

		if copyLength > outputLength-outputPosition {
			return nil, fmt.Errorf("%w: copy length %d overruns output", ErrCorrupt, copyLength)
		}
		if copyLength > int64(len(extra)) {
			return nil, fmt.Errorf("%w: extra block exhausted", ErrCorrupt)
		}
		copy(output[outputPosition:], extra[:copyLength])
		extra = extra[copyLength:]
		outputPosition += copyLength
		originalPosition += seek
	}

	return output, nil
}

// readOffset decodes a bsdiff sign-magnitude integer.
func readOffset(buffer []byte) int64 {
	magnitude := int64(binary.LittleEndian.Uint64(buffer) &^ (1 << 63))
	if buffer[7]&0x80 != 0 {
		return -magnitude
	}
	return magnitude
}

// putOffset encodes value in bsdiff sign-magnitude form.
func putOffset(buffer []byte, value int64) {
	if value < 0 {
		binary.LittleEndian.PutUint64(buffer, uint64(-value)|1<<63)
		return
	}
	binary.LittleEndian.PutUint64(buffer, uint64(value))
}
