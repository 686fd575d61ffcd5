// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bsdiff

import "fmt"

// Encode writes a patch that turns original into target. The patch
// holds a single control triple: the common-length prefix as a bytewise
// difference against original, and the remainder of target as extra
// data. It is valid for any input pair but makes no attempt at a
// minimal encoding.
func Encode(original, target []byte, compression Compression) ([]byte, error) {
	if len(target) > MaxOutputSize {
		return nil, fmt.Errorf("target of %d bytes exceeds %d", len(target), MaxOutputSize)
	}

	addLength := min(len(original), len(target))
	diff := make([]byte, addLength)
	for i := range diff {
		diff[i] = target[i] - original[i]
	}
	extra := target[addLength:]

	var control []byte
	if len(target) > 0 {
		control = make([]byte, controlTripleSize)
		putOffset(control[0:8], int64(addLength))
		putOffset(control[8:16], int64(len(extra)))
		putOffset(control[16:24], 0)
	}

	controlBlock, err := compressBlock(control, compression)
	if err != nil {
		return nil, fmt.Errorf("control block: %w", err)
	}
	diffBlock, err := compressBlock(diff, compression)
	if err != nil {
		return nil, fmt.Errorf("diff block: %w", err)
	}
	extraBlock, err := compressBlock(extra, compression)
	if err != nil {
		return nil, fmt.Errorf("extra block: %w", err)
	}

	patch := make([]byte, HeaderSize, HeaderSize+len(controlBlock)+len(diffBlock)+len(extraBlock))
	copy(patch, Magic)
	putOffset(patch[8:16], int64(len(controlBlock)))
	putOffset(patch[16:24], int64(len(diffBlock)))
	putOffset(patch[24:32], int64(len(target)))
	patch = append(patch, controlBlock...)
	patch = append(patch, diffBlock...)
	patch = append(patch, extraBlock...)
	return patch, nil
}
