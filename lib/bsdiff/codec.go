// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bsdiff

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the stream codec of a patch block. The codec
// is detected from the stream magic on read, so the value is never
// stored in the patch itself.
type Compression uint8

const (
	// CompressionBzip2 is the codec of bsdiff and the jbsdiff default.
	// Read-only: no bzip2 encoder is available.
	CompressionBzip2 Compression = iota + 1

	// CompressionGzip is a gzip member.
	CompressionGzip

	// CompressionZstd is a zstd frame.
	CompressionZstd

	// CompressionLZ4 is an LZ4 frame.
	CompressionLZ4
)

// Stream signatures, as written by each encoder.
var (
	bzip2Magic = []byte("BZh")
	gzipMagic  = []byte{0x1F, 0x8B}
	zstdMagic  = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic   = []byte{0x04, 0x22, 0x4D, 0x18}
)

// String returns the name of a compression codec.
func (compression Compression) String() string {
	switch compression {
	case CompressionBzip2:
		return "bzip2"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", compression)
	}
}

// ParseCompression parses a codec name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "bzip2":
		return CompressionBzip2, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", name)
	}
}

// DetectCompression identifies the codec of a compressed block.
func DetectCompression(block []byte) (Compression, error) {
	switch {
	case bytes.HasPrefix(block, bzip2Magic):
		return CompressionBzip2, nil
	case bytes.HasPrefix(block, gzipMagic):
		return CompressionGzip, nil
	case bytes.HasPrefix(block, zstdMagic):
		return CompressionZstd, nil
	case bytes.HasPrefix(block, lz4Magic):
		return CompressionLZ4, nil
	default:
		prefix := block
		if len(prefix) > 4 {
			prefix = prefix[:4]
		}
		return 0, fmt.Errorf("%w: unrecognized block compression % x", ErrCorrupt, prefix)
	}
}

// zstdEncoder is shared by every call. It is safe for concurrent use
// through EncodeAll.
var zstdEncoder *zstd.Encoder

// zstdMaxWindow caps the window a patch block may declare, so a small
// hostile frame cannot make the decoder allocate far beyond what a
// class file needs.
const zstdMaxWindow = 8 << 20

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("bsdiff: zstd encoder initialization failed: " + err.Error())
	}
}

// decompressBlock decodes one patch block. The decoded size may not
// exceed limit. An empty block decodes to nothing.
func decompressBlock(block []byte, limit int64) ([]byte, error) {
	if len(block) == 0 {
		return nil, nil
	}

	compression, err := DetectCompression(block)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	switch compression {
	case CompressionBzip2:
		reader = bzip2.NewReader(bytes.NewReader(block))

	case CompressionGzip:
		gzipReader, err := gzip.NewReader(bytes.NewReader(block))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrCorrupt, err)
		}
		defer gzipReader.Close()
		reader = gzipReader

	case CompressionZstd:
		// Streamed so the size limit applies while decoding.
		zstdReader, err := zstd.NewReader(bytes.NewReader(block),
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxWindow(zstdMaxWindow),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		defer zstdReader.Close()
		reader = zstdReader

	case CompressionLZ4:
		reader = lz4.NewReader(bytes.NewReader(block))
	}

	decoded, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, compression, err)
	}
	if int64(len(decoded)) > limit {
		return nil, fmt.Errorf("%w: block decodes to more than %d bytes", ErrCorrupt, limit)
	}
	return decoded, nil
}

// compressBlock encodes one patch block.
func compressBlock(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionGzip:
		var buffer bytes.Buffer
		writer := gzip.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		return buffer.Bytes(), nil

	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil

	case CompressionLZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buffer.Bytes(), nil

	case CompressionBzip2:
		return nil, fmt.Errorf("bzip2 blocks can be read but not written")

	default:
		return nil, fmt.Errorf("unsupported compression: %d", compression)
	}
}
