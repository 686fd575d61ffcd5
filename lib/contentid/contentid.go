// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentid

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// Algorithm names a digest function.
type Algorithm string

const (
	// SHA3_256 is the default. The stock catalog keys were computed
	// with it.
	SHA3_256 Algorithm = "sha3-256"

	// SHA256 is SHA-2 256.
	SHA256 Algorithm = "sha256"

	// BLAKE3 is unkeyed BLAKE3 with a 32-byte output.
	BLAKE3 Algorithm = "blake3"
)

// DigestSize is the size in bytes of every supported digest.
const DigestSize = 32

// ErrUnsupportedAlgorithm is returned by [New] for an algorithm name
// it does not know.
var ErrUnsupportedAlgorithm = errors.New("unsupported digest algorithm")

// Digest is the raw output of an [Identifier].
type Digest [DigestSize]byte

// String returns the Base64 key form of the digest.
func (d Digest) String() string {
	return string(FormatKey(d))
}

// Key is the catalog lookup form of a [Digest]: standard padded Base64.
type Key string

// Identifier computes content digests with a fixed algorithm.
type Identifier struct {
	algorithm Algorithm
	newHash   func() hash.Hash
}

// New returns an Identifier for algorithm. An empty algorithm selects
// [SHA3_256].
func New(algorithm Algorithm) (*Identifier, error) {
	if algorithm == "" {
		algorithm = SHA3_256
	}

	var newHash func() hash.Hash
	switch algorithm {
	case SHA3_256:
		newHash = func() hash.Hash { return sha3.New256() }
	case SHA256:
		newHash = sha256.New
	case BLAKE3:
		newHash = func() hash.Hash { return blake3.New() }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}

	return &Identifier{algorithm: algorithm, newHash: newHash}, nil
}

// Algorithm returns the algorithm this Identifier uses.
func (id *Identifier) Algorithm() Algorithm {
	return id.algorithm
}

// Sum returns the digest of data.
func (id *Identifier) Sum(data []byte) Digest {
	hasher := id.newHash()
	hasher.Write(data)

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// Key returns the catalog key of data.
func (id *Identifier) Key(data []byte) Key {
	return FormatKey(id.Sum(data))
}

// FormatKey renders a digest as a catalog key.
func FormatKey(digest Digest) Key {
	return Key(base64.StdEncoding.EncodeToString(digest[:]))
}

// ParseKey parses a catalog key back into a digest. The key must be
// padded standard Base64 of exactly [DigestSize] bytes.
func ParseKey(key string) (Digest, error) {
	var digest Digest
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return digest, fmt.Errorf("parsing content key: %w", err)
	}
	if len(decoded) != DigestSize {
		return digest, fmt.Errorf("content key is %d bytes, want %d", len(decoded), DigestSize)
	}
	copy(digest[:], decoded)
	return digest, nil
}
