// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 keyed digest.
type Hash [32]byte

type domainKey [32]byte

// Domain keys are the ASCII domain names zero-padded to 32 bytes.
// Changing one invalidates every recorded hash in that domain.
var (
	inputDomainKey = domainKey{
		'c', 'l', 'a', 's', 's', 'f', 'o', 'r', 'g', 'e', '.', 'i', 'n', 'p', 'u', 't',
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	outputDomainKey = domainKey{
		'c', 'l', 'a', 's', 's', 'f', 'o', 'r', 'g', 'e', '.', 'o', 'u', 't', 'p', 'u',
		't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	runDomainKey = domainKey{
		'c', 'l', 'a', 's', 's', 'f', 'o', 'r', 'g', 'e', '.', 'r', 'u', 'n', 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// HashInput returns the input-domain hash of class bytes.
func HashInput(data []byte) Hash {
	return keyedHash(inputDomainKey, data)
}

// HashOutput returns the output-domain hash of class bytes.
func HashOutput(data []byte) Hash {
	return keyedHash(outputDomainKey, data)
}

func keyedHash(key domainKey, data []byte) Hash {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("manifest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// String returns the hex form of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash, used for entries with no
// output.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing manifest hash: %w", err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("manifest hash is %d bytes, want %d", len(decoded), len(hash))
	}
	copy(hash[:], decoded)
	return hash, nil
}
