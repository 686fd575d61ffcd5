// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keytable

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseKey parses a key written as hex bytes. Bytes may be separated
// by spaces, commas or colons and may carry a 0x prefix, so
// "6E 47 ED", "0x6E,0x47,0xED" and "6e47ed" are the same key.
func ParseKey(text string) ([]byte, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == ':' || r == '\t' || r == '\n'
	})
	var digits strings.Builder
	for _, field := range fields {
		field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
		if len(fields) > 1 && len(field) == 1 {
			digits.WriteByte('0')
		}
		digits.WriteString(field)
	}
	key, err := hex.DecodeString(digits.String())
	if err != nil {
		return nil, fmt.Errorf("parsing key %q: %w", text, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("parsing key %q: empty", text)
	}
	return key, nil
}

// FormatKey renders key as upper-case hex bytes separated by spaces,
// the form ParseKey accepts and configuration files use.
func FormatKey(key []byte) string {
	return fmt.Sprintf("% X", key)
}
