package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomHex returns n cryptographically random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Prefix returns at most the first n characters of s, for logging secrets safely.
func Prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
