// Package token generates and fingerprints the bearer tokens embedded in
// access links. The raw token is the only credential ever sent to a visitor;
// stores and logs only ever see the hash.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// RawLen is the length of a raw token (32 random bytes, lowercase hex).
const RawLen = 64

// HashLen is the length of a token hash (SHA-256, lowercase hex).
const HashLen = 64

// Generate creates a raw bearer token with 256 bits of entropy and the
// SHA-256 fingerprint used as its storage lookup key.
func Generate() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate random token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, Hash(raw), nil
}

// Hash returns the deterministic SHA-256 fingerprint of a raw token,
// lowercase hex. Recomputed at verification time to find the stored row.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// WellFormed reports whether a presented token has the exact shape Generate
// produces. Anything else is rejected before touching a store.
func WellFormed(raw string) bool {
	if len(raw) != RawLen {
		return false
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
