// Package token generates raw API keys and derives the digest they are
// stored and looked up under. The raw key leaves this process exactly once,
// at issuance time; only the digest is ever persisted.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/chainboxhq/chainbox/internal/pkg/apperr"
)

const (
	// KeyPrefix marks Chainbox API keys so leaked-secret scanners can match them.
	KeyPrefix = "cbx_"

	secretBytes   = 32 // 256 bits of entropy
	displayPrefix = 16
)

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generate returns a new raw API key. It fails only when the secure
// randomness source does; there is no weaker fallback.
func Generate() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: secure randomness unavailable: %w", err)
	}
	return KeyPrefix + strings.ToLower(keyEncoding.EncodeToString(b)), nil
}

// Digest returns the hex SHA-256 of a raw key. Deterministic, so repeated
// presentations of the same key always resolve to the same stored row.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// Prefix returns the display prefix stored alongside a credential so users
// can tell their keys apart without the raw secret.
func Prefix(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) < displayPrefix {
		return raw
	}
	return raw[:displayPrefix]
}

// Parse validates the transport encoding of a presented key and returns the
// trimmed raw key. Malformed input is rejected before any store lookup.
func Parse(presented string) (string, error) {
	raw := strings.TrimSpace(presented)
	if !strings.HasPrefix(raw, KeyPrefix) {
		return "", fmt.Errorf("token: missing %q prefix: %w", KeyPrefix, apperr.ErrInvalidInput)
	}
	encoded := raw[len(KeyPrefix):]
	if len(encoded) == 0 {
		return "", fmt.Errorf("token: empty secret: %w", apperr.ErrInvalidInput)
	}
	if _, err := keyEncoding.DecodeString(strings.ToUpper(encoded)); err != nil {
		return "", fmt.Errorf("token: malformed secret encoding: %w", apperr.ErrInvalidInput)
	}
	return raw, nil
}
