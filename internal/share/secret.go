// Package share holds the secrets behind public share links: opaque tokens
// and PIN hashes.
package share

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	tokenBytes = 32
	saltBytes  = 16
	keyBytes   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	hashScheme = "scrypt"
)

var ErrMalformedHash = errors.New("malformed pin hash")

// NewToken returns 32 random bytes hex encoded.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashPIN derives "scrypt$<salt>$<key>" with a fresh random salt.
func HashPIN(pin string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key, err := scrypt.Key([]byte(pin), salt, scryptN, scryptR, scryptP, keyBytes)
	if err != nil {
		return "", fmt.Errorf("derive pin key: %w", err)
	}
	enc := base64.RawStdEncoding
	return hashScheme + "$" + enc.EncodeToString(salt) + "$" + enc.EncodeToString(key), nil
}

// VerifyPIN reports whether pin matches encoded. Comparison is constant time.
func VerifyPIN(pin, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != hashScheme {
		return false, ErrMalformedHash
	}
	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[1])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	want, err := enc.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	got, err := scrypt.Key([]byte(pin), salt, scryptN, scryptR, scryptP, len(want))
	if err != nil {
		return false, fmt.Errorf("derive pin key: %w", err)
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
