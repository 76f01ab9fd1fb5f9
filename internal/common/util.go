package common

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"strings"
)

// GenerateRandByteArray returns size bytes from crypto/rand. A failing random
// source is fatal: there is no weaker fallback.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandHexString generates size random bytes and returns them hex-encoded,
// so the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var transferIDEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewTransferID returns a URL-safe transfer identifier: the "v-" prefix and
// 24 lowercase base32 characters (120 random bits).
func NewTransferID() (string, error) {
	b := make([]byte, 15)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return TransferIDPrefix + strings.ToLower(transferIDEncoding.EncodeToString(b)), nil
}

// WipeByteArray zeroes b in place.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
