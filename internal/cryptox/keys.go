// Package cryptox implements the client-side cryptography of a transfer:
// the per-transfer AES-256-GCM key and its link-safe export format, file
// encryption and decryption, and the argon2id password hashes the server
// keeps for gated transfers and accounts.
package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
)

// KeySize is the length of a transfer key in bytes (AES-256).
const KeySize = 32

var (
	// ErrKeyFormat means the exported key string is not usable key material.
	// Users see it as "link is invalid".
	ErrKeyFormat = errors.New("invalid key format")
)

// Key is a per-transfer symmetric key. It lives only on the sender's and the
// recipient's machines and in the share link fragment.
type Key struct {
	raw []byte
}

// GenerateKey returns a fresh random 256-bit key.
func GenerateKey() (Key, error) {
	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		return Key{}, fmt.Errorf("generate key: %w", err)
	}
	return Key{raw: raw}, nil
}

// Bytes exposes the raw key material. The slice must not be modified.
func (k Key) Bytes() []byte { return k.raw }

// Valid reports whether k holds key material of the right size.
func (k Key) Valid() bool { return len(k.raw) == KeySize }

// Wipe zeroes the key material.
func (k Key) Wipe() { common.WipeByteArray(k.raw) }

// jwk is the JSON Web Key form of a key; browsers export keys the same way.
type jwk struct {
	Alg    string   `json:"alg"`
	Ext    bool     `json:"ext"`
	K      string   `json:"k"`
	KeyOps []string `json:"key_ops"`
	Kty    string   `json:"kty"`
}

// ExportKey serializes k as base64url (unpadded) JSON JWK. The result only
// uses characters that are legal in a URL fragment.
func ExportKey(k Key) string {
	b, _ := json.Marshal(jwk{
		Alg:    "A256GCM",
		Ext:    true,
		K:      base64.RawURLEncoding.EncodeToString(k.raw),
		KeyOps: []string{"encrypt", "decrypt"},
		Kty:    "oct",
	})
	return base64.RawURLEncoding.EncodeToString(b)
}

// ImportKey parses a string produced by ExportKey. Standard padded base64 is
// accepted as well, since browser clients produce it with btoa.
func ImportKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, ErrKeyFormat
	}

	b, err := decodeAnyBase64(s)
	if err != nil {
		return Key{}, ErrKeyFormat
	}

	var j jwk
	if err := json.Unmarshal(b, &j); err != nil {
		return Key{}, ErrKeyFormat
	}
	if j.Kty != "oct" || (j.Alg != "" && j.Alg != "A256GCM") {
		return Key{}, ErrKeyFormat
	}

	raw, err := decodeAnyBase64(j.K)
	if err != nil || len(raw) != KeySize {
		return Key{}, ErrKeyFormat
	}

	return Key{raw: raw}, nil
}

func decodeAnyBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
