package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// NonceSize is the AES-GCM nonce length in bytes (96 bits).
const NonceSize = 12

// ErrDecryption is returned whenever authenticated decryption fails: wrong
// key, wrong nonce, corrupted or tampered ciphertext. No plaintext is ever
// returned alongside it.
var ErrDecryption = errors.New("decryption failed")

func newGCM(k Key) (cipher.AEAD, error) {
	if !k.Valid() {
		return nil, ErrKeyFormat
	}
	block, err := aes.NewCipher(k.raw)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptFile seals the whole plaintext under key with a fresh random nonce.
// The GCM tag is appended to the returned ciphertext.
func EncryptFile(plaintext []byte, key Key) (ciphertext, nonce []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// DecryptFile opens ciphertext produced by EncryptFile.
func DecryptFile(ciphertext []byte, key Key, nonce []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize || len(ciphertext) < aead.Overhead() {
		return nil, ErrDecryption
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// EncodeNonce renders a nonce the way file records store it.
func EncodeNonce(nonce []byte) string {
	return base64.StdEncoding.EncodeToString(nonce)
}

// DecodeNonce parses a stored nonce. Anything that is not a base64 encoded
// 12-byte value is reported as ErrDecryption.
func DecodeNonce(s string) ([]byte, error) {
	nonce, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(nonce) != NonceSize {
		return nil, ErrDecryption
	}
	return nonce, nil
}
