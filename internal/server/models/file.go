// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
)

// File is one file of a transfer. It is either encrypted (ciphertext in the
// object store, addressed by Bucket/Key, with the nonce it was sealed under)
// or external (a third-party URL served as-is, never with a nonce).
type File struct {
	Name string
	Size int64
	Type string

	Bucket string
	Key    string
	// Nonce is the base64 encoded 12-byte AES-GCM nonce.
	Nonce string

	ExternalURL string
}

// Encrypted reports whether the file goes through the encrypted path.
func (f *File) Encrypted() bool {
	return f.ExternalURL == ""
}

// Validate enforces the record invariant: encrypted records carry a storage
// pointer and a nonce, external records carry an http(s) URL and no nonce.
func (f *File) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: file name is required", common.ErrValidation)
	}
	if f.Size < 0 {
		return fmt.Errorf("%w: negative size for %q", common.ErrValidation, f.Name)
	}

	if !f.Encrypted() {
		if f.Nonce != "" || f.Key != "" || f.Bucket != "" {
			return fmt.Errorf("%w: external file %q must not carry a nonce or storage key", common.ErrValidation, f.Name)
		}
		u, err := url.Parse(f.ExternalURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: external file %q has an invalid url", common.ErrValidation, f.Name)
		}
		return nil
	}

	if f.Bucket == "" || f.Key == "" {
		return fmt.Errorf("%w: encrypted file %q needs a bucket and key", common.ErrValidation, f.Name)
	}
	if _, err := cryptox.DecodeNonce(f.Nonce); err != nil {
		return fmt.Errorf("%w: encrypted file %q needs a 12-byte nonce", common.ErrValidation, f.Name)
	}
	return nil
}
