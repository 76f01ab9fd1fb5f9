// Package sharelink builds and parses share links of the form
// {base}/vault/{transferId}#key={exportedKey}. The key lives only in the
// fragment, which browsers never send to a server.
package sharelink

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
)

const (
	vaultSegment = "vault"
	keyParam     = "key"
)

// Link is a parsed share link.
type Link struct {
	// Base is everything before /vault/{id}, e.g. "https://drop.example.com".
	Base       string
	TransferID string
	Key        string
}

// ShareBase returns {base}/vault/{transferID}: the part of the link the
// server is allowed to know.
func ShareBase(base, transferID string) string {
	return strings.TrimRight(base, "/") + "/" + vaultSegment + "/" + url.PathEscape(transferID)
}

// Build appends the key fragment to a share base.
func Build(shareBase, exportedKey string) string {
	return shareBase + "#" + keyParam + "=" + exportedKey
}

// Parse splits a share link into its parts. Any link that does not point at
// a vault or lacks the key fragment is reported as cryptox.ErrKeyFormat, which
// callers surface as "link is invalid".
func Parse(link string) (*Link, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: not an absolute url", cryptox.ErrKeyFormat)
	}

	path := strings.TrimRight(u.Path, "/")
	i := strings.LastIndex(path, "/"+vaultSegment+"/")
	if i < 0 {
		return nil, fmt.Errorf("%w: not a vault link", cryptox.ErrKeyFormat)
	}
	id := path[i+len(vaultSegment)+2:]
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("%w: missing transfer id", cryptox.ErrKeyFormat)
	}

	key := fragmentValue(u.Fragment, keyParam)
	if key == "" {
		return nil, fmt.Errorf("%w: missing key", cryptox.ErrKeyFormat)
	}

	base := url.URL{Scheme: u.Scheme, Host: u.Host, Path: path[:i]}

	return &Link{Base: base.String(), TransferID: id, Key: key}, nil
}

// fragmentValue reads name=value out of a fragment. Unlike url.ParseQuery it
// leaves "+" alone, since browser-exported keys use standard base64.
func fragmentValue(fragment, name string) string {
	for _, pair := range strings.Split(fragment, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k != name {
			continue
		}
		if unescaped, err := url.PathUnescape(v); err == nil {
			return unescaped
		}
		return v
	}
	return ""
}
