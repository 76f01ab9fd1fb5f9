package models

import "time"

// Transfer is the unit of sharing: an ordered list of files behind one link.
type Transfer struct {
	ID         string
	TransferID string
	// OwnerID is empty for anonymous uploads.
	OwnerID string
	Files   []File
	// Encrypted is true when every file took the encrypted path.
	Encrypted     bool
	ExpiresAt     time.Time
	PasswordHash  string
	DownloadCount int64
	// MaxDownloads of zero means unlimited.
	MaxDownloads int64
	CreatedAt    time.Time
}

// HasPassword reports whether the transfer is password protected.
func (t *Transfer) HasPassword() bool {
	return t.PasswordHash != ""
}

// TotalSize sums the plaintext sizes of all files.
func (t *Transfer) TotalSize() int64 {
	var n int64
	for _, f := range t.Files {
		n += f.Size
	}
	return n
}

// Exhausted reports whether the download limit has been reached.
func (t *Transfer) Exhausted() bool {
	return t.MaxDownloads > 0 && t.DownloadCount >= t.MaxDownloads
}

// ResolvedFile is a file record whose storage pointer was turned into a
// URL the recipient can fetch directly.
type ResolvedFile struct {
	Index     int
	Name      string
	Size      int64
	Type      string
	Encrypted bool
	Nonce     string
	URL       string
	// URLExpiresAt is zero for external URLs.
	URLExpiresAt time.Time
}

// Envelope is what a granted retrieval returns.
type Envelope struct {
	TransferID    string
	Encrypted     bool
	ExpiresAt     time.Time
	DownloadCount int64
	MaxDownloads  int64
	CreatedAt     time.Time
	Files         []ResolvedFile
}

// UploadFile describes a file the client is about to upload.
type UploadFile struct {
	Name string
	Type string
	Size int64
}

// UploadSlot is where the client PUTs one file's ciphertext.
type UploadSlot struct {
	Name   string
	Bucket string
	Key    string
	URL    string
}

// TransferStats is the admin overview summary.
type TransferStats struct {
	TotalTransfers  int64
	TotalStorage    int64
	ActiveTransfers int64
}
