package models

import "time"

// PendingUpload is an object key handed out by AuthorizeUpload and not yet
// registered in a transfer. Only the uploader it was issued to can claim it,
// and only once.
type PendingUpload struct {
	// OwnerID is empty for anonymous uploads.
	OwnerID   string
	Bucket    string
	Key       string
	ExpiresAt time.Time
	CreatedAt time.Time
}
