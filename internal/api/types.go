// Package api holds the wire types shared by the HTTP and gRPC surfaces and
// by the client. Field names are the JSON names browsers already use.
package api

import "time"

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Plan        string    `json:"plan"`
	StorageUsed int64     `json:"storageUsed"`
	Quota       int64     `json:"quota,omitempty"`
	IsBlocked   bool      `json:"isBlocked"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

type UploadFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type AuthorizeUploadRequest struct {
	Files []UploadFile `json:"files"`
}

type UploadSlot struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
}

type AuthorizeUploadResponse struct {
	Slots []UploadSlot `json:"slots"`
}

// File is a file record as registered by the sender. Encrypted files carry
// Bucket, Key and Nonce; external files carry only ExternalURL.
type File struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	Bucket      string `json:"bucket,omitempty"`
	Key         string `json:"key,omitempty"`
	Nonce       string `json:"nonce,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`
}

type CreateTransferRequest struct {
	Files []File `json:"files"`
	// ExpiresIn is in days. Zero means the default of one day.
	ExpiresIn    int    `json:"expiresIn,omitempty"`
	Password     string `json:"password,omitempty"`
	MaxDownloads int64  `json:"maxDownloads,omitempty"`
}

type CreateTransferResponse struct {
	TransferID string    `json:"transferId"`
	ShareBase  string    `json:"shareBase"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// TransferSummary describes a transfer without resolving its files.
type TransferSummary struct {
	TransferID    string    `json:"transferId"`
	OwnerID       string    `json:"ownerId,omitempty"`
	Encrypted     bool      `json:"encrypted"`
	HasPassword   bool      `json:"hasPassword"`
	FileNames     []string  `json:"fileNames"`
	TotalSize     int64     `json:"totalSize"`
	DownloadCount int64     `json:"downloadCount"`
	MaxDownloads  int64     `json:"maxDownloads,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ListTransfersRequest struct{}

type ListTransfersResponse struct {
	Transfers []TransferSummary `json:"transfers"`
}

type GetTransferRequest struct {
	TransferID string `json:"transferId"`
	Password   string `json:"password,omitempty"`
}

type ResolvedFile struct {
	Index        int        `json:"index"`
	Name         string     `json:"name"`
	Size         int64      `json:"size"`
	Type         string     `json:"type"`
	Encrypted    bool       `json:"encrypted"`
	Nonce        string     `json:"nonce,omitempty"`
	URL          string     `json:"url"`
	URLExpiresAt *time.Time `json:"urlExpiresAt,omitempty"`
}

type Envelope struct {
	TransferID    string         `json:"transferId"`
	Encrypted     bool           `json:"encrypted"`
	ExpiresAt     time.Time      `json:"expiresAt"`
	DownloadCount int64          `json:"downloadCount"`
	MaxDownloads  int64          `json:"maxDownloads,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	Files         []ResolvedFile `json:"files"`
}

type ResolveDownloadRequest struct {
	TransferID string `json:"transferId"`
	Password   string `json:"password,omitempty"`
	FileIndex  int    `json:"fileIndex"`
	ClickID    string `json:"clickId,omitempty"`
}

type DeleteTransferRequest struct {
	TransferID string `json:"transferId"`
}

type Empty struct{}

type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type Timestamp struct {
	Seconds float64 `json:"seconds"`
}

type Annotation struct {
	Kind      string     `json:"kind"`
	Region    *Region    `json:"region,omitempty"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`
}

type PostCommentRequest struct {
	Text       string      `json:"text"`
	FileIndex  *int        `json:"fileIndex,omitempty"`
	Annotation *Annotation `json:"annotation,omitempty"`
}

type Comment struct {
	ID         string      `json:"id"`
	TransferID string      `json:"transferId"`
	UserID     string      `json:"userId,omitempty"`
	UserName   string      `json:"userName"`
	Text       string      `json:"text"`
	FileIndex  *int        `json:"fileIndex,omitempty"`
	Annotation *Annotation `json:"annotation,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type TransferStats struct {
	TotalTransfers  int64 `json:"totalTransfers"`
	TotalStorage    int64 `json:"totalStorage"`
	ActiveTransfers int64 `json:"activeTransfers"`
}

type AdminOverview struct {
	Transfers []TransferSummary `json:"transfers"`
	Stats     TransferStats     `json:"stats"`
}

type SetBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

// ErrorResponse is the body of every non-2xx HTTP reply.
type ErrorResponse struct {
	Error            string `json:"error"`
	RequiresPassword bool   `json:"requiresPassword,omitempty"`
}
