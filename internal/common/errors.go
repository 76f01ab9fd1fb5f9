// Package common defines shared constants and sentinel errors used across
// the VaultDrop client and server. Callers should match these values with
// errors.Is.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrValidation     = errors.New("validation error")
	ErrUserBlocked    = errors.New("user is blocked")
	ErrQuotaExceeded  = errors.New("storage quota exceeded")

	// Access gate errors.
	ErrExpired          = errors.New("transfer expired")
	ErrPasswordRequired = errors.New("password required")
	// ErrPasswordMismatch matches ErrPasswordRequired too, so callers that only
	// need to prompt again can check for the latter.
	ErrPasswordMismatch = fmt.Errorf("password mismatch: %w", ErrPasswordRequired)
	ErrDownloadLimit    = fmt.Errorf("download limit reached: %w", ErrExpired)
	ErrTooManyAttempts  = errors.New("too many password attempts")

	// Storage errors. Only these are worth retrying.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrLinkExpired        = errors.New("presigned link expired")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
