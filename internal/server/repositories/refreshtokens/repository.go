// Package refreshtokens stores the single-use refresh tokens issued at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID, token string, expiresAt time.Time) error

	// Find returns common.ErrorNotFound for unknown tokens.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete consumes a token. It returns common.ErrorNotFound when the token
	// was already consumed, which makes rotation race-safe.
	Delete(ctx context.Context, token string) error

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
