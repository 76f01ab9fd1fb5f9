// Package uploadslots remembers the object keys issued for uploads until a
// transfer claims them, so a transfer can only point at objects its uploader
// was given.
package uploadslots

import (
	"context"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
)

type Repository interface {
	Reserve(ctx context.Context, u *models.PendingUpload) error

	// Claim removes the slot for bucket/key if it was issued to ownerID and is
	// still valid at now. Otherwise it returns common.ErrorNotFound.
	Claim(ctx context.Context, ownerID, bucket, key string, now time.Time) error

	// ListExpired returns unclaimed slots whose validity ended before before.
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*models.PendingUpload, error)

	Delete(ctx context.Context, bucket, key string) error
}
