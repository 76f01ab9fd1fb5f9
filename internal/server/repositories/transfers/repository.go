// Package transfers declares the storage contract for transfers and their
// ordered file records, and implements it on PostgreSQL.
package transfers

import (
	"context"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
)

type Repository interface {
	// Create inserts the transfer and its files and fills in ID and CreatedAt.
	// Run it inside a transaction: the rows are written by several statements.
	Create(ctx context.Context, t *models.Transfer) error

	// GetByTransferID returns the transfer with its files in upload order, or
	// common.ErrorNotFound.
	GetByTransferID(ctx context.Context, transferID string) (*models.Transfer, error)

	// IncrementDownloadCount atomically bumps the counter and returns the new
	// value. It returns common.ErrDownloadLimit when the limit is already
	// reached and common.ErrorNotFound when the transfer does not exist.
	IncrementDownloadCount(ctx context.Context, transferID string) (int64, error)

	Delete(ctx context.Context, transferID string) error

	ListByOwner(ctx context.Context, ownerID string) ([]*models.Transfer, error)
	ListAll(ctx context.Context, limit int) ([]*models.Transfer, error)
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*models.Transfer, error)

	Stats(ctx context.Context, now time.Time) (*models.TransferStats, error)
}
