// Package history keeps the local record of sent and fetched transfers.
package history

import (
	"context"

	"github.com/dmitrijs2005/vaultdrop/internal/client/models"
)

type Repository interface {
	Add(ctx context.Context, e *models.HistoryEntry) error
	// List returns the newest entries first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	// DeleteTransfer drops every entry of a transfer and reports how many
	// were removed.
	DeleteTransfer(ctx context.Context, transferID string) (int64, error)
}
