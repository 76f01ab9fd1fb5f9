// Package comments stores the discussion attached to a transfer.
package comments

import (
	"context"

	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Comment) error
	// ListByTransfer returns comments oldest first. transferID is the row id,
	// not the public v- identifier.
	ListByTransfer(ctx context.Context, transferID string) ([]*models.Comment, error)
}
