// Package users declares the storage contract for accounts and implements it
// on PostgreSQL.
package users

import (
	"context"

	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
)

type Repository interface {
	// Create returns common.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateName(ctx context.Context, id, name string) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	// AddStorageUsed atomically adds delta bytes and returns the new total.
	AddStorageUsed(ctx context.Context, id string, delta int64) (int64, error)
}
