package uploadslots

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/dbx"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullOwner(ownerID string) any {
	if ownerID == "" {
		return nil
	}
	return ownerID
}

func (r *PostgresRepository) Reserve(ctx context.Context, u *models.PendingUpload) error {
	query := `
		INSERT INTO upload_slots (bucket, object_key, owner_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, u.Bucket, u.Key, nullOwner(u.OwnerID), u.ExpiresAt).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Claim(ctx context.Context, ownerID, bucket, key string, now time.Time) error {
	query := `
		DELETE FROM upload_slots
		WHERE bucket = $1 AND object_key = $2 AND owner_id IS NOT DISTINCT FROM $3 AND expires_at >= $4
	`
	res, err := r.db.ExecContext(ctx, query, bucket, key, nullOwner(ownerID), now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]*models.PendingUpload, error) {
	query := `
		SELECT bucket, object_key, owner_id, expires_at, created_at
		FROM upload_slots
		WHERE expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []*models.PendingUpload
	for rows.Next() {
		var (
			u     models.PendingUpload
			owner sql.NullString
		)
		if err := rows.Scan(&u.Bucket, &u.Key, &owner, &u.ExpiresAt, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		u.OwnerID = owner.String
		res = append(res, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, bucket, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM upload_slots WHERE bucket = $1 AND object_key = $2`, bucket, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
