package transfers

import (
	"context"
	"database/sql"
	"errors"
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

const transferColumns = `id, transfer_id, owner_id, encrypted, expires_at, password_hash, download_count, max_downloads, created_at`

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n <= 0 {
		return nil
	}
	return n
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Transfer) error {
	query := `
		INSERT INTO transfers (transfer_id, owner_id, encrypted, expires_at, password_hash, max_downloads)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.TransferID, nullString(t.OwnerID), t.Encrypted, t.ExpiresAt, nullString(t.PasswordHash), nullInt(t.MaxDownloads),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	fileQuery := `
		INSERT INTO transfer_files (transfer_id, position, name, size, content_type, bucket, object_key, nonce, external_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i, f := range t.Files {
		_, err := r.db.ExecContext(ctx, fileQuery,
			t.ID, i, f.Name, f.Size, f.Type,
			nullString(f.Bucket), nullString(f.Key), nullString(f.Nonce), nullString(f.ExternalURL))
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row scanner) (*models.Transfer, error) {
	var (
		t            models.Transfer
		ownerID      sql.NullString
		passwordHash sql.NullString
		maxDownloads sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.TransferID, &ownerID, &t.Encrypted, &t.ExpiresAt,
		&passwordHash, &t.DownloadCount, &maxDownloads, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.OwnerID = ownerID.String
	t.PasswordHash = passwordHash.String
	t.MaxDownloads = maxDownloads.Int64
	return &t, nil
}

func (r *PostgresRepository) loadFiles(ctx context.Context, t *models.Transfer) error {
	query := `
		SELECT name, size, content_type, bucket, object_key, nonce, external_url
		FROM transfer_files
		WHERE transfer_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, t.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	t.Files = t.Files[:0]
	for rows.Next() {
		var (
			f                               models.File
			bucket, key, nonce, externalURL sql.NullString
		)
		if err := rows.Scan(&f.Name, &f.Size, &f.Type, &bucket, &key, &nonce, &externalURL); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		f.Bucket, f.Key, f.Nonce, f.ExternalURL = bucket.String, key.String, nonce.String, externalURL.String
		t.Files = append(t.Files, f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByTransferID(ctx context.Context, transferID string) (*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE transfer_id = $1`

	t, err := scanTransfer(r.db.QueryRowContext(ctx, query, transferID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.loadFiles(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PostgresRepository) IncrementDownloadCount(ctx context.Context, transferID string) (int64, error) {
	query := `
		UPDATE transfers
		SET download_count = download_count + 1
		WHERE transfer_id = $1 AND (max_downloads IS NULL OR download_count < max_downloads)
		RETURNING download_count
	`
	var count int64
	err := r.db.QueryRowContext(ctx, query, transferID).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("db error: %w", err)
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transfers WHERE transfer_id = $1)`, transferID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return 0, common.ErrorNotFound
	}
	return 0, common.ErrDownloadLimit
}

func (r *PostgresRepository) Delete(ctx context.Context, transferID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transfers WHERE transfer_id = $1`, transferID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	switch n {
	case 0:
		return common.ErrorNotFound
	case 1:
		return nil
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Transfer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var result []*models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("db error: %w", err)
	}
	rows.Close()

	// files are loaded once the cursor is closed, so a transaction handle
	// (one connection) can serve both queries
	for _, t := range result {
		if err := r.loadFiles(ctx, t); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID)
}

func (r *PostgresRepository) ListAll(ctx context.Context, limit int) ([]*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *PostgresRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE expires_at < $1 ORDER BY expires_at LIMIT $2`
	return r.list(ctx, query, before, limit)
}

func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (*models.TransferStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM transfers),
			(SELECT COALESCE(SUM(size), 0) FROM transfer_files),
			(SELECT COUNT(*) FROM transfers WHERE expires_at > $1)
	`
	s := &models.TransferStats{}
	if err := r.db.QueryRowContext(ctx, query, now).Scan(&s.TotalTransfers, &s.TotalStorage, &s.ActiveTransfers); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
