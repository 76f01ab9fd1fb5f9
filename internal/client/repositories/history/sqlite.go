package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/client/models"
	"github.com/dmitrijs2005/vaultdrop/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, e *models.HistoryEntry) error {
	names, err := json.Marshal(e.FileNames)
	if err != nil {
		return fmt.Errorf("encode file names: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var expires sql.NullTime
	if e.ExpiresAt != nil {
		expires = sql.NullTime{Time: e.ExpiresAt.UTC(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO history (transfer_id, direction, link, file_names, total_size, location, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TransferID, string(e.Direction), e.Link, string(names), e.TotalSize, e.Location, expires, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	q := `SELECT id, transfer_id, direction, link, file_names, total_size, location, expires_at, created_at
		FROM history ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var (
			e         models.HistoryEntry
			direction string
			names     string
			expires   sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.TransferID, &direction, &e.Link, &names, &e.TotalSize, &e.Location, &expires, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Direction = models.Direction(direction)
		if err := json.Unmarshal([]byte(names), &e.FileNames); err != nil {
			return nil, fmt.Errorf("decode file names: %w", err)
		}
		if expires.Valid {
			t := expires.Time
			e.ExpiresAt = &t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTransfer(ctx context.Context, transferID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE transfer_id = ?`, transferID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
