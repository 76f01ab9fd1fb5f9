package comments

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/vaultdrop/internal/dbx"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Comment) error {
	var (
		userID     any
		fileIndex  any
		annotation any
	)
	if c.UserID != "" {
		userID = c.UserID
	}
	if c.FileIndex != nil {
		fileIndex = *c.FileIndex
	}
	if c.Annotation != nil {
		b, err := json.Marshal(c.Annotation)
		if err != nil {
			return fmt.Errorf("encode annotation: %w", err)
		}
		annotation = string(b)
	}

	query := `
		INSERT INTO comments (transfer_id, user_id, user_name, text, file_index, annotation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.TransferID, userID, c.UserName, c.Text, fileIndex, annotation,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByTransfer(ctx context.Context, transferID string) ([]*models.Comment, error) {
	query := `
		SELECT id, transfer_id, user_id, user_name, text, file_index, annotation, created_at
		FROM comments
		WHERE transfer_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, transferID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []*models.Comment
	for rows.Next() {
		var (
			c          models.Comment
			userID     sql.NullString
			fileIndex  sql.NullInt64
			annotation []byte
		)
		if err := rows.Scan(&c.ID, &c.TransferID, &userID, &c.UserName, &c.Text, &fileIndex, &annotation, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		c.UserID = userID.String
		if fileIndex.Valid {
			idx := int(fileIndex.Int64)
			c.FileIndex = &idx
		}
		if len(annotation) > 0 {
			var a models.Annotation
			if err := json.Unmarshal(annotation, &a); err != nil {
				return nil, fmt.Errorf("decode annotation: %w", err)
			}
			c.Annotation = &a
		}
		res = append(res, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}
