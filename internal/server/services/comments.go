package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/server/auth"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/repomanager"
)

const MaxCommentLen = 2000

type CommentInput struct {
	Text       string
	FileIndex  *int
	Annotation *models.Annotation
}

// CommentService keeps the discussion on a transfer. Reading and writing
// go through the same gate as downloading.
type CommentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	transfers   *TransferService
}

func NewCommentService(db *sql.DB, m repomanager.RepositoryManager, transfers *TransferService) *CommentService {
	return &CommentService{db: db, repomanager: m, transfers: transfers}
}

func (s *CommentService) List(ctx context.Context, transferID string, access Access) ([]*models.Comment, error) {
	t, err := s.transfers.open(ctx, transferID, access, false)
	if err != nil {
		return nil, err
	}
	list, err := s.repomanager.Comments(s.db).ListByTransfer(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		c.TransferID = transferID
	}
	return list, nil
}

// Post adds a comment. Anonymous callers are shown as models.GuestName.
func (s *CommentService) Post(ctx context.Context, caller *auth.Identity, transferID string, access Access, in CommentInput) (*models.Comment, error) {
	t, err := s.transfers.open(ctx, transferID, access, false)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" || utf8.RuneCountInString(text) > MaxCommentLen {
		return nil, fmt.Errorf("%w: comment must be 1..%d characters", common.ErrValidation, MaxCommentLen)
	}
	if in.FileIndex != nil && (*in.FileIndex < 0 || *in.FileIndex >= len(t.Files)) {
		return nil, fmt.Errorf("%w: file index %d out of range", common.ErrValidation, *in.FileIndex)
	}
	if in.Annotation != nil {
		if err := in.Annotation.Validate(); err != nil {
			return nil, err
		}
	}

	c := &models.Comment{
		TransferID: t.ID,
		UserName:   models.GuestName,
		Text:       text,
		FileIndex:  in.FileIndex,
		Annotation: in.Annotation,
	}
	if caller != nil {
		u, err := s.repomanager.Users(s.db).GetByID(ctx, caller.UserID)
		if err != nil {
			return nil, err
		}
		c.UserID, c.UserName = u.ID, u.Name
	}

	if err := s.repomanager.Comments(s.db).Create(ctx, c); err != nil {
		return nil, err
	}
	c.TransferID = transferID
	return c, nil
}
