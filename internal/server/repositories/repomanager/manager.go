package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/vaultdrop/internal/dbx"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/comments"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/transfers"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/uploadslots"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either the pool or an
// open transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Transfers(db dbx.DBTX) transfers.Repository
	Comments(db dbx.DBTX) comments.Repository
	UploadSlots(db dbx.DBTX) uploadslots.Repository
}
