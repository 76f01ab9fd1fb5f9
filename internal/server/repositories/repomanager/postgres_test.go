package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/comments"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/transfers"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/uploadslots"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFactories_BindToDBTX(t *testing.T) {
	db := newDB(t)
	var m RepositoryManager = NewPostgresRepositoryManager()

	assert.IsType(t, &users.PostgresRepository{}, m.Users(db))
	assert.IsType(t, &refreshtokens.PostgresRepository{}, m.RefreshTokens(db))
	assert.IsType(t, &transfers.PostgresRepository{}, m.Transfers(db))
	assert.IsType(t, &comments.PostgresRepository{}, m.Comments(db))
	assert.IsType(t, &uploadslots.PostgresRepository{}, m.UploadSlots(db))
}

func TestRunMigrations(t *testing.T) {
	tests := []struct {
		name    string
		upErr   error
		wantErr bool
	}{
		{name: "ok"},
		{name: "failure is wrapped", upErr: errors.New("boom"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newDB(t)

			orig := gooseUpContext
			t.Cleanup(func() { gooseUpContext = orig })

			var gotDir string
			gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
				gotDir = dir
				return tt.upErr
			}

			err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
			assert.Equal(t, ".", gotDir)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.upErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
