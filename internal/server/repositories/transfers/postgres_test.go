package transfers

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
	"github.com/google/go-cmp/cmp"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var transferCols = []string{"id", "transfer_id", "owner_id", "encrypted", "expires_at", "password_hash", "download_count", "max_downloads", "created_at"}
var fileCols = []string{"name", "size", "content_type", "bucket", "object_key", "nonce", "external_url"}

const (
	selectTransfer = `SELECT id, transfer_id, owner_id, encrypted, expires_at, password_hash, download_count, max_downloads, created_at FROM transfers`
	selectFiles    = `SELECT name, size, content_type, bucket, object_key, nonce, external_url FROM transfer_files WHERE transfer_id = \$1 ORDER BY position`
)

func TestCreate_InsertsTransferAndFilesInOrder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	created := time.Date(2030, 1, 1, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO transfers \(transfer_id, owner_id, encrypted, expires_at, password_hash, max_downloads\)`).
		WithArgs("v-1", "u-1", true, expires, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("t-uuid", created))
	mock.ExpectExec(`INSERT INTO transfer_files`).
		WithArgs("t-uuid", 0, "a.txt", 10, "text/plain", "vault", "uploads/a", "bm9uY2U=", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transfer_files`).
		WithArgs("t-uuid", 1, "b.bin", 20, "", "vault", "uploads/b", "bm9uY2Uy", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tr := &models.Transfer{
		TransferID: "v-1",
		OwnerID:    "u-1",
		Encrypted:  true,
		ExpiresAt:  expires,
		Files: []models.File{
			{Name: "a.txt", Size: 10, Type: "text/plain", Bucket: "vault", Key: "uploads/a", Nonce: "bm9uY2U="},
			{Name: "b.bin", Size: 20, Bucket: "vault", Key: "uploads/b", Nonce: "bm9uY2Uy"},
		},
	}
	if err := repo.Create(context.Background(), tr); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if tr.ID != "t-uuid" || !tr.CreatedAt.Equal(created) {
		t.Fatalf("ID/CreatedAt not filled: %+v", tr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_FileInsertError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO transfers`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("t-uuid", time.Now()))
	mock.ExpectExec(`INSERT INTO transfer_files`).WillReturnError(errors.New("check violation"))

	err := repo.Create(context.Background(), &models.Transfer{TransferID: "v-1", Files: []models.File{{Name: "x"}}})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetByTransferID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	created := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(selectTransfer + ` WHERE transfer_id = \$1`).
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows(transferCols).
			AddRow("t-uuid", "v-1", nil, false, expires, "argon2id$hash", 3, 5, created))
	mock.ExpectQuery(selectFiles).
		WithArgs("t-uuid").
		WillReturnRows(sqlmock.NewRows(fileCols).
			AddRow("a.txt", 10, "text/plain", nil, nil, nil, "https://cdn.example.com/a"))

	got, err := repo.GetByTransferID(context.Background(), "v-1")
	if err != nil {
		t.Fatalf("GetByTransferID error: %v", err)
	}

	want := &models.Transfer{
		ID:            "t-uuid",
		TransferID:    "v-1",
		ExpiresAt:     expires,
		PasswordHash:  "argon2id$hash",
		DownloadCount: 3,
		MaxDownloads:  5,
		CreatedAt:     created,
		Files:         []models.File{{Name: "a.txt", Size: 10, Type: "text/plain", ExternalURL: "https://cdn.example.com/a"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("transfer mismatch (-want +got):\n%s", diff)
	}
}

func TestGetByTransferID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectTransfer).WithArgs("v-x").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByTransferID(context.Background(), "v-x")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestIncrementDownloadCount(t *testing.T) {
	const update = `UPDATE transfers SET download_count = download_count \+ 1 WHERE transfer_id = \$1 AND \(max_downloads IS NULL OR download_count < max_downloads\) RETURNING download_count`
	const exists = `SELECT EXISTS \(SELECT 1 FROM transfers WHERE transfer_id = \$1\)`

	t.Run("incremented", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(update).WithArgs("v-1").
			WillReturnRows(sqlmock.NewRows([]string{"download_count"}).AddRow(1))

		n, err := repo.IncrementDownloadCount(context.Background(), "v-1")
		if err != nil || n != 1 {
			t.Fatalf("got %d, %v", n, err)
		}
	})

	t.Run("limit reached", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(update).WithArgs("v-1").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(exists).WithArgs("v-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := repo.IncrementDownloadCount(context.Background(), "v-1")
		if !errors.Is(err, common.ErrDownloadLimit) {
			t.Fatalf("expected ErrDownloadLimit, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(update).WithArgs("v-1").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(exists).WithArgs("v-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := repo.IncrementDownloadCount(context.Background(), "v-1")
		if !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("expected ErrorNotFound, got %v", err)
		}
	})
}

func TestDelete_RowsAffected(t *testing.T) {
	cases := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"deleted", 1, nil},
		{"missing", 0, common.ErrorNotFound},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(`DELETE FROM transfers WHERE transfer_id = \$1`).
				WithArgs("v-1").
				WillReturnResult(sqlmock.NewResult(0, c.affected))

			err := repo.Delete(context.Background(), "v-1")
			if !errors.Is(err, c.wantErr) {
				t.Fatalf("expected %v, got %v", c.wantErr, err)
			}
		})
	}
}

func TestListByOwner_LoadsFilesPerTransfer(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(selectTransfer + ` WHERE owner_id = \$1 ORDER BY created_at DESC`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(transferCols).
			AddRow("t-2", "v-2", "u-1", true, now, nil, 0, nil, now).
			AddRow("t-1", "v-1", "u-1", true, now, nil, 4, nil, now))
	mock.ExpectQuery(selectFiles).WithArgs("t-2").
		WillReturnRows(sqlmock.NewRows(fileCols).AddRow("b", 2, "", "vault", "k2", "n2", nil))
	mock.ExpectQuery(selectFiles).WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows(fileCols).AddRow("a", 1, "", "vault", "k1", "n1", nil))

	got, err := repo.ListByOwner(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(got) != 2 || got[0].TransferID != "v-2" || got[1].Files[0].Key != "k1" || got[1].DownloadCount != 4 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListExpired_PassesCutoffAndLimit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	cutoff := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(selectTransfer + ` WHERE expires_at < \$1 ORDER BY expires_at LIMIT \$2`).
		WithArgs(cutoff, 100).
		WillReturnRows(sqlmock.NewRows(transferCols))

	got, err := repo.ListExpired(context.Background(), cutoff, 100)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestStats(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT \(SELECT COUNT\(\*\) FROM transfers\)`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"total", "storage", "active"}).AddRow(7, 1024, 3))

	s, err := repo.Stats(context.Background(), now)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if diff := cmp.Diff(&models.TransferStats{TotalTransfers: 7, TotalStorage: 1024, ActiveTransfers: 3}, s); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
}
