package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/dbx"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/comments"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/transfers"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/uploadslots"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	users.Repository

	mu      sync.Mutex
	byID    map[string]*models.User
	seq     int
	failGet error
}

func newFakeUsersRepo(list ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range list {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.byID {
		if x.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	f.seq++
	u.ID = fmt.Sprintf("u-%d", f.seq)
	u.CreatedAt = time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) List(context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.User
	for _, u := range f.byID {
		cp := *u
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeUsersRepo) UpdateName(_ context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Name = name
	return nil
}

func (f *fakeUsersRepo) SetBlocked(_ context.Context, id string, blocked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsBlocked = blocked
	return nil
}

func (f *fakeUsersRepo) AddStorageUsed(_ context.Context, id string, delta int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	u.StorageUsed += delta
	return u.StorageUsed, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	refreshtokens.Repository

	mu        sync.Mutex
	tokens    map[string]*models.RefreshToken
	createErr error
	delErr    error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.tokens {
		if t.Expires.Before(before) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

// --- transfers ---

type fakeTransfersRepo struct {
	transfers.Repository

	mu        sync.Mutex
	byID      map[string]*models.Transfer
	seq       int
	createErr error
	incErr    error
}

func newFakeTransfersRepo() *fakeTransfersRepo {
	return &fakeTransfersRepo{byID: map[string]*models.Transfer{}}
}

func cloneTransfer(t *models.Transfer) *models.Transfer {
	cp := *t
	cp.Files = append([]models.File(nil), t.Files...)
	return &cp
}

func (f *fakeTransfersRepo) put(t *models.Transfer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("row-%d", f.seq)
	}
	f.byID[t.TransferID] = cloneTransfer(t)
}

func (f *fakeTransfersRepo) Create(_ context.Context, t *models.Transfer) error {
	if f.createErr != nil {
		return f.createErr
	}
	t.CreatedAt = time.Now()
	f.put(t)
	return nil
}

func (f *fakeTransfersRepo) GetByTransferID(_ context.Context, id string) (*models.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneTransfer(t), nil
}

func (f *fakeTransfersRepo) IncrementDownloadCount(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incErr != nil {
		return 0, f.incErr
	}
	t, ok := f.byID[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	if t.Exhausted() {
		return 0, common.ErrDownloadLimit
	}
	t.DownloadCount++
	return t.DownloadCount, nil
}

func (f *fakeTransfersRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeTransfersRepo) sorted(keep func(*models.Transfer) bool) []*models.Transfer {
	var res []*models.Transfer
	for _, t := range f.byID {
		if keep(t) {
			res = append(res, cloneTransfer(t))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].TransferID < res[j].TransferID })
	return res
}

func (f *fakeTransfersRepo) ListByOwner(_ context.Context, owner string) ([]*models.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(t *models.Transfer) bool { return t.OwnerID == owner }), nil
}

func (f *fakeTransfersRepo) ListAll(_ context.Context, limit int) ([]*models.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := f.sorted(func(*models.Transfer) bool { return true })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (f *fakeTransfersRepo) ListExpired(_ context.Context, before time.Time, limit int) ([]*models.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := f.sorted(func(t *models.Transfer) bool { return t.ExpiresAt.Before(before) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (f *fakeTransfersRepo) Stats(_ context.Context, now time.Time) (*models.TransferStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.TransferStats{}
	for _, t := range f.byID {
		s.TotalTransfers++
		s.TotalStorage += t.TotalSize()
		if t.ExpiresAt.After(now) {
			s.ActiveTransfers++
		}
	}
	return s, nil
}

// --- comments ---

type fakeCommentsRepo struct {
	comments.Repository

	mu   sync.Mutex
	list []*models.Comment
}

func (f *fakeCommentsRepo) Create(_ context.Context, c *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = fmt.Sprintf("c-%d", len(f.list)+1)
	c.CreatedAt = time.Now()
	cp := *c
	f.list = append(f.list, &cp)
	return nil
}

func (f *fakeCommentsRepo) ListByTransfer(_ context.Context, rowID string) ([]*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.Comment
	for _, c := range f.list {
		if c.TransferID == rowID {
			cp := *c
			res = append(res, &cp)
		}
	}
	return res, nil
}

// --- upload slots ---

type fakeSlotsRepo struct {
	uploadslots.Repository

	mu    sync.Mutex
	slots map[string]*models.PendingUpload
}

func newFakeSlotsRepo() *fakeSlotsRepo {
	return &fakeSlotsRepo{slots: map[string]*models.PendingUpload{}}
}

func (f *fakeSlotsRepo) Reserve(_ context.Context, u *models.PendingUpload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := u.Bucket + "/" + u.Key
	if _, ok := f.slots[k]; ok {
		return fmt.Errorf("db error: duplicate key %s", k)
	}
	u.CreatedAt = time.Now()
	cp := *u
	f.slots[k] = &cp
	return nil
}

func (f *fakeSlotsRepo) Claim(_ context.Context, ownerID, bucket, key string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := bucket + "/" + key
	u, ok := f.slots[k]
	if !ok || u.OwnerID != ownerID || u.ExpiresAt.Before(now) {
		return common.ErrorNotFound
	}
	delete(f.slots, k)
	return nil
}

func (f *fakeSlotsRepo) ListExpired(_ context.Context, before time.Time, limit int) ([]*models.PendingUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.PendingUpload
	for _, u := range f.slots {
		if u.ExpiresAt.Before(before) {
			cp := *u
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (f *fakeSlotsRepo) Delete(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.slots, bucket+"/"+key)
	return nil
}

func (f *fakeSlotsRepo) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.slots)
}

// --- manager ---

type fakeRepoManager struct {
	repomanager.RepositoryManager

	u *fakeUsersRepo
	r *fakeRefreshRepo
	t *fakeTransfersRepo
	c *fakeCommentsRepo
	s *fakeSlotsRepo
}

func newFakeRepoManager(list ...*models.User) *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(list...),
		r: newFakeRefreshRepo(),
		t: newFakeTransfersRepo(),
		c: &fakeCommentsRepo{},
		s: newFakeSlotsRepo(),
	}
}

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Transfers(dbx.DBTX) transfers.Repository         { return m.t }
func (m *fakeRepoManager) Comments(dbx.DBTX) comments.Repository           { return m.c }
func (m *fakeRepoManager) UploadSlots(dbx.DBTX) uploadslots.Repository     { return m.s }

// --- object store ---

type fakeStore struct {
	mu         sync.Mutex
	deleted    []string
	deleteErr  error
	presignErr error
}

func (s *fakeStore) Bucket() string { return "vault" }

func (s *fakeStore) PresignPut(_ context.Context, key string) (string, time.Time, error) {
	if s.presignErr != nil {
		return "", time.Time{}, s.presignErr
	}
	return "https://s3.test/vault/" + key + "?put", time.Now().Add(time.Hour), nil
}

func (s *fakeStore) PresignGet(_ context.Context, bucket, key, filename string) (string, time.Time, error) {
	if s.presignErr != nil {
		return "", time.Time{}, s.presignErr
	}
	return "https://s3.test/" + bucket + "/" + key + "?get", time.Now().Add(time.Hour), nil
}

func (s *fakeStore) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, bucket+"/"+key)
	return s.deleteErr
}
