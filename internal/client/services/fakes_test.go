package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/client/repositories"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/stretchr/testify/require"
)

func newRepos(t *testing.T) *repositories.Repositories {
	t.Helper()
	repos, err := repositories.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })
	return repos
}

// fakeServer keeps transfers in memory the way the server registers them.
type fakeServer struct {
	TransferClient

	mu        sync.Mutex
	created   *api.CreateTransferRequest
	password  string
	resolves  []api.ResolveDownloadRequest
	deleted   []string
	slotCount int
	external  []api.File
	getErr    error
	createErr error
}

func (f *fakeServer) AuthorizeUpload(_ context.Context, files []api.UploadFile) ([]api.UploadSlot, error) {
	n := len(files)
	if f.slotCount > 0 {
		n = f.slotCount
	}
	slots := make([]api.UploadSlot, n)
	for i := range slots {
		key := fmt.Sprintf("transfers/%d", i)
		slots[i] = api.UploadSlot{Name: files[min(i, len(files)-1)].Name, Bucket: "b", Key: key, URL: "mem://b/" + key}
	}
	return slots, nil
}

func (f *fakeServer) CreateTransfer(_ context.Context, req *api.CreateTransferRequest) (*api.CreateTransferResponse, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = req
	f.password = req.Password
	return &api.CreateTransferResponse{
		TransferID: "v-test",
		ShareBase:  "https://vd.example/vault/v-test",
		ExpiresAt:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeServer) files() []api.File {
	if f.created == nil {
		return f.external
	}
	return append(append([]api.File{}, f.created.Files...), f.external...)
}

func (f *fakeServer) GetTransfer(_ context.Context, id, password string) (*api.Envelope, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.password != "" && password != f.password {
		return nil, common.ErrPasswordRequired
	}
	env := &api.Envelope{TransferID: id, Encrypted: f.created != nil, ExpiresAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	for i, file := range f.files() {
		env.Files = append(env.Files, api.ResolvedFile{Index: i, Name: file.Name, Size: file.Size, Encrypted: file.Nonce != ""})
	}
	return env, nil
}

func (f *fakeServer) ResolveDownload(_ context.Context, req *api.ResolveDownloadRequest) (*api.ResolvedFile, error) {
	f.mu.Lock()
	f.resolves = append(f.resolves, *req)
	f.mu.Unlock()

	files := f.files()
	if req.FileIndex < 0 || req.FileIndex >= len(files) {
		return nil, common.ErrorNotFound
	}
	file := files[req.FileIndex]
	url := file.ExternalURL
	if url == "" {
		url = "mem://" + file.Bucket + "/" + file.Key
	}
	return &api.ResolvedFile{
		Index:     req.FileIndex,
		Name:      file.Name,
		Size:      file.Size,
		Encrypted: file.Nonce != "",
		Nonce:     file.Nonce,
		URL:       url,
	}, nil
}

func (f *fakeServer) DeleteTransfer(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	if id != "v-test" {
		return common.ErrorNotFound
	}
	return nil
}

func (f *fakeServer) ListTransfers(context.Context) ([]api.TransferSummary, error) {
	return []api.TransferSummary{{TransferID: "v-test"}}, nil
}

// memStore is an object store keyed by URL.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// delay slows uploads down by file position, so later files finish first.
	delay     func(url string) time.Duration
	uploadErr error
	// expiredOnce fails the first download of each URL with ErrLinkExpired.
	expiredOnce bool
	seen        map[string]bool
	uploads     int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, seen: map[string]bool{}}
}

func (m *memStore) Upload(ctx context.Context, url string, body []byte) error {
	if m.delay != nil {
		select {
		case <-time.After(m.delay(url)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.objects[url] = append([]byte(nil), body...)
	return nil
}

func (m *memStore) Download(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expiredOnce && !m.seen[url] {
		m.seen[url] = true
		return nil, common.ErrLinkExpired
	}
	data, ok := m.objects[url]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return append([]byte(nil), data...), nil
}

// fakeSession records what AuthService does with the API client.
type fakeSession struct {
	SessionClient

	access, refresh string
	hook            func(a, r string)
	loginErr        error
	registered      []string
}

func (f *fakeSession) Register(_ context.Context, name, email, _ string) (*api.User, error) {
	f.registered = append(f.registered, email)
	return &api.User{ID: "u-1", Name: name, Email: email}, nil
}

func (f *fakeSession) Login(_ context.Context, email, _ string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.SetTokens("A-"+email, "R-"+email)
	return nil
}

func (f *fakeSession) SetTokens(a, r string) {
	f.access, f.refresh = a, r
	if f.hook != nil {
		f.hook(a, r)
	}
}

func (f *fakeSession) Tokens() (string, string) { return f.access, f.refresh }

func (f *fakeSession) OnTokens(fn func(a, r string)) { f.hook = fn }
