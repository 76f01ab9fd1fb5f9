package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/client/models"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
	"github.com/dmitrijs2005/vaultdrop/internal/sharelink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInputs(t *testing.T, n int) ([]string, map[string][]byte) {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	contents := map[string][]byte{}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("file-%d.txt", i)
		data := bytes.Repeat([]byte{byte('a' + i)}, 100+i)
		paths[i] = filepath.Join(dir, name)
		contents[name] = data
		require.NoError(t, os.WriteFile(paths[i], data, 0o600))
	}
	return paths, contents
}

func TestSendThenFetch(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	srv := &fakeServer{}
	store := newMemStore()
	// earlier files upload slower, so completion order is reversed
	store.delay = func(url string) time.Duration {
		var i int
		_, _ = fmt.Sscanf(url[strings.LastIndex(url, "/")+1:], "%d", &i)
		return time.Duration(5-i) * 5 * time.Millisecond
	}
	s := NewTransferService(srv, store, repos.History, 3)

	paths, contents := writeInputs(t, 5)
	res, err := s.Send(ctx, paths, SendOptions{ExpiresInDays: 3, Password: "pw", MaxDownloads: 2})
	require.NoError(t, err)

	assert.Equal(t, "v-test", res.TransferID)
	assert.True(t, strings.HasPrefix(res.Link, "https://vd.example/vault/v-test#key="))
	require.NotNil(t, srv.created)
	assert.Equal(t, 3, srv.created.ExpiresIn)
	assert.Equal(t, int64(2), srv.created.MaxDownloads)

	// records keep input order whatever order the uploads finished in
	require.Len(t, srv.created.Files, 5)
	for i, f := range srv.created.Files {
		assert.Equal(t, fmt.Sprintf("file-%d.txt", i), f.Name)
		assert.Equal(t, fmt.Sprintf("transfers/%d", i), f.Key)
		assert.Equal(t, int64(100+i), f.Size)
		assert.NotEmpty(t, f.Nonce)
		assert.True(t, strings.HasPrefix(f.Type, "text/plain"), f.Type)
	}

	// only ciphertext reaches the store
	for url, obj := range store.objects {
		for _, plain := range contents {
			assert.False(t, bytes.Contains(obj, plain), url)
		}
	}

	out := t.TempDir()
	_, err = s.Fetch(ctx, res.Link, "", out)
	require.ErrorIs(t, err, common.ErrPasswordRequired)

	got, err := s.Fetch(ctx, res.Link, "pw", out)
	require.NoError(t, err)
	require.Len(t, got.Files, 5)
	for _, f := range got.Files {
		assert.True(t, f.Encrypted)
		data, err := os.ReadFile(f.Path)
		require.NoError(t, err)
		assert.Equal(t, contents[f.Name], data)
	}

	// one fetch is one click: every file of it carries the same click id
	require.Len(t, srv.resolves, 5)
	for i, r := range srv.resolves {
		assert.Equal(t, "pw", r.Password)
		assert.Equal(t, i, r.FileIndex)
		assert.NotEmpty(t, r.ClickID)
		assert.Equal(t, srv.resolves[0].ClickID, r.ClickID)
	}
	firstClick := srv.resolves[0].ClickID

	hist, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	dirs := []models.Direction{hist[0].Direction, hist[1].Direction}
	assert.ElementsMatch(t, []models.Direction{models.DirectionSent, models.DirectionReceived}, dirs)
	for _, h := range hist {
		if h.Direction == models.DirectionSent {
			assert.Equal(t, res.Link, h.Link)
			assert.Equal(t, int64(100+101+102+103+104), h.TotalSize)
		} else {
			assert.Empty(t, h.Link)
			assert.Equal(t, out, h.Location)
		}
	}

	_, err = s.Fetch(ctx, res.Link, "pw", t.TempDir())
	require.NoError(t, err)
	require.Len(t, srv.resolves, 10)
	assert.NotEqual(t, firstClick, srv.resolves[5].ClickID, "a new fetch is a new click")
}

func TestSend_Validation(t *testing.T) {
	ctx := context.Background()
	s := NewTransferService(&fakeServer{}, newMemStore(), newRepos(t).History, 0)

	_, err := s.Send(ctx, nil, SendOptions{})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Send(ctx, []string{filepath.Join(t.TempDir(), "missing")}, SendOptions{})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Send(ctx, []string{t.TempDir()}, SendOptions{})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSend_SlotMismatch(t *testing.T) {
	srv := &fakeServer{slotCount: 1}
	s := NewTransferService(srv, newMemStore(), newRepos(t).History, 2)

	paths, _ := writeInputs(t, 2)
	_, err := s.Send(context.Background(), paths, SendOptions{})
	require.Error(t, err)
	assert.Nil(t, srv.created)
}

func TestSend_UploadFailureAbortsTransfer(t *testing.T) {
	store := newMemStore()
	store.uploadErr = common.ErrStorageUnavailable
	srv := &fakeServer{}
	s := NewTransferService(srv, store, newRepos(t).History, 2)

	paths, _ := writeInputs(t, 4)
	_, err := s.Send(context.Background(), paths, SendOptions{})
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
	assert.Nil(t, srv.created)
}

func TestSend_CancelStopsPool(t *testing.T) {
	store := newMemStore()
	store.delay = func(string) time.Duration { return time.Minute }
	srv := &fakeServer{}
	s := NewTransferService(srv, store, newRepos(t).History, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	paths, _ := writeInputs(t, 6)
	start := time.Now()
	_, err := s.Send(ctx, paths, SendOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Nil(t, srv.created)
	assert.Zero(t, store.uploads)
}

func TestFetch_InvalidLink(t *testing.T) {
	s := NewTransferService(&fakeServer{}, newMemStore(), newRepos(t).History, 1)

	for _, link := range []string{
		"not a link",
		"https://vd.example/vault/v-1",
		"https://vd.example/vault/v-1#key=%%%",
	} {
		_, err := s.Fetch(context.Background(), link, "", t.TempDir())
		assert.ErrorIs(t, err, cryptox.ErrKeyFormat, link)
	}
}

func TestFetch_WrongKeyFailsDecryption(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	s := NewTransferService(srv, newMemStore(), newRepos(t).History, 1)

	paths, _ := writeInputs(t, 1)
	res, err := s.Send(ctx, paths, SendOptions{})
	require.NoError(t, err)

	other, err := cryptox.GenerateKey()
	require.NoError(t, err)
	link := sharelink.Build("https://vd.example/vault/"+res.TransferID, cryptox.ExportKey(other))

	out := t.TempDir()
	_, err = s.Fetch(ctx, link, "", out)
	require.ErrorIs(t, err, cryptox.ErrDecryption)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written for a file that fails to decrypt")
}

func TestFetch_ReResolvesExpiredURL(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	store := newMemStore()
	s := NewTransferService(srv, store, newRepos(t).History, 1)

	paths, contents := writeInputs(t, 1)
	res, err := s.Send(ctx, paths, SendOptions{})
	require.NoError(t, err)

	store.expiredOnce = true
	got, err := s.Fetch(ctx, res.Link, "", t.TempDir())
	require.NoError(t, err)
	require.Len(t, got.Files, 1)
	data, err := os.ReadFile(got.Files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, contents["file-0.txt"], data)

	require.Len(t, srv.resolves, 2)
	assert.Equal(t, srv.resolves[0].ClickID, srv.resolves[1].ClickID)
}

func TestFetch_ExternalFileAsIs(t *testing.T) {
	store := newMemStore()
	store.objects["https://cdn.example/readme.md"] = []byte("# plain")
	srv := &fakeServer{external: []api.File{{Name: "readme.md", Size: 7, ExternalURL: "https://cdn.example/readme.md"}}}
	s := NewTransferService(srv, store, newRepos(t).History, 1)

	key, err := cryptox.GenerateKey()
	require.NoError(t, err)
	link := sharelink.Build("https://vd.example/vault/v-ext", cryptox.ExportKey(key))

	got, err := s.Fetch(context.Background(), link, "", t.TempDir())
	require.NoError(t, err)
	require.Len(t, got.Files, 1)
	assert.False(t, got.Files[0].Encrypted)
	data, err := os.ReadFile(got.Files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "# plain", string(data))
}

func TestFetch_GateErrorsPassThrough(t *testing.T) {
	key, err := cryptox.GenerateKey()
	require.NoError(t, err)
	link := sharelink.Build("https://vd.example/vault/v-1", cryptox.ExportKey(key))

	for _, gateErr := range []error{common.ErrExpired, common.ErrDownloadLimit, common.ErrorNotFound, common.ErrTooManyAttempts} {
		s := NewTransferService(&fakeServer{getErr: gateErr}, newMemStore(), newRepos(t).History, 1)
		_, err := s.Fetch(context.Background(), link, "", t.TempDir())
		assert.True(t, errors.Is(err, gateErr), "%v", err)
	}
}

func TestDeleteAndList(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	s := NewTransferService(srv, newMemStore(), newRepos(t).History, 1)

	paths, _ := writeInputs(t, 1)
	_, err := s.Send(ctx, paths, SendOptions{})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, "v-test"))
	hist, err := s.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, hist)

	assert.ErrorIs(t, s.Delete(ctx, "v-other"), common.ErrorNotFound)
}
