package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/client/models"
	"github.com/dmitrijs2005/vaultdrop/internal/client/repositories/history"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
	"github.com/dmitrijs2005/vaultdrop/internal/filex"
	"github.com/dmitrijs2005/vaultdrop/internal/sharelink"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// TransferClient is the transfer half of the API client.
type TransferClient interface {
	AuthorizeUpload(ctx context.Context, files []api.UploadFile) ([]api.UploadSlot, error)
	CreateTransfer(ctx context.Context, req *api.CreateTransferRequest) (*api.CreateTransferResponse, error)
	ListTransfers(ctx context.Context) ([]api.TransferSummary, error)
	GetTransfer(ctx context.Context, transferID, password string) (*api.Envelope, error)
	ResolveDownload(ctx context.Context, req *api.ResolveDownloadRequest) (*api.ResolvedFile, error)
	DeleteTransfer(ctx context.Context, transferID string) error
}

// ObjectStore moves bytes through presigned URLs.
type ObjectStore interface {
	Upload(ctx context.Context, url string, body []byte) error
	Download(ctx context.Context, url string) ([]byte, error)
}

type TransferService struct {
	client      TransferClient
	objects     ObjectStore
	history     history.Repository
	concurrency int
}

func NewTransferService(client TransferClient, objects ObjectStore, h history.Repository, concurrency int) *TransferService {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &TransferService{client: client, objects: objects, history: h, concurrency: concurrency}
}

type SendOptions struct {
	// ExpiresInDays of zero leaves the server default.
	ExpiresInDays int
	Password      string
	MaxDownloads  int64
}

type SendResult struct {
	TransferID string
	Link       string
	ExpiresAt  time.Time
	Files      []api.File
}

type localFile struct {
	path string
	name string
	size int64
	mime string
}

func statFiles(paths []string) ([]localFile, error) {
	out := make([]localFile, 0, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		if fi.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", common.ErrValidation, p)
		}
		name := filepath.Base(p)
		ct := mime.TypeByExtension(filepath.Ext(name))
		if ct == "" {
			ct = "application/octet-stream"
		}
		out = append(out, localFile{path: p, name: name, size: fi.Size(), mime: ct})
	}
	return out, nil
}

// Send encrypts every file with a fresh transfer key, uploads the ciphertext
// and registers the transfer. The returned link carries the key in its
// fragment. Cancelling ctx stops the remaining uploads; objects already
// uploaded are left behind.
func (s *TransferService) Send(ctx context.Context, paths []string, opts SendOptions) (*SendResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: nothing to send", common.ErrValidation)
	}
	locals, err := statFiles(paths)
	if err != nil {
		return nil, err
	}

	key, err := cryptox.GenerateKey()
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	uploads := make([]api.UploadFile, len(locals))
	for i, f := range locals {
		uploads[i] = api.UploadFile{Name: f.name, Type: f.mime, Size: f.size}
	}
	slots, err := s.client.AuthorizeUpload(ctx, uploads)
	if err != nil {
		return nil, err
	}
	if len(slots) != len(locals) {
		return nil, fmt.Errorf("server returned %d upload slots for %d files", len(slots), len(locals))
	}

	files := make([]api.File, len(locals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range locals {
		g.Go(func() error {
			f, err := s.encryptAndUpload(gctx, key, locals[i], slots[i])
			if err != nil {
				return fmt.Errorf("%s: %w", locals[i].name, err)
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	created, err := s.client.CreateTransfer(ctx, &api.CreateTransferRequest{
		Files:        files,
		ExpiresIn:    opts.ExpiresInDays,
		Password:     opts.Password,
		MaxDownloads: opts.MaxDownloads,
	})
	if err != nil {
		return nil, err
	}

	res := &SendResult{
		TransferID: created.TransferID,
		Link:       sharelink.Build(created.ShareBase, cryptox.ExportKey(key)),
		ExpiresAt:  created.ExpiresAt,
		Files:      files,
	}

	var total int64
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
		total += f.Size
	}
	expires := created.ExpiresAt
	err = s.history.Add(ctx, &models.HistoryEntry{
		TransferID: created.TransferID,
		Direction:  models.DirectionSent,
		Link:       res.Link,
		FileNames:  names,
		TotalSize:  total,
		ExpiresAt:  &expires,
	})
	if err != nil {
		// the transfer exists; hand the link back with the error
		return res, fmt.Errorf("save history: %w", err)
	}
	return res, nil
}

func (s *TransferService) encryptAndUpload(ctx context.Context, key cryptox.Key, f localFile, slot api.UploadSlot) (api.File, error) {
	plain, _, err := filex.ReadFile(f.path)
	if err != nil {
		return api.File{}, err
	}
	size := int64(len(plain))

	ciphertext, nonce, err := cryptox.EncryptFile(plain, key)
	common.WipeByteArray(plain)
	if err != nil {
		return api.File{}, err
	}

	if err := s.objects.Upload(ctx, slot.URL, ciphertext); err != nil {
		return api.File{}, err
	}

	return api.File{
		Name:   f.name,
		Size:   size,
		Type:   f.mime,
		Bucket: slot.Bucket,
		Key:    slot.Key,
		Nonce:  cryptox.EncodeNonce(nonce),
	}, nil
}

type FetchedFile struct {
	Name      string
	Path      string
	Size      int64
	Encrypted bool
}

type FetchResult struct {
	TransferID string
	Files      []FetchedFile
}

// Fetch opens a share link and writes every file of the transfer into
// outDir. It stops at the first file that fails; files written before that
// stay on disk.
func (s *TransferService) Fetch(ctx context.Context, link, password, outDir string) (*FetchResult, error) {
	parsed, err := sharelink.Parse(link)
	if err != nil {
		return nil, err
	}
	key, err := cryptox.ImportKey(parsed.Key)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	env, err := s.client.GetTransfer(ctx, parsed.TransferID, password)
	if err != nil {
		return nil, err
	}

	dir, err := filex.EnsureDir(outDir)
	if err != nil {
		return nil, err
	}

	res := &FetchResult{TransferID: env.TransferID}
	var total int64
	names := make([]string, 0, len(env.Files))

	// one fetch is one download, whatever the number of files
	clickID := uuid.NewString()
	for _, f := range env.Files {
		data, resolved, err := s.download(ctx, parsed.TransferID, password, clickID, f.Index)
		if err != nil {
			return res, fmt.Errorf("%s: %w", f.Name, err)
		}

		if resolved.Encrypted {
			nonce, err := cryptox.DecodeNonce(resolved.Nonce)
			if err != nil {
				return res, fmt.Errorf("%s: %w", f.Name, err)
			}
			data, err = cryptox.DecryptFile(data, key, nonce)
			if err != nil {
				return res, fmt.Errorf("%s: %w", f.Name, err)
			}
		}

		path, err := filex.WriteFile(dir, resolved.Name, data)
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, FetchedFile{
			Name:      resolved.Name,
			Path:      path,
			Size:      int64(len(data)),
			Encrypted: resolved.Encrypted,
		})
		names = append(names, resolved.Name)
		total += int64(len(data))
	}

	expires := env.ExpiresAt
	err = s.history.Add(ctx, &models.HistoryEntry{
		TransferID: env.TransferID,
		Direction:  models.DirectionReceived,
		FileNames:  names,
		TotalSize:  total,
		Location:   dir,
		ExpiresAt:  &expires,
	})
	if err != nil {
		return res, fmt.Errorf("save history: %w", err)
	}
	return res, nil
}

// download resolves one file and pulls its bytes. A presigned URL that went
// stale between resolve and download is resolved once more under the same
// click id, so the download is counted once.
func (s *TransferService) download(ctx context.Context, transferID, password, clickID string, index int) ([]byte, *api.ResolvedFile, error) {
	req := &api.ResolveDownloadRequest{
		TransferID: transferID,
		Password:   password,
		FileIndex:  index,
		ClickID:    clickID,
	}

	for attempt := 0; ; attempt++ {
		resolved, err := s.client.ResolveDownload(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		data, err := s.objects.Download(ctx, resolved.URL)
		if errors.Is(err, common.ErrLinkExpired) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return data, resolved, nil
	}
}

func (s *TransferService) List(ctx context.Context) ([]api.TransferSummary, error) {
	return s.client.ListTransfers(ctx)
}

// Delete removes the transfer on the server and then from local history.
func (s *TransferService) Delete(ctx context.Context, transferID string) error {
	if err := s.client.DeleteTransfer(ctx, transferID); err != nil {
		return err
	}
	_, err := s.history.DeleteTransfer(ctx, transferID)
	return err
}

func (s *TransferService) History(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	return s.history.List(ctx, limit)
}
