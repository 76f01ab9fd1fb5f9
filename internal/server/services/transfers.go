package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
	"github.com/dmitrijs2005/vaultdrop/internal/dbx"
	"github.com/dmitrijs2005/vaultdrop/internal/logging"
	"github.com/dmitrijs2005/vaultdrop/internal/server/auth"
	"github.com/dmitrijs2005/vaultdrop/internal/server/config"
	"github.com/dmitrijs2005/vaultdrop/internal/server/dedupe"
	"github.com/dmitrijs2005/vaultdrop/internal/server/gate"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vaultdrop/internal/server/storage"
	"github.com/dmitrijs2005/vaultdrop/internal/sharelink"
	"github.com/samber/lo"
)

const (
	DefaultExpiresIn = 24 * time.Hour
	MaxExpiresIn     = 30 * 24 * time.Hour
	MaxFilesPerBatch = 500

	// UploadSlotValidity is how long an issued object key can be registered
	// in a transfer. Keys left unclaimed are removed by PurgeExpired.
	UploadSlotValidity = 24 * time.Hour

	purgeBatchSize   = 100
	adminListLimit   = 500
	attemptIdleAfter = 10 * time.Minute
)

// ObjectStore is the part of the bucket the services need. storage.S3Store
// implements it.
type ObjectStore interface {
	Bucket() string
	PresignPut(ctx context.Context, key string) (string, time.Time, error)
	PresignGet(ctx context.Context, bucket, key, filename string) (string, time.Time, error)
	Delete(ctx context.Context, bucket, key string) error
}

// Access is what a recipient presents when opening a transfer.
type Access struct {
	Password string
	// Client identifies the caller for password attempt limiting, usually
	// the remote address.
	Client string
}

type CreateTransferInput struct {
	Files        []models.File
	ExpiresIn    time.Duration
	Password     string
	MaxDownloads int64
}

type CreatedTransfer struct {
	TransferID string
	ShareBase  string
	ExpiresAt  time.Time
}

type AdminOverview struct {
	Transfers []*models.Transfer
	Stats     *models.TransferStats
}

type TransferService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	store          ObjectStore
	clicks         dedupe.Guard
	attempts       *gate.AttemptLimiter
	log            logging.Logger
	publicBaseURL  string
	allowAnonymous bool
	now            func() time.Time
}

func NewTransferService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, clicks dedupe.Guard,
	cfg *config.Config, log logging.Logger) *TransferService {
	if clicks == nil {
		clicks = dedupe.NewMemory(dedupe.DefaultWindow)
	}
	return &TransferService{
		db:             db,
		repomanager:    m,
		store:          store,
		clicks:         clicks,
		attempts:       gate.NewAttemptLimiter(cfg.PasswordAttemptsPerMinute),
		log:            log.With("module", "transfer_service"),
		publicBaseURL:  cfg.PublicBaseURL,
		allowAnonymous: cfg.AllowAnonymousUploads,
		now:            time.Now,
	}
}

func (s *TransferService) ownerOf(caller *auth.Identity) (string, error) {
	if caller != nil {
		return caller.UserID, nil
	}
	if !s.allowAnonymous {
		return "", common.ErrorUnauthorized
	}
	return "", nil
}

// activeCaller fails unless caller names an existing, unblocked account.
func (s *TransferService) activeCaller(ctx context.Context, caller *auth.Identity) error {
	if caller == nil {
		return common.ErrorUnauthorized
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if user.IsBlocked {
		return common.ErrUserBlocked
	}
	return nil
}

// checkQuota fails when adding size bytes would push the owner over the plan
// allowance. Anonymous uploads have no account to charge.
func (s *TransferService) checkQuota(ctx context.Context, ownerID string, size int64) error {
	if ownerID == "" {
		return nil
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if user.IsBlocked {
		return common.ErrUserBlocked
	}
	if user.StorageUsed+size > user.Plan.Quota() {
		return common.ErrQuotaExceeded
	}
	return nil
}

// AuthorizeUpload reserves one object key per file and presigns a PUT for it.
// Only keys reserved here can later be registered by CreateTransfer, and only
// by the same uploader.
func (s *TransferService) AuthorizeUpload(ctx context.Context, caller *auth.Identity, files []models.UploadFile) ([]models.UploadSlot, error) {
	ownerID, err := s.ownerOf(caller)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 || len(files) > MaxFilesPerBatch {
		return nil, fmt.Errorf("%w: between 1 and %d files required", common.ErrValidation, MaxFilesPerBatch)
	}
	for _, f := range files {
		if f.Name == "" || f.Size < 0 {
			return nil, fmt.Errorf("%w: every file needs a name and a non-negative size", common.ErrValidation)
		}
	}

	total := lo.SumBy(files, func(f models.UploadFile) int64 { return f.Size })
	if err := s.checkQuota(ctx, ownerID, total); err != nil {
		return nil, err
	}

	now := s.now()
	bucket := s.store.Bucket()
	pending := s.repomanager.UploadSlots(s.db)
	slots := make([]models.UploadSlot, 0, len(files))
	for _, f := range files {
		key := storage.NewKey(ownerID, f.Name, now)
		url, _, err := s.store.PresignPut(ctx, key)
		if err != nil {
			return nil, err
		}
		err = pending.Reserve(ctx, &models.PendingUpload{
			OwnerID:   ownerID,
			Bucket:    bucket,
			Key:       key,
			ExpiresAt: now.Add(UploadSlotValidity),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
		}
		slots = append(slots, models.UploadSlot{Name: f.Name, Bucket: bucket, Key: key, URL: url})
	}
	return slots, nil
}

// CreateTransfer registers already uploaded files as one transfer. The
// transfer rows and the owner's storage counter change in one transaction.
func (s *TransferService) CreateTransfer(ctx context.Context, caller *auth.Identity, in CreateTransferInput) (*CreatedTransfer, error) {
	ownerID, err := s.ownerOf(caller)
	if err != nil {
		return nil, err
	}
	if len(in.Files) == 0 || len(in.Files) > MaxFilesPerBatch {
		return nil, fmt.Errorf("%w: between 1 and %d files required", common.ErrValidation, MaxFilesPerBatch)
	}
	for i := range in.Files {
		if err := in.Files[i].Validate(); err != nil {
			return nil, err
		}
	}
	encrypted := in.Files[0].Encrypted()
	mixed := lo.ContainsBy(in.Files, func(f models.File) bool { return f.Encrypted() != encrypted })
	if mixed {
		return nil, fmt.Errorf("%w: a transfer cannot mix encrypted and external files", common.ErrValidation)
	}
	if encrypted {
		if err := s.checkPointers(in.Files); err != nil {
			return nil, err
		}
	}

	expiresIn := in.ExpiresIn
	if expiresIn == 0 {
		expiresIn = DefaultExpiresIn
	}
	if expiresIn < 0 || expiresIn > MaxExpiresIn {
		return nil, fmt.Errorf("%w: expiry must be within %s", common.ErrValidation, MaxExpiresIn)
	}
	if in.MaxDownloads < 0 {
		return nil, fmt.Errorf("%w: max downloads must not be negative", common.ErrValidation)
	}

	t := &models.Transfer{
		OwnerID:      ownerID,
		Files:        in.Files,
		Encrypted:    encrypted,
		ExpiresAt:    s.now().Add(expiresIn).UTC(),
		MaxDownloads: in.MaxDownloads,
	}
	if in.Password != "" {
		t.PasswordHash, err = cryptox.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
	}
	t.TransferID, err = common.NewTransferID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if err := s.checkQuota(ctx, ownerID, t.TotalSize()); err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if t.Encrypted {
			if err := s.claimUploads(ctx, tx, ownerID, t.Files); err != nil {
				return err
			}
		}
		if err := s.repomanager.Transfers(tx).Create(ctx, t); err != nil {
			return err
		}
		if ownerID == "" {
			return nil
		}
		_, err := s.repomanager.Users(tx).AddStorageUsed(ctx, ownerID, t.TotalSize())
		return err
	})
	if errors.Is(err, common.ErrValidation) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create transfer: %v", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "transfer created",
		"transfer_id", t.TransferID, "files", len(t.Files), "encrypted", t.Encrypted, "owner", ownerID)

	return &CreatedTransfer{
		TransferID: t.TransferID,
		ShareBase:  sharelink.ShareBase(s.publicBaseURL, t.TransferID),
		ExpiresAt:  t.ExpiresAt,
	}, nil
}

// checkPointers rejects encrypted records outside the configured bucket and
// records that point at the same object twice.
func (s *TransferService) checkPointers(files []models.File) error {
	bucket := s.store.Bucket()
	keys := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f.Bucket != bucket {
			return fmt.Errorf("%w: file %q is not stored in the upload bucket", common.ErrValidation, f.Name)
		}
		if _, dup := keys[f.Key]; dup {
			return fmt.Errorf("%w: file %q repeats an object key", common.ErrValidation, f.Name)
		}
		keys[f.Key] = struct{}{}
	}
	return nil
}

// claimUploads consumes the upload slots behind files. A key that was not
// issued to ownerID, was already registered or has lapsed is refused.
func (s *TransferService) claimUploads(ctx context.Context, tx dbx.DBTX, ownerID string, files []models.File) error {
	pending := s.repomanager.UploadSlots(tx)
	now := s.now()
	for _, f := range files {
		err := pending.Claim(ctx, ownerID, f.Bucket, f.Key, now)
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "unissued object key refused", "owner", ownerID, "key", f.Key)
			return fmt.Errorf("%w: file %q was not uploaded through this account or its upload lapsed", common.ErrValidation, f.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// open loads a transfer and runs it through the gate. Password guesses are
// counted only while the transfer is still live. A counted download is past
// the download limit check: its click already holds one of the downloads.
func (s *TransferService) open(ctx context.Context, transferID string, access Access, counted bool) (*models.Transfer, error) {
	t, err := s.repomanager.Transfers(s.db).GetByTransferID(ctx, transferID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	now := s.now()
	live := !now.After(t.ExpiresAt) && (counted || !t.Exhausted())
	if live && t.HasPassword() && access.Password != "" {
		if !s.attempts.Allow(transferID+"|"+access.Client, now) {
			s.log.Warn(ctx, "password attempts exhausted", "transfer_id", transferID, "client", access.Client)
			return nil, common.ErrTooManyAttempts
		}
	}

	evaluate := gate.Evaluate
	if counted {
		evaluate = gate.EvaluateCounted
	}
	state, err := evaluate(t, access.Password, now)
	if err != nil {
		s.log.Debug(ctx, "gate refused", "transfer_id", transferID, "state", state.String())
		return nil, err
	}
	return t, nil
}

func (s *TransferService) resolve(ctx context.Context, index int, f models.File) (models.ResolvedFile, error) {
	rf := models.ResolvedFile{
		Index:     index,
		Name:      f.Name,
		Size:      f.Size,
		Type:      f.Type,
		Encrypted: f.Encrypted(),
		Nonce:     f.Nonce,
	}
	if !f.Encrypted() {
		rf.URL = f.ExternalURL
		return rf, nil
	}
	url, expires, err := s.store.PresignGet(ctx, f.Bucket, f.Key, f.Name)
	if err != nil {
		return models.ResolvedFile{}, err
	}
	rf.URL, rf.URLExpiresAt = url, expires
	return rf, nil
}

// GetTransfer returns the envelope with every file resolved. The download
// counter is not touched.
func (s *TransferService) GetTransfer(ctx context.Context, transferID string, access Access) (*models.Envelope, error) {
	t, err := s.open(ctx, transferID, access, false)
	if err != nil {
		return nil, err
	}

	env := &models.Envelope{
		TransferID:    t.TransferID,
		Encrypted:     t.Encrypted,
		ExpiresAt:     t.ExpiresAt,
		DownloadCount: t.DownloadCount,
		MaxDownloads:  t.MaxDownloads,
		CreatedAt:     t.CreatedAt,
		Files:         make([]models.ResolvedFile, 0, len(t.Files)),
	}
	for i, f := range t.Files {
		rf, err := s.resolve(ctx, i, f)
		if err != nil {
			return nil, err
		}
		env.Files = append(env.Files, rf)
	}
	return env, nil
}

// ResolveDownload resolves one file and counts the download. Every file
// resolved under the same clickID within the dedupe window belongs to one
// download: it is counted once, and the files after the one that reached the
// download limit are still served.
func (s *TransferService) ResolveDownload(ctx context.Context, transferID string, access Access, fileIndex int, clickID string) (*models.ResolvedFile, error) {
	var clickKey string
	counted := false
	if clickID != "" {
		clickKey = transferID + ":" + clickID
		seen, err := s.clicks.Seen(ctx, clickKey)
		if err != nil {
			s.log.Warn(ctx, "click dedupe unavailable", "transfer_id", transferID, "error", err)
		}
		counted = seen
	}

	t, err := s.open(ctx, transferID, access, counted)
	if err != nil {
		return nil, err
	}
	if fileIndex < 0 || fileIndex >= len(t.Files) {
		return nil, fmt.Errorf("%w: file index %d out of range", common.ErrValidation, fileIndex)
	}

	rf, err := s.resolve(ctx, fileIndex, t.Files[fileIndex])
	if err != nil {
		return nil, err
	}
	if counted {
		return &rf, nil
	}

	if clickKey != "" {
		first, err := s.clicks.FirstSeen(ctx, clickKey)
		switch {
		case err != nil:
			// over-counting beats refusing a download
			s.log.Warn(ctx, "click dedupe unavailable", "transfer_id", transferID, "error", err)
		case !first:
			// a concurrent request of the same click got there first
			return &rf, nil
		}
	}

	n, err := s.repomanager.Transfers(s.db).IncrementDownloadCount(ctx, transferID)
	if err != nil {
		if clickKey != "" {
			if ferr := s.clicks.Forget(ctx, clickKey); ferr != nil {
				s.log.Warn(ctx, "click release failed", "transfer_id", transferID, "error", ferr)
			}
		}
		if errors.Is(err, common.ErrExpired) || errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	s.log.Debug(ctx, "download counted", "transfer_id", transferID, "file", fileIndex, "count", n)
	return &rf, nil
}

// DeleteTransfer removes a transfer owned by the caller, or any transfer
// when the caller is an admin. Objects are removed best-effort afterwards.
func (s *TransferService) DeleteTransfer(ctx context.Context, caller *auth.Identity, transferID string) error {
	if err := s.activeCaller(ctx, caller); err != nil {
		return err
	}
	repo := s.repomanager.Transfers(s.db)

	t, err := repo.GetByTransferID(ctx, transferID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin && (t.OwnerID == "" || t.OwnerID != caller.UserID) {
		return common.ErrorForbidden
	}

	if err := repo.Delete(ctx, transferID); err != nil {
		return err
	}
	s.deleteObjects(ctx, t)

	s.log.Info(ctx, "transfer deleted", "transfer_id", transferID, "by", caller.UserID, "admin", caller.IsAdmin)
	return nil
}

func (s *TransferService) deleteObjects(ctx context.Context, t *models.Transfer) {
	for _, f := range t.Files {
		if !f.Encrypted() {
			continue
		}
		if err := s.store.Delete(ctx, f.Bucket, f.Key); err != nil {
			s.log.Warn(ctx, "object delete failed", "transfer_id", t.TransferID, "key", f.Key, "error", err)
		}
	}
}

// ListOwned returns the caller's transfers, newest first.
func (s *TransferService) ListOwned(ctx context.Context, caller *auth.Identity) ([]*models.Transfer, error) {
	if err := s.activeCaller(ctx, caller); err != nil {
		return nil, err
	}
	return s.repomanager.Transfers(s.db).ListByOwner(ctx, caller.UserID)
}

func (s *TransferService) AdminOverview(ctx context.Context, caller *auth.Identity) (*AdminOverview, error) {
	if caller == nil || !caller.IsAdmin {
		return nil, common.ErrorForbidden
	}
	repo := s.repomanager.Transfers(s.db)

	list, err := repo.ListAll(ctx, adminListLimit)
	if err != nil {
		return nil, err
	}
	stats, err := repo.Stats(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return &AdminOverview{Transfers: list, Stats: stats}, nil
}

// PurgeExpired deletes expired transfers batch by batch and returns how many
// were removed. Access is already refused at read time; this only reclaims
// storage. Objects uploaded for transfers that were never registered are
// removed once their upload slot lapses.
func (s *TransferService) PurgeExpired(ctx context.Context) (int, error) {
	repo := s.repomanager.Transfers(s.db)
	now := s.now()

	purged := 0
	for {
		batch, err := repo.ListExpired(ctx, now, purgeBatchSize)
		if err != nil {
			return purged, err
		}
		for _, t := range batch {
			s.deleteObjects(ctx, t)
			if err := repo.Delete(ctx, t.TransferID); err != nil && !errors.Is(err, common.ErrorNotFound) {
				return purged, err
			}
			purged++
		}
		if len(batch) < purgeBatchSize {
			break
		}
	}

	orphans, err := s.purgeUnclaimed(ctx, now)
	if err != nil {
		return purged, err
	}
	if orphans > 0 {
		s.log.Info(ctx, "removed unregistered uploads", "count", orphans)
	}

	if n := s.attempts.Prune(now, attemptIdleAfter); n > 0 {
		s.log.Debug(ctx, "pruned password attempt buckets", "count", n)
	}
	return purged, nil
}

func (s *TransferService) purgeUnclaimed(ctx context.Context, now time.Time) (int, error) {
	pending := s.repomanager.UploadSlots(s.db)

	removed := 0
	for {
		batch, err := pending.ListExpired(ctx, now, purgeBatchSize)
		if err != nil {
			return removed, err
		}
		for _, u := range batch {
			if err := s.store.Delete(ctx, u.Bucket, u.Key); err != nil {
				s.log.Warn(ctx, "object delete failed", "key", u.Key, "error", err)
			}
			if err := pending.Delete(ctx, u.Bucket, u.Key); err != nil {
				return removed, err
			}
			removed++
		}
		if len(batch) < purgeBatchSize {
			return removed, nil
		}
	}
}
