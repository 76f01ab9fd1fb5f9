// Package wire converts between service models and the api types sent over
// HTTP and gRPC.
package wire

import (
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
	"github.com/dmitrijs2005/vaultdrop/internal/server/services"
	"github.com/samber/lo"
)

func User(u *models.User, quota int64) *api.User {
	return &api.User{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Plan:        string(u.Plan),
		StorageUsed: u.StorageUsed,
		Quota:       quota,
		IsBlocked:   u.IsBlocked,
		CreatedAt:   u.CreatedAt,
	}
}

func Users(list []*models.User) []*api.User {
	return lo.Map(list, func(u *models.User, _ int) *api.User { return User(u, 0) })
}

func TokenPair(p *services.TokenPair) *api.TokenPair {
	return &api.TokenPair{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func UploadFiles(list []api.UploadFile) []models.UploadFile {
	return lo.Map(list, func(f api.UploadFile, _ int) models.UploadFile {
		return models.UploadFile{Name: f.Name, Type: f.Type, Size: f.Size}
	})
}

func Slots(list []models.UploadSlot) *api.AuthorizeUploadResponse {
	return &api.AuthorizeUploadResponse{
		Slots: lo.Map(list, func(s models.UploadSlot, _ int) api.UploadSlot {
			return api.UploadSlot{Name: s.Name, Bucket: s.Bucket, Key: s.Key, URL: s.URL}
		}),
	}
}

// CreateInput maps a create request. ExpiresIn travels in days.
func CreateInput(req *api.CreateTransferRequest) services.CreateTransferInput {
	return services.CreateTransferInput{
		Files: lo.Map(req.Files, func(f api.File, _ int) models.File {
			return models.File{
				Name:        f.Name,
				Size:        f.Size,
				Type:        f.Type,
				Bucket:      f.Bucket,
				Key:         f.Key,
				Nonce:       f.Nonce,
				ExternalURL: f.ExternalURL,
			}
		}),
		ExpiresIn:    time.Duration(req.ExpiresIn) * 24 * time.Hour,
		Password:     req.Password,
		MaxDownloads: req.MaxDownloads,
	}
}

func Created(c *services.CreatedTransfer) *api.CreateTransferResponse {
	return &api.CreateTransferResponse{TransferID: c.TransferID, ShareBase: c.ShareBase, ExpiresAt: c.ExpiresAt}
}

func Summary(t *models.Transfer) api.TransferSummary {
	return api.TransferSummary{
		TransferID:    t.TransferID,
		OwnerID:       t.OwnerID,
		Encrypted:     t.Encrypted,
		HasPassword:   t.HasPassword(),
		FileNames:     lo.Map(t.Files, func(f models.File, _ int) string { return f.Name }),
		TotalSize:     t.TotalSize(),
		DownloadCount: t.DownloadCount,
		MaxDownloads:  t.MaxDownloads,
		ExpiresAt:     t.ExpiresAt,
		CreatedAt:     t.CreatedAt,
	}
}

func Summaries(list []*models.Transfer) []api.TransferSummary {
	return lo.Map(list, func(t *models.Transfer, _ int) api.TransferSummary { return Summary(t) })
}

func ResolvedFile(f models.ResolvedFile) *api.ResolvedFile {
	out := &api.ResolvedFile{
		Index:     f.Index,
		Name:      f.Name,
		Size:      f.Size,
		Type:      f.Type,
		Encrypted: f.Encrypted,
		Nonce:     f.Nonce,
		URL:       f.URL,
	}
	if !f.URLExpiresAt.IsZero() {
		exp := f.URLExpiresAt
		out.URLExpiresAt = &exp
	}
	return out
}

func Envelope(e *models.Envelope) *api.Envelope {
	return &api.Envelope{
		TransferID:    e.TransferID,
		Encrypted:     e.Encrypted,
		ExpiresAt:     e.ExpiresAt,
		DownloadCount: e.DownloadCount,
		MaxDownloads:  e.MaxDownloads,
		CreatedAt:     e.CreatedAt,
		Files:         lo.Map(e.Files, func(f models.ResolvedFile, _ int) api.ResolvedFile { return *ResolvedFile(f) }),
	}
}

func Overview(o *services.AdminOverview) *api.AdminOverview {
	return &api.AdminOverview{
		Transfers: Summaries(o.Transfers),
		Stats: api.TransferStats{
			TotalTransfers:  o.Stats.TotalTransfers,
			TotalStorage:    o.Stats.TotalStorage,
			ActiveTransfers: o.Stats.ActiveTransfers,
		},
	}
}

func CommentInput(req *api.PostCommentRequest) services.CommentInput {
	in := services.CommentInput{Text: req.Text, FileIndex: req.FileIndex}
	if a := req.Annotation; a != nil {
		in.Annotation = &models.Annotation{Kind: models.AnnotationKind(a.Kind)}
		if a.Region != nil {
			in.Annotation.Region = &models.Region{X: a.Region.X, Y: a.Region.Y, W: a.Region.W, H: a.Region.H}
		}
		if a.Timestamp != nil {
			in.Annotation.Timestamp = &models.Timestamp{Seconds: a.Timestamp.Seconds}
		}
	}
	return in
}

func Comment(c *models.Comment) api.Comment {
	out := api.Comment{
		ID:         c.ID,
		TransferID: c.TransferID,
		UserID:     c.UserID,
		UserName:   c.UserName,
		Text:       c.Text,
		FileIndex:  c.FileIndex,
		CreatedAt:  c.CreatedAt,
	}
	if a := c.Annotation; a != nil {
		out.Annotation = &api.Annotation{Kind: string(a.Kind)}
		if a.Region != nil {
			out.Annotation.Region = &api.Region{X: a.Region.X, Y: a.Region.Y, W: a.Region.W, H: a.Region.H}
		}
		if a.Timestamp != nil {
			out.Annotation.Timestamp = &api.Timestamp{Seconds: a.Timestamp.Seconds}
		}
	}
	return out
}

func Comments(list []*models.Comment) []api.Comment {
	return lo.Map(list, func(c *models.Comment, _ int) api.Comment { return Comment(c) })
}
