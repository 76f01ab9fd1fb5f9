package grpc

import (
	"context"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/server/auth"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
	"github.com/dmitrijs2005/vaultdrop/internal/server/services"
	"github.com/dmitrijs2005/vaultdrop/internal/server/wire"
)

type userService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type transferService interface {
	AuthorizeUpload(ctx context.Context, caller *auth.Identity, files []models.UploadFile) ([]models.UploadSlot, error)
	CreateTransfer(ctx context.Context, caller *auth.Identity, in services.CreateTransferInput) (*services.CreatedTransfer, error)
	ListOwned(ctx context.Context, caller *auth.Identity) ([]*models.Transfer, error)
	GetTransfer(ctx context.Context, transferID string, access services.Access) (*models.Envelope, error)
	ResolveDownload(ctx context.Context, transferID string, access services.Access, fileIndex int, clickID string) (*models.ResolvedFile, error)
	DeleteTransfer(ctx context.Context, caller *auth.Identity, transferID string) error
}

// handler implements api.VaultDropServer on top of the services.
type handler struct {
	s *GRPCServer
}

func (h *handler) Register(ctx context.Context, req *api.RegisterRequest) (*api.User, error) {
	u, err := h.s.users.Register(ctx, services.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, toStatus(err)
	}
	h.s.logger.Info(ctx, "Registered", "user_id", u.ID)
	return wire.User(u, u.Plan.Quota()), nil
}

func (h *handler) Login(ctx context.Context, req *api.LoginRequest) (*api.TokenPair, error) {
	tokens, err := h.s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.TokenPair(tokens), nil
}

func (h *handler) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.TokenPair, error) {
	tokens, err := h.s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.TokenPair(tokens), nil
}

func (h *handler) AuthorizeUpload(ctx context.Context, req *api.AuthorizeUploadRequest) (*api.AuthorizeUploadResponse, error) {
	slots, err := h.s.transfers.AuthorizeUpload(ctx, auth.FromContext(ctx), wire.UploadFiles(req.Files))
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.Slots(slots), nil
}

func (h *handler) CreateTransfer(ctx context.Context, req *api.CreateTransferRequest) (*api.CreateTransferResponse, error) {
	created, err := h.s.transfers.CreateTransfer(ctx, auth.FromContext(ctx), wire.CreateInput(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.Created(created), nil
}

func (h *handler) ListTransfers(ctx context.Context, _ *api.ListTransfersRequest) (*api.ListTransfersResponse, error) {
	list, err := h.s.transfers.ListOwned(ctx, auth.FromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ListTransfersResponse{Transfers: wire.Summaries(list)}, nil
}

func (h *handler) GetTransfer(ctx context.Context, req *api.GetTransferRequest) (*api.Envelope, error) {
	env, err := h.s.transfers.GetTransfer(ctx, req.TransferID, services.Access{Password: req.Password, Client: clientAddr(ctx)})
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.Envelope(env), nil
}

func (h *handler) ResolveDownload(ctx context.Context, req *api.ResolveDownloadRequest) (*api.ResolvedFile, error) {
	access := services.Access{Password: req.Password, Client: clientAddr(ctx)}
	f, err := h.s.transfers.ResolveDownload(ctx, req.TransferID, access, req.FileIndex, req.ClickID)
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.ResolvedFile(*f), nil
}

func (h *handler) DeleteTransfer(ctx context.Context, req *api.DeleteTransferRequest) (*api.Empty, error) {
	if err := h.s.transfers.DeleteTransfer(ctx, auth.FromContext(ctx), req.TransferID); err != nil {
		return nil, toStatus(err)
	}
	return &api.Empty{}, nil
}
