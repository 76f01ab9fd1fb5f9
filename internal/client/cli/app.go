package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/client/client"
	"github.com/dmitrijs2005/vaultdrop/internal/client/config"
	"github.com/dmitrijs2005/vaultdrop/internal/client/models"
	"github.com/dmitrijs2005/vaultdrop/internal/client/repositories"
	"github.com/dmitrijs2005/vaultdrop/internal/client/services"
	"github.com/dmitrijs2005/vaultdrop/internal/netx"
)

// AuthService is what the account commands need.
type AuthService interface {
	Restore(ctx context.Context) (string, error)
	Register(ctx context.Context, name, email, password string) (*api.User, error)
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
}

// TransferService is what the transfer commands need.
type TransferService interface {
	Send(ctx context.Context, paths []string, opts services.SendOptions) (*services.SendResult, error)
	Fetch(ctx context.Context, link, password, outDir string) (*services.FetchResult, error)
	List(ctx context.Context) ([]api.TransferSummary, error)
	Delete(ctx context.Context, transferID string) error
	History(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

// App holds the services of one CLI invocation.
type App struct {
	Auth      AuthService
	Transfers TransferService
	// Email of the restored session, "" when logged out.
	Email string

	close func() error
}

func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// Factory builds the App for a command. Tests supply their own.
type Factory func(ctx context.Context, cfg *config.Config) (*App, error)

// NewApp opens the local database, prepares the gRPC client and restores the
// saved session.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	repos, err := repositories.InitDatabase(ctx, cfg.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("local database: %w", err)
	}

	gc, err := client.NewGRPCClient(cfg.ServerEndpointAddr)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("grpc client: %w", err)
	}

	auth := services.NewAuthService(gc, repos.Metadata)
	email, err := auth.Restore(ctx)
	if err != nil {
		_ = gc.Close()
		_ = repos.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	transfers := services.NewTransferService(gc, netx.New(cfg.TransferTimeout), repos.History, cfg.UploadConcurrency)

	return &App{
		Auth:      auth,
		Transfers: transfers,
		Email:     email,
		close: func() error {
			return errors.Join(gc.Close(), repos.Close())
		},
	}, nil
}
