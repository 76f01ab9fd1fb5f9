// Package httpapi serves the browser-facing JSON API with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/logging"
	"github.com/dmitrijs2005/vaultdrop/internal/server/auth"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
	"github.com/dmitrijs2005/vaultdrop/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

type userService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Profile(ctx context.Context, caller *auth.Identity) (*services.Profile, error)
	UpdateProfile(ctx context.Context, caller *auth.Identity, name string) (*services.Profile, error)
	ListUsers(ctx context.Context, caller *auth.Identity) ([]*models.User, error)
	SetBlocked(ctx context.Context, caller *auth.Identity, userID string, blocked bool) error
}

type transferService interface {
	AuthorizeUpload(ctx context.Context, caller *auth.Identity, files []models.UploadFile) ([]models.UploadSlot, error)
	CreateTransfer(ctx context.Context, caller *auth.Identity, in services.CreateTransferInput) (*services.CreatedTransfer, error)
	ListOwned(ctx context.Context, caller *auth.Identity) ([]*models.Transfer, error)
	GetTransfer(ctx context.Context, transferID string, access services.Access) (*models.Envelope, error)
	ResolveDownload(ctx context.Context, transferID string, access services.Access, fileIndex int, clickID string) (*models.ResolvedFile, error)
	DeleteTransfer(ctx context.Context, caller *auth.Identity, transferID string) error
	AdminOverview(ctx context.Context, caller *auth.Identity) (*services.AdminOverview, error)
}

type commentService interface {
	List(ctx context.Context, transferID string, access services.Access) ([]*models.Comment, error)
	Post(ctx context.Context, caller *auth.Identity, transferID string, access services.Access, in services.CommentInput) (*models.Comment, error)
}

type Server struct {
	address   string
	origin    string
	users     userService
	transfers transferService
	comments  commentService
	logger    logging.Logger
	jwtSecret []byte
	proxies   []string
}

// NewServer builds the HTTP API. origin is the public base URL allowed by
// CORS; an empty or malformed origin allows any.
func NewServer(addr, origin string, l logging.Logger, us userService, ts transferService, cs commentService, secretKey string) *Server {
	return &Server{
		address:   addr,
		origin:    strings.TrimRight(origin, "/"),
		users:     us,
		transfers: ts,
		comments:  cs,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
}

// TrustProxies names the reverse proxies whose X-Forwarded-For header is
// believed when deriving the client address. By default none are, and the
// client is the socket peer.
func (s *Server) TrustProxies(proxies []string) *Server {
	s.proxies = proxies
	return s
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AddAllowHeaders("Authorization", common.PasswordHeaderName)
	cfg.AllowOrigins = []string{s.origin}
	if s.origin == "" || cfg.Validate() != nil {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// Router wires every route. It is exported for tests and embedding.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.proxies); err != nil {
		s.logger.Error(context.Background(), "ignoring trusted proxies", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), s.requestLogger(), cors.New(s.corsConfig()), s.authenticate())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	a := r.Group("/api")

	a.POST("/auth/register", s.register)
	a.POST("/auth/login", s.login)
	a.POST("/auth/refresh", s.refresh)

	me := a.Group("/me", requireUser)
	me.GET("", s.profile)
	me.PATCH("", s.updateProfile)

	a.POST("/upload/authorize", refuseBadToken, s.authorizeUpload)
	a.POST("/upload", refuseBadToken, s.createTransfer)
	a.GET("/transfers", requireUser, s.listTransfers)

	v := a.Group("/vault/:id")
	v.GET("", s.getTransfer)
	v.DELETE("", requireUser, s.deleteTransfer)
	v.POST("/download", s.resolveDownload)
	v.GET("/comments", s.listComments)
	v.POST("/comments", s.postComment)

	admin := a.Group("/admin", requireUser)
	admin.GET("/transfers", s.adminTransfers)
	admin.GET("/users", s.adminUsers)
	admin.PUT("/users/:id/block", s.adminBlock)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
