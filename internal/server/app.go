// Package server assembles the VaultDrop server: storage backends, services,
// the expiry reaper and the HTTP and gRPC transports, with graceful shutdown
// on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/vaultdrop/internal/dbx"
	"github.com/dmitrijs2005/vaultdrop/internal/logging"
	"github.com/dmitrijs2005/vaultdrop/internal/server/config"
	"github.com/dmitrijs2005/vaultdrop/internal/server/dedupe"
	"github.com/dmitrijs2005/vaultdrop/internal/server/httpapi"
	"github.com/dmitrijs2005/vaultdrop/internal/server/reaper"
	"github.com/dmitrijs2005/vaultdrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vaultdrop/internal/server/services"
	"github.com/dmitrijs2005/vaultdrop/internal/server/storage"
	"github.com/gin-gonic/gin"
	"github.com/gomodule/redigo/redis"

	gs "github.com/dmitrijs2005/vaultdrop/internal/server/grpc"
)

const dbConnectAttempts = 5

type App struct {
	config    *config.Config
	logger    logging.Logger
	connector *dbx.Connector
	redisPool *redis.Pool

	userService     *services.UserService
	transferService *services.TransferService
	commentService  *services.CommentService
	reaper          *reaper.Reaper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	store, err := storage.NewS3Store(ctx, storage.Options{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
		PresignTTL:   c.PresignValidityDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	connector := dbx.NewConnector("pgx", c.DatabaseDSN, dbConnectAttempts)
	db, err := connector.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = connector.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	app := &App{config: c, logger: logger, connector: connector}
	app.buildServices(db, rm, store)

	app.reaper, err = reaper.New(c.ReaperSchedule, app.transferService, app.userService, logger)
	if err != nil {
		_ = app.close()
		return nil, err
	}

	return app, nil
}

func (app *App) buildServices(db *sql.DB, rm repomanager.RepositoryManager, store services.ObjectStore) {
	var clicks dedupe.Guard
	if app.config.RedisAddr != "" {
		app.redisPool = dedupe.NewPool(app.config.RedisAddr)
		clicks = dedupe.NewRedis(app.redisPool, dedupe.DefaultWindow)
	} else {
		clicks = dedupe.NewMemory(dedupe.DefaultWindow)
	}

	app.userService = services.NewUserService(db, rm, app.config)
	app.transferService = services.NewTransferService(db, rm, store, clicks, app.config, app.logger)
	app.commentService = services.NewCommentService(db, rm, app.transferService)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.transferService, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	gin.SetMode(gin.ReleaseMode)
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.config.PublicBaseURL, app.logger,
		app.userService, app.transferService, app.commentService, app.config.SecretKey).
		TrustProxies(app.config.TrustedProxies)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or a transport fails, then stops
// everything and releases the database and Redis pools.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.reaper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.reaper.Run(ctx)
		}()
	}

	wg.Wait()

	if err := app.close(); err != nil {
		app.logger.Error(ctx, "shutdown error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close() error {
	if app.redisPool != nil {
		_ = app.redisPool.Close()
	}
	return app.connector.Close()
}
