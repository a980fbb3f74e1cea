// Package server initializes and runs the upload portal server.
// It connects the database, applies migrations, selects the storage backend
// and upload mode, and starts the HTTP server with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/uploadvault/internal/logging"
	"github.com/dmitrijs2005/uploadvault/internal/server/config"
	"github.com/dmitrijs2005/uploadvault/internal/server/httpapi"
	"github.com/dmitrijs2005/uploadvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/uploadvault/internal/server/uploads"
	"github.com/dmitrijs2005/uploadvault/internal/server/users"
	"github.com/dmitrijs2005/uploadvault/internal/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config, logger logging.Logger) *App {
	return &App{config: c, logger: logger.With("module", "server.app")}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// initStorage picks the object store: S3-compatible when an endpoint is
// configured, a local directory otherwise.
func (app *App) initStorage(ctx context.Context) (storage.Provider, error) {
	if app.config.S3BaseEndpoint != "" {
		return storage.NewS3Provider(ctx, storage.S3Config{
			RootUser:     app.config.S3RootUser,
			RootPassword: app.config.S3RootPassword,
			Bucket:       app.config.S3Bucket,
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
		})
	}
	return storage.NewLocalProvider(app.config.LocalUploadDir)
}

func (app *App) buildServer(ctx context.Context) (*httpapi.Server, *sql.DB, error) {
	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration error: %w", err)
	}

	userService := users.NewService(rm.Users(db), rm.RefreshTokens(db), app.config)

	store, err := app.initStorage(ctx)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("storage init error: %w", err)
	}

	var issuer *uploads.Issuer
	var receiver *uploads.Receiver
	switch app.config.UploadMode {
	case config.UploadModeProxy:
		receiver = uploads.NewReceiver(store, app.config.StorageNamespace, nil, app.logger)
	default:
		issuer = uploads.NewIssuer(app.config.StorageNamespace, app.config.StorageAPIKey, app.config.StorageAPISecret)
	}

	var rdb *redis.Client
	if app.config.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	}

	return httpapi.NewServer(app.config, app.logger, userService, issuer, receiver, store, rdb), db, nil
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	srv, db, err := app.buildServer(ctx)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}
	defer db.Close()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
