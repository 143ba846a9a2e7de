// Package app initializes and runs the main application service.
// It configures logging, storage, mail delivery, click tracking,
// the scheduler and routing, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mvolkov/biotap/internal/auth"
	"github.com/mvolkov/biotap/internal/clicktracker"
	"github.com/mvolkov/biotap/internal/config"
	"github.com/mvolkov/biotap/internal/db/memorystorage"
	"github.com/mvolkov/biotap/internal/db/postgresdb"
	"github.com/mvolkov/biotap/internal/db/storage"
	"github.com/mvolkov/biotap/internal/geoip"
	"github.com/mvolkov/biotap/internal/logger"
	"github.com/mvolkov/biotap/internal/mailer"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/router"
	"github.com/mvolkov/biotap/internal/scheduler"
	"github.com/mvolkov/biotap/internal/service"
)

// App encapsulates the configuration, HTTP handler, storage backend,
// and background services (click tracker, scheduler) needed to run the
// platform.
type App struct {
	cfg              *config.Config
	db               storage.Storage
	geo              *geoip.Resolver
	clickTracker     *clicktracker.ClickTracker
	stopClickTracker context.CancelFunc
	scheduler        *scheduler.Scheduler
	httpHandler      http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the background click tracker and the scheduler
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	app.geo, err = geoip.New(app.cfg.GeoIPDBPath)
	if err != nil {
		return nil, err
	}

	app.clickTracker = clicktracker.New(
		app.db,
		app.geo,
		app.cfg.ClickQueueCapacity,
		app.cfg.ClickFlushInterval,
	)
	clickTrackerRunCtx, stopClickTracker := context.WithCancel(context.Background())
	app.stopClickTracker = stopClickTracker

	app.clickTracker.Run(clickTrackerRunCtx)
	app.clickTracker.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `app.clickTracker.ListenErrors()`:", zap.Error(err))
	})

	theMailer := mailer.New(app.db, mailer.Options{
		APIKey:              app.cfg.ResendAPIKey,
		FromEmail:           app.cfg.FromEmail,
		AppName:             app.cfg.AppName,
		FrontendURL:         app.cfg.FrontendURL,
		SendWelcomeEmails:   app.cfg.SendWelcomeEmails,
		SendAnalyticsEmails: app.cfg.SendAnalyticsEmails,
	})

	theAuth := auth.New(
		app.db,
		[]byte(app.cfg.SecretKey),
		app.cfg.AccessTokenTTL(),
	)

	theService := service.New(
		app.db,
		theMailer,
		theAuth,
		app.clickTracker,
		app.geo,
		app.cfg.PasswordResetTTL(),
	)

	app.scheduler, err = scheduler.New(theService)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(theService, theAuth, app.cfg)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.IsProduction() {
		a.scheduler.Start()
	}

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Flushing click events and exiting...")
		if a.cfg.IsProduction() {
			a.scheduler.Stop()
		}
		a.stopClickTracker()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		if err := a.geo.Close(); err != nil {
			logger.Log.Debugln("GeoIP close error:", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)
	}

	return memorystorage.New()
}
