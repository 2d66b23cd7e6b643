// Package server assembles the Pulse API: it opens the database, applies
// migrations, builds the services and runs the HTTP and gRPC servers until
// the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/config"
	"github.com/dmitrijs2005/pulse/internal/server/httpapi"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pulse/internal/server/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/pulse/internal/server/grpc"
)

const purgeInterval = time.Hour

// Seams for tests.
var (
	openDB               = repomanager.OpenPostgres
	newRepositoryManager = func() repomanager.RepositoryManager { return repomanager.NewPostgresRepositoryManager() }
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	auth   *services.AuthService
	router http.Handler
	grpc   *gs.GRPCServer
}

// NewApp connects to the database, migrates it and wires every component.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	as := services.NewAuthService(db, rm, cfg, logger)
	ons := services.NewOnboardingService(db, rm, services.LogCodeSender{Logger: logger}, logger)
	avs := services.NewAvatarService(db, rm, cfg)

	gin.SetMode(gin.ReleaseMode)
	h := httpapi.NewHandler(as, as.Issuer(), ons, avs, logger)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		auth:   as,
		router: httpapi.NewRouter(h, cfg.CORSAllowedOrigins, cfg.AuthRateLimit, logger),
		grpc:   gs.NewGRPCServer(cfg.GRPCAddress, logger, db, cfg.HealthCheckInterval),
	}, nil
}

// Run serves until ctx is cancelled or a server fails, then shuts down
// gracefully within the configured timeout.
func (app *App) Run(ctx context.Context) error {
	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(context.Background(), "error closing database", "error", err)
		}
	}()

	lis, err := net.Listen("tcp", app.config.HTTPAddress)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	srv := &http.Server{
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info(ctx, "http server listening", "address", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		app.logger.Info(shutdownCtx, "shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return app.grpc.Run(ctx)
	})

	g.Go(func() error {
		app.purgeLoop(ctx, purgeInterval)
		return nil
	})

	err = g.Wait()
	app.logger.Info(context.Background(), "server stopped")
	return err
}

// purgeLoop removes expired refresh token rows every interval.
func (app *App) purgeLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := app.auth.PurgeExpiredTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "error purging expired refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

// Main loads configuration from args, builds the App and runs it until
// SIGINT or SIGTERM.
func Main(ctx context.Context, args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	logger.Info(ctx, "starting pulse api", "http", cfg.HTTPAddress, "grpc", cfg.GRPCAddress)

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
