package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garnizeh/companies/api"
	dbfs "github.com/garnizeh/companies/db"
	"github.com/garnizeh/companies/internal/auth"
	"github.com/garnizeh/companies/internal/config"
	"github.com/garnizeh/companies/internal/db"
	"github.com/garnizeh/companies/internal/jobdesc"
	"github.com/garnizeh/companies/internal/reconcile"
	"github.com/garnizeh/companies/internal/repository/sqlite"
	"github.com/garnizeh/companies/pkg/logging"
	"github.com/garnizeh/companies/pkg/matching"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	defer logger.Sync()
	api.SetLogger(logger)
	matching.SetLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("starting companies server", "version", version, "build_time", buildTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("close db", "err", err)
		}
	}()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations, nil); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	repo := sqlite.New(database, logger)

	remote, err := matching.NewDefaultClient(cfg.Matching)
	if err != nil {
		return fmt.Errorf("matching client: %w", err)
	}
	defer remote.Close()

	sync := jobdesc.New(repo, repo, repo, remote, logger)

	deps := api.Deps{
		Companies: repo,
		Sync:      sync,
		Tokens:    auth.NewTokens(cfg.JWTSecret, cfg.TokenDuration),
		Limiter:   api.NewRateLimiter(),
		DB:        database,
		Ledger:    repo,
	}
	if cfg.Google.ClientID != "" {
		deps.Verifier = auth.NewGoogleVerifier(cfg.Google.ClientID)
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		deps.Limiter = api.NewRedisLimiter(rdb, "companies:ratelimit:")
		logger.Info("rate limiting backed by redis")
	}

	if cfg.Reconcile.Enabled {
		rec := reconcile.New(cfg.Reconcile, repo, repo, sync, logger)
		if err := rec.Start(ctx); err != nil {
			return fmt.Errorf("start reconciler: %w", err)
		}
		defer rec.Stop()
	}

	router := api.SetupRoutes(cfg, version, buildTime, deps)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.Handler(router),
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout + cfg.Matching.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
