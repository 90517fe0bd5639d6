// Package main is the entry point for the catalogd server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"catalogd/internal/config"
	"catalogd/internal/database"
	"catalogd/internal/handlers"
	"catalogd/internal/imaging"
	"catalogd/internal/lock"
	"catalogd/internal/router"
	"catalogd/internal/storage"
	"catalogd/internal/store"
)

func main() {
	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Structured logger — outputs JSON in production, text in development.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"storage", cfg.StorageDriver,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey for slug reservation locks. The server runs
	// without it; the database unique constraint remains the backstop.
	valkeyClient, err := lock.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable — slug locking degraded", "error", err)
		valkeyClient = nil
	} else {
		defer valkeyClient.Close()
	}
	slugLock := lock.NewSlugLock(valkeyClient, lock.DefaultTTL)

	// Pick the storage target for category images.
	var target storage.Target
	switch cfg.StorageDriver {
	case "s3":
		target, err = storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	default:
		target, err = storage.NewLocal(cfg.StorageLocalPath)
		if err != nil {
			slog.Error("failed to initialize local storage", "error", err)
			os.Exit(1)
		}
		slog.Info("local storage ready", "path", cfg.StorageLocalPath)
	}

	// Start libvips for image processing.
	imaging.Startup(0)
	defer imaging.Shutdown()

	// Initialize the data store and the upload pipeline.
	categoryStore := store.NewCategoryStore(db)
	ingestor := imaging.NewIngestor(target)

	// Create handler groups with their dependencies.
	catalog := handlers.NewCatalog(categoryStore, ingestor, slugLock, cfg.UploadDir, cfg.UploadMaxWidth)

	// Set up the Chi router with all middleware and routes.
	r, limiter := router.New(catalog)
	defer limiter.Stop()

	// Create the HTTP server with sensible timeouts. WriteTimeout must
	// accommodate image uploads that get resized and re-encoded.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
