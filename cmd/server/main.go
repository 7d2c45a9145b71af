package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/talenttrack/internal/config"
	"github.com/JonMunkholm/talenttrack/internal/core"
	"github.com/JonMunkholm/talenttrack/internal/database"
	"github.com/JonMunkholm/talenttrack/internal/logging"
	"github.com/JonMunkholm/talenttrack/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	backend := "sqlite"
	if cfg.Database.UsePostgres() {
		backend = "postgres"
	}
	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"store", backend,
		"import_max_file_size", cfg.Import.MaxFileSize,
		"import_duplicate_policy", cfg.Import.DuplicatePolicy,
	)

	ctx := context.Background()
	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open candidate store", "error", err)
		os.Exit(1)
	}

	service, err := core.NewService(store, cfg.Import)
	if err != nil {
		store.Close()
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}
	defer service.Close()

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Running imports finish before the listener closes
		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		service.Close()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
