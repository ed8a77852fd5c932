package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/tabledit/internal/config"
	"github.com/JonMunkholm/tabledit/internal/core"
	"github.com/JonMunkholm/tabledit/internal/gemini"
	"github.com/JonMunkholm/tabledit/internal/logging"
	"github.com/JonMunkholm/tabledit/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_sessions", cfg.Session.MaxSessions,
		"import_max_file_size", cfg.Import.MaxFileSize,
		"csv_delimiter", cfg.Export.CSVDelimiter,
		"generation_enabled", cfg.Generation.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	// A nil *gemini.Client must not become a non-nil core.Generator.
	var generator core.Generator
	if client := gemini.NewFromConfig(&cfg.Generation); client != nil {
		generator = client
		slog.Info("data generation enabled", "model", client.Model)
	} else {
		slog.Warn("GENERATION_API_KEY not set, data generation disabled")
	}

	service := core.NewService(cfg, generator)

	// Log registered formats
	for _, f := range core.Formats() {
		slog.Debug("format registered", "name", f.Name, "media_type", f.MediaType)
	}

	// Create server with config
	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	// Expire idle sessions
	go service.StartSessionSweeper(jobCtx, cfg.Session.SweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for running generations to complete (with timeout)
		genStatus := service.GenerationStatus()
		if genStatus.Active > 0 {
			slog.Info("waiting for generations to complete", "active", genStatus.Active)
			if err := service.WaitForGenerations(shutdownCtx); err != nil {
				slog.Warn("generations did not complete in time", "error", err)
			} else {
				slog.Info("all generations completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
