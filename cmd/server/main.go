package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/deprov/internal/audit"
	"github.com/JonMunkholm/deprov/internal/config"
	"github.com/JonMunkholm/deprov/internal/core"
	"github.com/JonMunkholm/deprov/internal/logging"
	"github.com/JonMunkholm/deprov/internal/web"
)

func main() {
	// .env overrides variables already set in the environment
	loaded, err := config.LoadDotEnv()
	if err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"dotenv", loaded,
		"addr", cfg.Server.Addr(),
		"domain", cfg.Deprovisioning.Domain,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history_enabled", cfg.Audit.Enabled(),
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	// Run history is optional; without a database the service is stateless.
	var (
		recorder core.RunRecorder = core.NopRecorder{}
		history  web.RunLister
	)
	if cfg.Audit.Enabled() {
		store, err := audit.Open(ctx, cfg.Audit)
		if err != nil {
			slog.Error("failed to connect to history database", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare history schema", "error", err)
			os.Exit(1)
		}
		recorder, history = store, store
		slog.Info("run history enabled")
	}

	engine := core.NewEngine(
		core.WithDomain(cfg.Deprovisioning.Domain),
		core.WithOrganization(cfg.Deprovisioning.Organization),
		core.WithArchivePath(cfg.Deprovisioning.ArchivePath),
		core.WithEntitlementPrefixes(cfg.Deprovisioning.EntitlementPrefixes),
	)
	service := core.NewService(engine, recorder)
	limiter := core.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)

	server := web.NewServer(service, limiter, history, cfg)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...", "active_generations", limiter.Active())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}
