// Kestrel - Card approval scoring for merchant checkout.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/analytics"
	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/pipeline"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/velocity"
	"github.com/opensource-finance/kestrel/internal/webhook"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	// External scoring tables; empty means built-in defaults
	if dir := os.Getenv("KESTREL_TABLES_DIR"); dir != "" {
		cfg.Tables.Dir = dir
	}
	if os.Getenv("KESTREL_WEBHOOKS") == "false" {
		cfg.Webhook.Enabled = false
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"tables_dir", cfg.Tables.Dir,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize scoring table store
	store, err := config.NewStore(cfg.Tables.Dir, logger)
	if err != nil {
		slog.Error("failed to load scoring tables", "error", err)
		os.Exit(1)
	}

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Velocity Service
	velocitySvc := velocity.NewService(repo, cacheImpl)
	slog.Info("velocity service initialized")

	// Initialize scoring pipeline
	pipe := pipeline.New(store, pipeline.DefaultMaxWorkers, logger)
	slog.Info("scoring pipeline initialized", "max_workers", pipeline.DefaultMaxWorkers)

	// Initialize webhook dispatcher
	var dispatcher *webhook.Dispatcher
	if cfg.Webhook.Enabled {
		dispatcher, err = webhook.NewDispatcher(busImpl, repo, cfg.Webhook, logger)
		if err != nil {
			slog.Error("failed to initialize webhook dispatcher", "error", err)
			os.Exit(1)
		}
		if err := dispatcher.Start(); err != nil {
			slog.Error("failed to start webhook dispatcher", "error", err)
			os.Exit(1)
		}
	}

	// Initialize analytics emitter
	emitter := analytics.NewEmitter(busImpl, logger)
	if err := emitter.Start(); err != nil {
		slog.Error("failed to start analytics emitter", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, store, pipe, velocitySvc, repo, cacheImpl, busImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop event consumers first so in-flight deliveries finish
	if dispatcher != nil {
		if err := dispatcher.Stop(); err != nil {
			slog.Error("failed to stop webhook dispatcher", "error", err)
		}
		stats := dispatcher.GetStats()
		slog.Info("webhook dispatcher stopped",
			"delivered", stats.Delivered,
			"failed", stats.Failed,
		)
	}

	if err := emitter.Stop(); err != nil {
		slog.Error("failed to stop analytics emitter", "error", err)
	}
	totals := emitter.Totals()
	slog.Info("session totals",
		"scored", totals.Scored,
		"approved", totals.Approved,
		"review", totals.Review,
		"declined", totals.Declined,
	)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 KESTREL                  ║")
	fmt.Println("  ║      Checkout Approval Scoring            ║")
	fmt.Println("  ║     Hovering over every checkout.         ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /score                      - Score a checkout")
	fmt.Println("    POST /recommend                  - Score and rank wallet cards")
	fmt.Println("    POST /decide                     - Full decision contract")
	fmt.Println("    GET  /scores/{id}                - Get score by request ID")
	fmt.Println("    GET  /decisions/{id}             - Get decision by request ID")
	fmt.Println("    GET  /customers/{id}/cards       - List wallet cards")
	fmt.Println("    PUT  /customers/{id}/cards       - Replace wallet")
	fmt.Println("    POST /customers/{id}/cards       - Add or update a card")
	fmt.Println("    GET  /customers/{id}/decisions   - List customer decisions")
	fmt.Println("    GET  /webhooks                   - List webhook endpoints")
	fmt.Println("    POST /webhooks                   - Register a webhook")
	fmt.Println("    GET  /webhooks/{id}/deliveries   - Delivery log")
	fmt.Println("    GET  /config                     - Active scoring tables")
	fmt.Println("    POST /config/reload              - Hot-reload scoring tables")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println()
}
