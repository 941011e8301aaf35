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

	"github.com/joho/godotenv"

	"github.com/terra-clan/procure-sim/internal/api"
	"github.com/terra-clan/procure-sim/internal/catalog"
	"github.com/terra-clan/procure-sim/internal/config"
	"github.com/terra-clan/procure-sim/internal/market"
	"github.com/terra-clan/procure-sim/internal/sim"
	"github.com/terra-clan/procure-sim/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting procure-sim",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize the record store
	store, err := storage.NewPostgresStore(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Load catalog seed data (tasks, products, suppliers)
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Warn("failed to load catalog from dir", "dir", cfg.Catalog.Dir, "error", err)
	}
	if err := loader.Apply(initCtx, store); err != nil {
		slog.Error("failed to apply catalog", "error", err)
		os.Exit(1)
	}

	// Market snapshot cache; the simulator runs without it if Redis is down
	var cache *market.Cache
	if cfg.Redis.Address != "" {
		cache, err = market.NewCacheFromAddress(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
		if err != nil {
			slog.Warn("redis unavailable, market cache disabled", "error", err)
		} else {
			slog.Info("redis connected successfully", "address", cfg.Redis.Address)
		}
	}

	// Simulation engine
	engine := sim.NewEngine(store)

	// Market simulator and tick worker
	seed := cfg.Market.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	simulator := market.NewSeededSimulator(store, cache, seed)

	categories := cfg.Market.Categories
	if len(categories) == 0 {
		categories = loader.Categories()
	}

	hub := market.NewHub()
	ticker := market.NewTicker(simulator, hub, categories, cfg.Market.TickInterval)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start market worker
	ticker.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, engine, simulator, hub, store)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if cache != nil {
		if err := cache.Close(); err != nil {
			slog.Error("cache close error", "error", err)
		}
	}

	if err := store.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("procure-sim stopped")
}
