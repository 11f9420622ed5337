package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"historial-tg-bot/internal/config"
	"historial-tg-bot/internal/correlation"
	"historial-tg-bot/internal/ledger"
	"historial-tg-bot/internal/provider"
	"historial-tg-bot/internal/server"
	"historial-tg-bot/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	var logLevel slog.Level
	switch cfg.Logging.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if cfg.Logging.JSONFormat {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Create root context with cancellation
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// WaitGroup for tracking active goroutines
	var wg sync.WaitGroup

	// Initialize ledger store
	store := ledger.NewStore(cfg.Ledger.Path, logger)
	initialAllowed := make([]string, 0, len(cfg.Ledger.AllowedUsers))
	for _, id := range cfg.Ledger.AllowedUsers {
		initialAllowed = append(initialAllowed, strconv.FormatInt(id, 10))
	}
	if err := store.Load(initialAllowed); err != nil {
		logger.Error("failed to load ledger", "error", err)
		os.Exit(1)
	}

	// Initialize request correlation tracker
	tracker := correlation.NewTracker(cfg.Ledger.CallbackTTL, logger)

	// Initialize provider client
	providerClient := provider.NewClient(cfg.Provider, cfg.CallbackURL(), logger)

	// Initialize Telegram bot and wire the command handler
	bot, err := telegram.NewBot(cfg.Telegram, logger)
	if err != nil {
		logger.Error("failed to create telegram bot", "error", err)
		os.Exit(1)
	}
	bot.SetHandler(telegram.NewHandler(
		bot.API(),
		store,
		tracker,
		providerClient,
		cfg.Telegram.AdminID,
		cfg.Ledger.LookupCost,
		logger,
	))

	// Callback delivery path
	deliverer := telegram.NewDeliverer(bot.API(), tracker, cfg.DefaultRecipient(), logger)

	// HTTP server for the provider webhook and health checks
	srv := server.New(cfg.Server.Port, cfg.CallbackPath(), deliverer, logger)

	// Start bot in goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bot.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("bot error", "error", err)
		}
	}()

	// Start HTTP server in goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			rootCancel()
		}
	}()

	// Sweep expired correlations, notifying the waiting chat
	wg.Add(1)
	go func() {
		defer wg.Done()
		tracker.Run(rootCtx, time.Minute, deliverer.NotifyExpiry)
	}()

	logger.Info("bot started",
		"ledger_path", cfg.Ledger.Path,
		"lookup_cost", cfg.Ledger.LookupCost,
		"callback_url", cfg.CallbackURL(),
	)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig)

	// Cancel root context to signal all goroutines
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}

	// Wait for graceful shutdown with timeout
	shutdownTimeout := 30 * time.Second
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("graceful shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timeout exceeded, forcing exit")
	}
}
