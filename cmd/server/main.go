package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"MarketSeasons/internal/cache"
	"MarketSeasons/internal/collector"
	"MarketSeasons/internal/config"
	"MarketSeasons/internal/logging"
	"MarketSeasons/internal/notifier"
	"MarketSeasons/internal/scheduler"
	"MarketSeasons/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("MarketSeasons starting", zap.String("config", cfgPath))

	// Init store
	var store cache.Store
	if cfg.Database.SQLitePath != "" {
		ss, err := cache.NewSQLiteStore(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite cache failed, using memory", zap.Error(err))
			store = cache.NewMemoryStore()
		} else {
			store = ss
		}
	} else {
		store = cache.NewMemoryStore()
	}
	defer store.Close()

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.DataSource.BaseURL != "" {
		fetcher = collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.RateLimit, logger)
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.RateLimit, logger)
	}
	logger.Info("data source", zap.String("name", fetcher.Name()))

	col := collector.NewCollector(store, fetcher, logger,
		collector.WithHistoryStart(cfg.HistoryStart()),
		collector.WithIndexTickers(cfg.DataSource.IndexTickers),
		collector.WithConcurrency(cfg.DataSource.Concurrency))

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tn *notifier.TelegramNotifier
	var n scheduler.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, col, store, n, logger)
	if err := sched.RegisterAll(cfg.Schedule.IndexRefreshCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, refreshing indexes now")
		go func() {
			if _, err := sched.RefreshIndexes(ctx); err != nil {
				logger.Error("startup refresh", zap.Error(err))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(store, col, sched, cfg.DefaultTicker, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("MarketSeasons stopped")
	return nil
}
