// Package scheduler runs the periodic index refresh and answers chat commands.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"MarketSeasons/internal/collector"
	"MarketSeasons/internal/logging"
	"MarketSeasons/internal/notifier"
)

// Refresher brings the cached index tickers up to date.
type Refresher interface {
	RefreshIndexes(ctx context.Context) (*collector.RefreshReport, error)
}

// Notifier delivers a formatted message.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// TickerLister lists cached tickers.
type TickerLister interface {
	Tickers(ctx context.Context) ([]string, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Notifier  Notifier // nil disables summaries
	Tickers   TickerLister
	Ctx       context.Context

	log *zap.Logger
	// serializes refresh runs from cron, HTTP and chat
	mu sync.Mutex
}

// NewScheduler creates a new Scheduler. notifier may be nil.
func NewScheduler(ctx context.Context, refresher Refresher, tickers TickerLister, n Notifier, logger *zap.Logger) *Scheduler {
	logger = logging.OrNop(logger)
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
		Refresher: refresher,
		Notifier:  n,
		Tickers:   tickers,
		Ctx:       ctx,
		log:       logger,
	}
}

// RegisterAll registers the index refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register index refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RefreshIndexes runs one refresh, waiting for any run already in progress.
func (s *Scheduler) RefreshIndexes(ctx context.Context) (*collector.RefreshReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Refresher.RefreshIndexes(ctx)
}

func (s *Scheduler) refreshTask() {
	s.log.Info("running index refresh task")
	report, err := s.RefreshIndexes(s.Ctx)
	if err != nil {
		s.log.Error("index refresh", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ index refresh failed: %v", err))
		return
	}
	s.trySend(notifier.FormatRefreshReport(report))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/refresh":
		report, err := s.RefreshIndexes(ctx)
		if err != nil {
			return fmt.Sprintf("❌ index refresh failed: %v", err)
		}
		return notifier.FormatRefreshReport(report)
	case "/tickers":
		tickers, err := s.Tickers.Tickers(ctx)
		if err != nil {
			return fmt.Sprintf("❌ list tickers: %v", err)
		}
		return notifier.FormatTickers(tickers)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
