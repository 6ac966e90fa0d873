// Package collector keeps the price cache in sync with a market data provider.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"MarketSeasons/internal/cache"
	"MarketSeasons/internal/logging"
	"MarketSeasons/internal/model"
)

var (
	// ErrNoCachedData means the cache holds no bars for the ticker.
	ErrNoCachedData = errors.New("no cached data for this ticker")
	// ErrNoProviderData means the provider returned nothing for the window.
	ErrNoProviderData = errors.New("no data returned from provider")
	// ErrUnknownAction is returned for a load action other than cached, new or update.
	ErrUnknownAction = errors.New("unknown action")
)

// Action selects how Load treats the cache before reading it.
type Action string

const (
	ActionCached Action = "cached"
	ActionNew    Action = "new"
	ActionUpdate Action = "update"
)

// ParseAction maps a request value to an Action. Empty means cached.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case "":
		return ActionCached, nil
	case ActionCached, ActionNew, ActionUpdate:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// DefaultHistoryStart is the first day requested for a ticker without cache.
var DefaultHistoryStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Collector orchestrates provider downloads into the cache.
type Collector struct {
	store        cache.Store
	fetcher      Fetcher
	log          *zap.Logger
	historyStart time.Time
	indexTickers []string
	concurrency  int
	now          func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithHistoryStart sets the first day downloaded for a new ticker.
func WithHistoryStart(t time.Time) Option {
	return func(c *Collector) { c.historyStart = model.Day(t) }
}

// WithIndexTickers sets the tickers refreshed by RefreshIndexes.
func WithIndexTickers(tickers []string) Option {
	return func(c *Collector) { c.indexTickers = append([]string(nil), tickers...) }
}

// WithConcurrency bounds the parallel downloads of RefreshIndexes.
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// NewCollector creates a new Collector.
func NewCollector(store cache.Store, fetcher Fetcher, logger *zap.Logger, opts ...Option) *Collector {
	c := &Collector{
		store:        store,
		fetcher:      fetcher,
		log:          logging.OrNop(logger),
		historyStart: DefaultHistoryStart,
		concurrency:  4,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IndexTickers returns the tickers refreshed by RefreshIndexes.
func (c *Collector) IndexTickers() []string { return append([]string(nil), c.indexTickers...) }

// yesterday is the last complete session day in UTC.
func (c *Collector) yesterday() time.Time {
	return model.Day(c.now().UTC()).AddDate(0, 0, -1)
}

// LoadResult is the cached history of a ticker after Load.
type LoadResult struct {
	Ticker     string
	Series     model.PriceSeries
	Downloaded bool
	Message    string
}

// Load normalizes ticker, applies action to the cache and returns the whole
// cached history.
func (c *Collector) Load(ctx context.Context, ticker string, action Action) (*LoadResult, error) {
	resolved := NormalizeTicker(ticker)
	res := &LoadResult{Ticker: resolved}
	yesterday := c.yesterday()

	c.log.Info("load", zap.String("ticker", ticker), zap.String("resolved", resolved), zap.String("action", string(action)))

	switch action {
	case ActionCached:
	case ActionNew:
		if err := c.download(ctx, resolved, c.historyStart, yesterday); err != nil {
			return nil, err
		}
		res.Downloaded = true
	case ActionUpdate:
		_, last, ok, err := c.store.DateBounds(ctx, resolved)
		if err != nil {
			return nil, fmt.Errorf("date bounds %s: %w", resolved, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoCachedData, resolved)
		}
		start := last.AddDate(0, 0, 1)
		if start.After(yesterday) {
			res.Message = "already up to date"
			break
		}
		if err := c.download(ctx, resolved, start, yesterday); err != nil {
			return nil, err
		}
		res.Downloaded = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	series, err := c.store.Bars(ctx, resolved, cache.Range{})
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", resolved, err)
	}
	if series.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrNoCachedData, resolved)
	}
	res.Series = series
	return res, nil
}

// Series reads the whole cached history of a ticker.
func (c *Collector) Series(ctx context.Context, ticker string) (model.PriceSeries, error) {
	resolved := NormalizeTicker(ticker)
	series, err := c.store.Bars(ctx, resolved, cache.Range{})
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("read cache %s: %w", resolved, err)
	}
	if series.Empty() {
		return series, fmt.Errorf("%w: %s", ErrNoCachedData, resolved)
	}
	return series, nil
}

func (c *Collector) download(ctx context.Context, ticker string, start, end time.Time) error {
	bars, err := c.fetcher.FetchDailyBars(ctx, ticker, start, end)
	if err != nil {
		return fmt.Errorf("fetch %s from %s: %w", ticker, c.fetcher.Name(), err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: %s", ErrNoProviderData, ticker)
	}
	if err := c.store.UpsertBars(ctx, ticker, bars); err != nil {
		return fmt.Errorf("store %s: %w", ticker, err)
	}
	c.log.Info("downloaded", zap.String("ticker", ticker), zap.Int("bars", len(bars)),
		zap.String("start", start.Format(model.DateLayout)), zap.String("end", end.Format(model.DateLayout)))
	return nil
}

// Refresh statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RefreshResult is the outcome for one index ticker.
type RefreshResult struct {
	Ticker  string `json:"ticker"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RefreshReport summarizes one RefreshIndexes run.
type RefreshReport struct {
	RunID    string          `json:"run_id"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	Results  []RefreshResult `json:"results"`
}

// Failed counts the tickers that ended in error.
func (r *RefreshReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusError {
			n++
		}
	}
	return n
}

// RefreshIndexes brings every index ticker up to yesterday. Failures are
// reported per ticker; only context cancellation aborts the run.
func (c *Collector) RefreshIndexes(ctx context.Context) (*RefreshReport, error) {
	report := &RefreshReport{
		RunID:   uuid.NewString(),
		Started: c.now(),
		Results: make([]RefreshResult, len(c.indexTickers)),
	}
	log := c.log.With(zap.String("run_id", report.RunID))
	yesterday := c.yesterday()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, raw := range c.indexTickers {
		g.Go(func() error {
			report.Results[i] = c.refreshOne(gctx, raw, yesterday)
			if report.Results[i].Status == StatusError {
				log.Warn("index refresh failed", zap.String("ticker", raw), zap.String("message", report.Results[i].Message))
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("refresh indexes: %w", err)
	}

	report.Finished = c.now()
	log.Info("indexes refreshed", zap.Int("tickers", len(report.Results)), zap.Int("failed", report.Failed()))
	return report, nil
}

func (c *Collector) refreshOne(ctx context.Context, raw string, yesterday time.Time) RefreshResult {
	ticker := NormalizeTicker(raw)
	res := RefreshResult{Ticker: raw, Status: StatusOK}

	start := c.historyStart
	_, last, ok, err := c.store.DateBounds(ctx, ticker)
	if err != nil {
		res.Status, res.Message = StatusError, err.Error()
		return res
	}
	if ok {
		start = last.AddDate(0, 0, 1)
		if start.After(yesterday) {
			res.Message = "up to date"
			return res
		}
	}

	err = c.download(ctx, ticker, start, yesterday)
	switch {
	case errors.Is(err, ErrNoProviderData):
		res.Status, res.Message = StatusError, "no data"
	case err != nil:
		res.Status, res.Message = StatusError, err.Error()
	default:
		res.Message = fmt.Sprintf("updated %s to %s", start.Format(model.DateLayout), yesterday.Format(model.DateLayout))
	}
	return res
}
