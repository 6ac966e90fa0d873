// Package cache persists downloaded daily bars and small key/value settings.
package cache

import (
	"context"
	"errors"
	"time"

	"MarketSeasons/internal/model"
)

// ErrSettingNotFound is returned by Setting for an unknown key.
var ErrSettingNotFound = errors.New("setting not found")

// Well-known setting keys.
const (
	SettingLastTicker    = "last_ticker"
	SettingGraphSettings = "graph_settings"
)

// DefaultSettings are inserted when a store is created, without overwriting.
var DefaultSettings = map[string]string{
	SettingLastTicker: "AAPL",
}

// Range bounds a bar query. Zero times are unbounded; both ends are inclusive.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) contains(day time.Time) bool {
	if !r.From.IsZero() && day.Before(model.Day(r.From)) {
		return false
	}
	if !r.To.IsZero() && day.After(model.Day(r.To)) {
		return false
	}
	return true
}

// Store is the price and settings cache.
type Store interface {
	// UpsertBars inserts bars, replacing any existing bar with the same
	// (ticker, date).
	UpsertBars(ctx context.Context, ticker string, bars []model.PriceBar) error
	// Bars returns the cached bars of ticker within r in ascending date order.
	Bars(ctx context.Context, ticker string, r Range) (model.PriceSeries, error)
	// DateBounds returns the first and last cached dates; ok is false when the
	// ticker has no rows.
	DateBounds(ctx context.Context, ticker string) (first, last time.Time, ok bool, err error)
	// Tickers lists every cached ticker in ascending order.
	Tickers(ctx context.Context) ([]string, error)
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	Close() error
}
