package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"MarketSeasons/internal/model"
)

// MemoryStore keeps everything in process memory. It is used when no SQLite
// path is configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	bars     map[string]map[time.Time]model.PriceBar
	settings map[string]string
}

func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		bars:     make(map[string]map[time.Time]model.PriceBar),
		settings: make(map[string]string, len(DefaultSettings)),
	}
	for k, v := range DefaultSettings {
		m.settings[k] = v
	}
	return m
}

func (m *MemoryStore) UpsertBars(_ context.Context, ticker string, bars []model.PriceBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDate, ok := m.bars[ticker]
	if !ok {
		byDate = make(map[time.Time]model.PriceBar, len(bars))
		m.bars[ticker] = byDate
	}
	for _, b := range bars {
		b.Date = model.Day(b.Date)
		byDate[b.Date] = b
	}
	return nil
}

func (m *MemoryStore) Bars(_ context.Context, ticker string, r Range) (model.PriceSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bars []model.PriceBar
	for d, b := range m.bars[ticker] {
		if r.contains(d) {
			bars = append(bars, b)
		}
	}
	return model.NewPriceSeries(ticker, bars), nil
}

func (m *MemoryStore) DateBounds(_ context.Context, ticker string) (time.Time, time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var first, last time.Time
	for d := range m.bars[ticker] {
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last, !first.IsZero(), nil
}

func (m *MemoryStore) Tickers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.bars))
	for t, bars := range m.bars {
		if len(bars) > 0 {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) Setting(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return v, nil
}

func (m *MemoryStore) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStore) Close() error { return nil }
