package collector

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"MarketSeasons/internal/model"
)

// Fetcher downloads daily bars from a market data provider.
type Fetcher interface {
	// FetchDailyBars returns the bars of symbol between start and end, both
	// inclusive, in ascending date order. A provider with nothing to report
	// returns an empty slice and no error.
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error)
	Name() string
}

var tickerAliases = map[string]string{
	"SPX": "^GSPC",
}

// NormalizeTicker trims and upper-cases a user-supplied ticker and resolves
// known aliases.
func NormalizeTicker(ticker string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(ticker))
	if mapped, ok := tickerAliases[cleaned]; ok {
		return mapped
	}
	return cleaned
}

// newHTTPClient builds the provider client, routed through proxyURL when set.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// MockFetcher serves fixed bars per symbol for development and testing.
type MockFetcher struct {
	Bars map[string][]model.PriceBar
	Err  error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one FetchDailyBars invocation.
type MockCall struct {
	Symbol     string
	Start, End time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns the recorded invocations.
func (m *MockFetcher) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Symbol: symbol, Start: start, End: end})
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.PriceBar
	for _, b := range m.Bars[symbol] {
		d := model.Day(b.Date)
		if d.Before(model.Day(start)) || d.After(model.Day(end)) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
