package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSeasons/internal/cache"
	"MarketSeasons/internal/model"
)

var fixedNow = time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDay(s)
	require.NoError(t, err)
	return d
}

// weekdays builds one bar per weekday in [from, to].
func weekdays(t *testing.T, from, to string) []model.PriceBar {
	t.Helper()
	var bars []model.PriceBar
	for d := day(t, from); !d.After(day(t, to)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		c := 100 + float64(len(bars))
		bars = append(bars, model.PriceBar{Date: d, Open: null.FloatFrom(c), High: null.FloatFrom(c),
			Low: null.FloatFrom(c), Close: null.FloatFrom(c), Volume: null.IntFrom(1)})
	}
	return bars
}

func newTestCollector(store cache.Store, f Fetcher, opts ...Option) *Collector {
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithHistoryStart(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, opts...)
	return NewCollector(store, f, nil, opts...)
}

func TestNormalizeTicker(t *testing.T) {
	tests := map[string]string{
		" aapl ": "AAPL",
		"spx":    "^GSPC",
		"SPX":    "^GSPC",
		"^vix":   "^VIX",
		"":       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeTicker(in), in)
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("")
	require.NoError(t, err)
	assert.Equal(t, ActionCached, a)

	a, err = ParseAction("update")
	require.NoError(t, err)
	assert.Equal(t, ActionUpdate, a)

	_, err = ParseAction("delete")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestLoad_CachedWithoutDataIsError(t *testing.T) {
	c := newTestCollector(cache.NewMemoryStore(), &MockFetcher{})
	_, err := c.Load(context.Background(), "aapl", ActionCached)
	assert.ErrorIs(t, err, ErrNoCachedData)
}

func TestLoad_NewDownloadsHistoryToYesterday(t *testing.T) {
	f := &MockFetcher{Bars: map[string][]model.PriceBar{"^GSPC": weekdays(t, "2024-01-01", "2024-01-12")}}
	c := newTestCollector(cache.NewMemoryStore(), f)

	res, err := c.Load(context.Background(), "spx", ActionNew)
	require.NoError(t, err)
	assert.Equal(t, "^GSPC", res.Ticker)
	assert.True(t, res.Downloaded)
	assert.Empty(t, res.Message)

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, day(t, "2024-01-01"), calls[0].Start)
	assert.Equal(t, day(t, "2024-01-09"), calls[0].End)
	// 2024-01-01..09 weekdays
	assert.Equal(t, 7, res.Series.Len())
}

func TestLoad_NewWithoutProviderData(t *testing.T) {
	c := newTestCollector(cache.NewMemoryStore(), &MockFetcher{})
	_, err := c.Load(context.Background(), "ZZZZ", ActionNew)
	assert.ErrorIs(t, err, ErrNoProviderData)
}

func TestLoad_UpdateAppendsAfterLastCachedDay(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.UpsertBars(ctx, "AAPL", weekdays(t, "2024-01-01", "2024-01-05")))
	f := &MockFetcher{Bars: map[string][]model.PriceBar{"AAPL": weekdays(t, "2024-01-01", "2024-01-12")}}
	c := newTestCollector(store, f)

	res, err := c.Load(ctx, "AAPL", ActionUpdate)
	require.NoError(t, err)
	assert.True(t, res.Downloaded)
	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, day(t, "2024-01-06"), calls[0].Start)
	assert.Equal(t, 7, res.Series.Len())
}

func TestLoad_UpdateAlreadyCurrent(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.UpsertBars(ctx, "AAPL", weekdays(t, "2024-01-01", "2024-01-09")))
	f := &MockFetcher{}
	c := newTestCollector(store, f)

	res, err := c.Load(ctx, "AAPL", ActionUpdate)
	require.NoError(t, err)
	assert.False(t, res.Downloaded)
	assert.Equal(t, "already up to date", res.Message)
	assert.Empty(t, f.Calls())
}

func TestLoad_UpdateWithoutCache(t *testing.T) {
	c := newTestCollector(cache.NewMemoryStore(), &MockFetcher{})
	_, err := c.Load(context.Background(), "AAPL", ActionUpdate)
	assert.ErrorIs(t, err, ErrNoCachedData)
}

func TestLoad_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	c := newTestCollector(cache.NewMemoryStore(), &MockFetcher{Err: boom})
	_, err := c.Load(context.Background(), "AAPL", ActionNew)
	assert.ErrorIs(t, err, boom)
}

func TestRefreshIndexes(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	// ^VIX is current, ^VIX9D has a gap, ^SKEW is new, ^VOLI has no data.
	require.NoError(t, store.UpsertBars(ctx, "^VIX", weekdays(t, "2024-01-01", "2024-01-09")))
	require.NoError(t, store.UpsertBars(ctx, "^VIX9D", weekdays(t, "2024-01-01", "2024-01-03")))
	f := &MockFetcher{Bars: map[string][]model.PriceBar{
		"^VIX9D": weekdays(t, "2024-01-01", "2024-01-12"),
		"^SKEW":  weekdays(t, "2024-01-01", "2024-01-12"),
	}}
	c := newTestCollector(store, f,
		WithIndexTickers([]string{"^VIX", "^VIX9D", "^SKEW", "^VOLI"}),
		WithConcurrency(2))

	report, err := c.RefreshIndexes(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []RefreshResult{
		{Ticker: "^VIX", Status: StatusOK, Message: "up to date"},
		{Ticker: "^VIX9D", Status: StatusOK, Message: "updated 2024-01-04 to 2024-01-09"},
		{Ticker: "^SKEW", Status: StatusOK, Message: "updated 2024-01-01 to 2024-01-09"},
		{Ticker: "^VOLI", Status: StatusError, Message: "no data"},
	}, report.Results)
	assert.Equal(t, 1, report.Failed())

	_, last, ok, err := store.DateBounds(ctx, "^VIX9D")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day(t, "2024-01-09"), last)
}

func TestRefreshIndexes_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestCollector(cache.NewMemoryStore(), &MockFetcher{}, WithIndexTickers([]string{"^VIX"}))
	_, err := c.RefreshIndexes(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

const yahooBody = `{"chart":{"result":[{"meta":{"gmtoffset":-18000},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{
"open":[10.0,null,12.0],"high":[11.0,null,13.0],"low":[9.0,null,11.0],
"close":[10.5,null,12.5],"volume":[100,null,300]}]}}],"error":null}}`

func TestYahooFetcher_ParsesNullQuotes(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 0, nil)
	f.BaseURL = srv.URL + "/"
	bars, err := f.FetchDailyBars(context.Background(), "^VIX", day(t, "2024-01-02"), day(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "period1=1704153600")
	assert.Contains(t, gotQuery, "period2=1704412800")

	// the all-null session is skipped
	require.Len(t, bars, 2)
	assert.Equal(t, day(t, "2024-01-02"), bars[0].Date)
	assert.Equal(t, null.FloatFrom(10.5), bars[0].Close)
	assert.Equal(t, null.IntFrom(300), bars[1].Volume)
	assert.Equal(t, day(t, "2024-01-04"), bars[1].Date)
}

func TestYahooFetcher_NotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"chart":{"result":null,"error":{"code":"Not Found"}}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 0, nil)
	f.BaseURL = srv.URL + "/"
	bars, err := f.FetchDailyBars(context.Background(), "NOPE", day(t, "2024-01-02"), day(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestVsTraderFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-01-02", r.URL.Query().Get("start"))
		w.Write([]byte(`[
			{"timestamp":1704326400,"open":2,"high":3,"low":1,"close":2.5,"volume":null},
			{"timestamp":1704240000,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10}
		]`))
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "key", "", 0, nil)
	bars, err := f.FetchDailyBars(context.Background(), "SPX500", day(t, "2024-01-02"), day(t, "2024-01-04"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, day(t, "2024-01-03"), bars[0].Date)
	assert.False(t, bars[1].Volume.Valid)
}
