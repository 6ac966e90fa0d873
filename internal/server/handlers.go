package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guregu/null/v6"
	"go.uber.org/zap"

	"MarketSeasons/internal/cache"
	"MarketSeasons/internal/collector"
	"MarketSeasons/internal/features"
	"MarketSeasons/internal/model"
	"MarketSeasons/internal/pivot"
	"MarketSeasons/internal/table"
	"MarketSeasons/internal/volatility"
)

type tickerRequest struct {
	Ticker string `json:"ticker" validate:"max=32"`
}

type dataRequest struct {
	Ticker  string `json:"ticker" validate:"max=32"`
	Action  string `json:"action" validate:"omitempty,oneof=cached new update"`
	RawOnly bool   `json:"raw_only"`
}

type tableResponse struct {
	Ticker         string   `json:"ticker,omitempty"`
	ResolvedTicker string   `json:"resolved_ticker,omitempty"`
	Columns        []string `json:"columns"`
	Rows           [][]any  `json:"rows"`
}

type dataResponse struct {
	tableResponse
	Downloaded bool        `json:"downloaded"`
	Message    null.String `json:"message"`
}

func newTableResponse(raw, resolved string, t *table.Table) tableResponse {
	return tableResponse{Ticker: raw, ResolvedTicker: resolved, Columns: t.Columns, Rows: t.Rows}
}

func (s *Server) tickerOrDefault(t string) string {
	if t == "" {
		return s.defaultTicker
	}
	return t
}

// rememberTicker stores the ticker as typed by the user.
func (s *Server) rememberTicker(r *http.Request, ticker string) {
	if err := s.store.SetSetting(r.Context(), cache.SettingLastTicker, ticker); err != nil {
		s.log.Warn("store last ticker", zap.String("ticker", ticker), zap.Error(err))
	}
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	def, err := s.store.Setting(r.Context(), cache.SettingLastTicker)
	if errors.Is(err, cache.ErrSettingNotFound) {
		def, err = s.defaultTicker, nil
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	tickers, err := s.store.Tickers(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if len(tickers) == 0 {
		tickers = []string{"^GSPC"}
	}
	found := false
	for _, t := range tickers {
		if t == def {
			found = true
			break
		}
	}
	if def != "" && !found {
		tickers = append([]string{def}, tickers...)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"default_ticker": def, "tickers": tickers})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.Setting(r.Context(), cache.SettingGraphSettings)
	var out null.String
	switch {
	case errors.Is(err, cache.ErrSettingNotFound):
	case err != nil:
		s.writeFailure(w, err)
		return
	default:
		out = null.StringFrom(v)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"graph_settings": out})
}

func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GraphSettings json.RawMessage `json:"graph_settings"`
	}
	if err := s.decode(r, &req); err != nil {
		s.writeFailure(w, err)
		return
	}
	if raw := bytes.TrimSpace(req.GraphSettings); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		// strings are stored verbatim, anything else as compact JSON
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			var buf bytes.Buffer
			if err := json.Compact(&buf, raw); err != nil {
				s.writeFailure(w, errors.Join(errBadRequest, err))
				return
			}
			value = buf.String()
		}
		if err := s.store.SetSetting(r.Context(), cache.SettingGraphSettings, value); err != nil {
			s.writeFailure(w, err)
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if err := s.decode(r, &req); err != nil {
		s.writeFailure(w, err)
		return
	}
	action, err := collector.ParseAction(req.Action)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	raw := s.tickerOrDefault(req.Ticker)
	s.rememberTicker(r, raw)

	res, err := s.loader.Load(r.Context(), raw, action)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	var t *table.Table
	if req.RawOnly {
		t = table.Raw(res.Series)
	} else if t, err = features.Table(features.Compute(res.Series)); err != nil {
		s.writeFailure(w, err)
		return
	}

	resp := dataResponse{
		tableResponse: newTableResponse(raw, res.Ticker, t),
		Downloaded:    res.Downloaded,
	}
	if res.Message != "" {
		resp.Message = null.StringFrom(res.Message)
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	s.servePivot(w, r, pivot.Monthly)
}

func (s *Server) handleWeekday(w http.ResponseWriter, r *http.Request) {
	s.servePivot(w, r, pivot.Weekday)
}

func (s *Server) handleWeekdayQuarter(w http.ResponseWriter, r *http.Request) {
	s.servePivot(w, r, pivot.WeekdayByQuarter)
}

func (s *Server) servePivot(w http.ResponseWriter, r *http.Request, build func(model.PriceSeries) *pivot.Table) {
	var req tickerRequest
	if err := s.decode(r, &req); err != nil {
		s.writeFailure(w, err)
		return
	}
	raw := s.tickerOrDefault(req.Ticker)
	s.rememberTicker(r, raw)

	series, err := s.loader.Series(r.Context(), raw)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newTableResponse(raw, collector.NormalizeTicker(raw), build(series).Table()))
}

func (s *Server) handleVix(w http.ResponseWriter, r *http.Request) {
	set := make(map[string]model.PriceSeries, len(volatility.Indexes))
	for _, ticker := range volatility.Tickers() {
		series, err := s.store.Bars(r.Context(), ticker, cache.Range{})
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		set[ticker] = series
	}
	t, err := volatility.TermStructure(set)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newTableResponse("", "", t))
}

func (s *Server) handleUpdateIndexes(w http.ResponseWriter, r *http.Request) {
	report, err := s.refresher.RefreshIndexes(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}
