// Package server exposes the cached series, feature table and pivots over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"MarketSeasons/internal/cache"
	"MarketSeasons/internal/collector"
	"MarketSeasons/internal/logging"
	"MarketSeasons/internal/model"
	"MarketSeasons/internal/volatility"
)

// Loader loads cached history, optionally syncing it with the provider first.
type Loader interface {
	Load(ctx context.Context, ticker string, action collector.Action) (*collector.LoadResult, error)
	Series(ctx context.Context, ticker string) (model.PriceSeries, error)
}

// Refresher brings the cached index tickers up to date.
type Refresher interface {
	RefreshIndexes(ctx context.Context) (*collector.RefreshReport, error)
}

// Server serves the JSON API.
type Server struct {
	store         cache.Store
	loader        Loader
	refresher     Refresher
	defaultTicker string
	log           *zap.Logger
	validate      *validator.Validate
}

// New creates a Server. defaultTicker is used for requests without a ticker.
func New(store cache.Store, loader Loader, refresher Refresher, defaultTicker string, logger *zap.Logger) *Server {
	return &Server{
		store:         store,
		loader:        loader,
		refresher:     refresher,
		defaultTicker: defaultTicker,
		log:           logging.OrNop(logger),
		validate:      validator.New(),
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tickers", s.handleTickers)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handlePostSettings)
	mux.HandleFunc("POST /api/data", s.handleData)
	mux.HandleFunc("POST /api/monthly", s.handleMonthly)
	mux.HandleFunc("POST /api/weekday", s.handleWeekday)
	mux.HandleFunc("POST /api/weekday-quarter", s.handleWeekdayQuarter)
	mux.HandleFunc("POST /api/vix", s.handleVix)
	mux.HandleFunc("POST /api/update-indexes", s.handleUpdateIndexes)
	return s.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes {"error": message}.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{"error": message})
}

// writeFailure maps domain errors to a status and a client-facing message.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, collector.ErrNoCachedData):
		WriteError(w, http.StatusNotFound, collector.ErrNoCachedData.Error())
	case errors.Is(err, collector.ErrNoProviderData):
		WriteError(w, http.StatusNotFound, collector.ErrNoProviderData.Error())
	case errors.Is(err, volatility.ErrMissingSeries):
		WriteError(w, http.StatusNotFound, volatility.ErrMissingSeries.Error())
	case errors.Is(err, collector.ErrUnknownAction), errors.As(err, &verrs), errors.Is(err, errBadRequest):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		s.log.Error("request failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

var errBadRequest = errors.New("bad request")

// decode reads an optional JSON body into v and validates it. An empty body
// leaves v at its zero value.
func (s *Server) decode(r *http.Request, v any) error {
	if r.Body != nil {
		err := json.NewDecoder(r.Body).Decode(v)
		if err != nil && !errors.Is(err, io.EOF) {
			return errors.Join(errBadRequest, err)
		}
	}
	return s.validate.Struct(v)
}
