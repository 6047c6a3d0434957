package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"StockAnalysis/internal/calculator"
	"StockAnalysis/internal/model"
)

const (
	msgTickerNotFound   = "Stock ticker not found"
	msgTickersNotFound  = "One or both stock tickers not found"
	msgDatabaseDown     = "Data could not be loaded from database"
	stockPathPrefix     = "/api/stock"
	defaultRunsListSize = 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAPIStock handles GET /api/stock<ticker>?range=.
func (s *Server) handleAPIStock(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimPrefix(r.URL.Path, stockPathPrefix)
	if ticker == r.URL.Path || ticker == "" || strings.Contains(ticker, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	if _, err := s.stocks.CompanyByTicker(r.Context(), ticker); err != nil {
		s.writeAPILookupError(w, err, msgTickerNotFound)
		return
	}
	window, _, err := s.stocks.Series(r.Context(), ticker, rangeParam(r.URL.Query().Get("range")))
	if err != nil {
		s.writeAPILookupError(w, err, msgTickerNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(window))
}

// apiCompareResponse is the body of GET /api/compare_stocks.
type apiCompareResponse struct {
	FirstTicker  string           `json:"first_ticker"`
	FirstData    []model.PriceBar `json:"first_data"`
	SecondTicker string           `json:"second_ticker"`
	SecondData   []model.PriceBar `json:"second_data"`
}

// handleAPICompareStocks handles GET /api/compare_stocks?first_ticker=&second_ticker=&range=.
func (s *Server) handleAPICompareStocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	first, second := q.Get("first_ticker"), q.Get("second_ticker")
	opt := rangeParam(q.Get("range"))

	for _, ticker := range []string{first, second} {
		if _, err := s.stocks.CompanyByTicker(r.Context(), ticker); err != nil {
			s.writeAPILookupError(w, err, msgTickersNotFound)
			return
		}
	}

	firstData, _, err := s.stocks.Series(r.Context(), first, opt)
	if err != nil {
		s.writeAPILookupError(w, err, msgTickersNotFound)
		return
	}
	secondData, _, err := s.stocks.Series(r.Context(), second, opt)
	if err != nil {
		s.writeAPILookupError(w, err, msgTickersNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, apiCompareResponse{
		FirstTicker:  first,
		FirstData:    nonNil(firstData),
		SecondTicker: second,
		SecondData:   nonNil(secondData),
	})
}

// handleIngestRuns handles GET /api/ingest_runs?limit=.
func (s *Server) handleIngestRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsListSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.recorder.RecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list ingest runs", zap.Error(err))
		WriteError(w, http.StatusServiceUnavailable, msgDatabaseDown)
		return
	}
	WriteJSON(w, http.StatusOK, runs)
}

// writeAPILookupError maps a not-found lookup to 404 and anything else,
// a store failure, to 503.
func (s *Server) writeAPILookupError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, model.ErrNotFound) {
		WriteError(w, http.StatusNotFound, notFound)
		return
	}
	s.logger.Error("api lookup", zap.Error(err))
	WriteError(w, http.StatusServiceUnavailable, msgDatabaseDown)
}

// rangeParam defaults a missing range to "all".
func rangeParam(v string) string {
	if v == "" {
		return calculator.RangeAll
	}
	return v
}

func nonNil(bars []model.PriceBar) []model.PriceBar {
	if bars == nil {
		return []model.PriceBar{}
	}
	return bars
}
