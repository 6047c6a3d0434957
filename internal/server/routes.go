package server

import "net/http"

// registerRoutes sets up the web app and API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Web app
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /get_stock_data", s.handleGetStockData)
	mux.HandleFunc("POST /compare_stocks", s.handleCompareStocks)
	mux.HandleFunc("GET /chart/{ticker}", s.handleChart)

	// JSON API
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/compare_stocks", s.handleAPICompareStocks)
	mux.HandleFunc("GET /api/ingest_runs", s.handleIngestRuns)
	// Tickers are appended to the path without a separator: /api/stockAAPL.
	mux.HandleFunc("GET /api/", s.handleAPIStock)
}
