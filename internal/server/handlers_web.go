package server

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/guregu/null/v6"
	"go.uber.org/zap"

	"StockAnalysis/internal/chart"
	"StockAnalysis/internal/model"
	"StockAnalysis/internal/stocks"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const (
	msgCompanyNotFound       = "Company name not found"
	msgFirstCompanyNotFound  = "First company name not found"
	msgSecondCompanyNotFound = "Second company name not found"
	msgNoDataInRange         = "No data available for the selected range"
	msgNotEnoughData         = "Not enough data to calculate weekly change"
	msgDivisionByZero        = "Cannot calculate percent change from a zero close"

	metricWindow = "window"
	metricWeekly = "weekly"
)

type indexData struct {
	Stocks     []string
	LastUpdate string
	Ranges     []string
}

var rangeChoices = []string{"all", "3months", "6months", "thisyear", "1year", "3year", "5year"}

// handleIndex handles GET /.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	names, err := s.stocks.CompanyNames(r.Context())
	if err != nil {
		s.writeDatabaseError(w, err)
		return
	}
	update, ok, err := s.stocks.LastUpdate(r.Context())
	if err != nil {
		s.writeDatabaseError(w, err)
		return
	}
	lastUpdate := "never"
	if ok {
		lastUpdate = update.Date.Format(model.DateLayout)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, indexData{Stocks: names, LastUpdate: lastUpdate, Ranges: rangeChoices}); err != nil {
		s.logger.Error("render index", zap.Error(err))
	}
}

func (s *Server) writeDatabaseError(w http.ResponseWriter, err error) {
	s.logger.Error("database error", zap.Error(err))
	WriteJSON(w, http.StatusInternalServerError, map[string]string{"Database error": err.Error()})
}

// stockDataResponse is the body of POST /get_stock_data. Exactly one of
// the two metric groups is filled depending on the requested metric.
type stockDataResponse struct {
	Graph         string   `json:"graph"`
	PctChange     float64  `json:"pct_change"`
	Name          string   `json:"name"`
	Ticker        string   `json:"ticker"`
	LastValue     *float64 `json:"last_value,omitempty"`
	LastChange    *float64 `json:"last_change,omitempty"`
	LastWeekValue *float64 `json:"last_week_value,omitempty"`
}

// handleGetStockData handles POST /get_stock_data with form fields
// ticker (a company name), range and optional metric (window or weekly).
func (s *Server) handleGetStockData(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("ticker")
	opt := rangeParam(r.FormValue("range"))
	metric := r.FormValue("metric")
	if metric == "" {
		metric = metricWindow
	}
	if metric != metricWindow && metric != metricWeekly {
		WriteError(w, http.StatusOK, "Unknown metric "+metric)
		return
	}

	company, err := s.stocks.CompanyByName(r.Context(), name)
	if err != nil {
		s.writeFormLookupError(w, err, msgCompanyNotFound)
		return
	}
	window, full, err := s.stocks.Series(r.Context(), company.Ticker, opt)
	if err != nil {
		s.writeFormLookupError(w, err, msgTickerNotFound)
		return
	}
	if len(full) == 0 {
		WriteError(w, http.StatusOK, msgTickerNotFound)
		return
	}

	graph, err := chart.PriceFigure(company.Ticker, window).JSON()
	if err != nil {
		s.logger.Error("encode figure", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	resp := stockDataResponse{Graph: graph, Name: name, Ticker: company.Ticker}

	if metric == metricWeekly {
		wk, err := stocks.SummarizeWeekly(full)
		if err != nil {
			WriteError(w, http.StatusOK, metricErrorMessage(err, msgNotEnoughData))
			return
		}
		resp.PctChange = wk.PctChange
		resp.LastWeekValue = &wk.LastWeekValue
	} else {
		sum, err := stocks.Summarize(window)
		if err != nil {
			WriteError(w, http.StatusOK, metricErrorMessage(err, msgNoDataInRange))
			return
		}
		resp.PctChange = sum.PctChange
		resp.LastValue = &sum.LastValue
		resp.LastChange = &sum.LastChange
	}
	WriteJSON(w, http.StatusOK, resp)
}

// compareSide carries one stock's metrics over the selected range. Metrics
// are null when the range holds no bars.
type compareSide struct {
	Name       string     `json:"name"`
	Ticker     string     `json:"ticker"`
	LastValue  null.Float `json:"last_value"`
	LastChange null.Float `json:"last_change"`
	PctChange  null.Float `json:"pct_change"`
}

type compareResponse struct {
	Graph  string      `json:"graph"`
	First  compareSide `json:"first"`
	Second compareSide `json:"second"`
}

// handleCompareStocks handles POST /compare_stocks with form fields
// first_ticker and second_ticker (company names) and range.
func (s *Server) handleCompareStocks(w http.ResponseWriter, r *http.Request) {
	firstName := r.FormValue("first_ticker")
	secondName := r.FormValue("second_ticker")
	opt := rangeParam(r.FormValue("range"))

	first, err := s.stocks.CompanyByName(r.Context(), firstName)
	if err != nil {
		s.writeFormLookupError(w, err, msgFirstCompanyNotFound)
		return
	}
	second, err := s.stocks.CompanyByName(r.Context(), secondName)
	if err != nil {
		s.writeFormLookupError(w, err, msgSecondCompanyNotFound)
		return
	}

	firstWindow, _, err := s.stocks.Series(r.Context(), first.Ticker, opt)
	if err != nil {
		s.writeFormLookupError(w, err, msgFirstCompanyNotFound)
		return
	}
	secondWindow, _, err := s.stocks.Series(r.Context(), second.Ticker, opt)
	if err != nil {
		s.writeFormLookupError(w, err, msgSecondCompanyNotFound)
		return
	}

	graph, err := chart.CompareFigure(firstName, firstWindow, secondName, secondWindow).JSON()
	if err != nil {
		s.logger.Error("encode figure", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, compareResponse{
		Graph:  graph,
		First:  newCompareSide(first, firstWindow),
		Second: newCompareSide(second, secondWindow),
	})
}

func newCompareSide(c model.Company, window []model.PriceBar) compareSide {
	side := compareSide{Name: c.Name, Ticker: c.Ticker}
	sum, err := stocks.Summarize(window)
	if err != nil {
		return side
	}
	side.LastValue = null.FloatFrom(sum.LastValue)
	side.LastChange = null.FloatFrom(sum.LastChange)
	side.PctChange = null.FloatFrom(sum.PctChange)
	return side
}

// handleChart handles GET /chart/{ticker}?range= and returns a PNG.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")
	if _, err := s.stocks.CompanyByTicker(r.Context(), ticker); err != nil {
		s.writeAPILookupError(w, err, msgTickerNotFound)
		return
	}
	window, _, err := s.stocks.Series(r.Context(), ticker, rangeParam(r.URL.Query().Get("range")))
	if err != nil {
		s.writeAPILookupError(w, err, msgTickerNotFound)
		return
	}
	if len(window) < 2 {
		WriteError(w, http.StatusNotFound, msgNoDataInRange)
		return
	}

	png, err := chart.RenderPNG(ticker, window)
	if err != nil {
		s.logger.Error("render chart", zap.String("ticker", ticker), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Chart rendering failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=60")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// writeFormLookupError answers form endpoints, which always reply 200 with
// an {"error": ...} body the page displays.
func (s *Server) writeFormLookupError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, model.ErrNotFound) {
		WriteError(w, http.StatusOK, notFound)
		return
	}
	s.logger.Error("form lookup", zap.Error(err))
	WriteError(w, http.StatusOK, msgDatabaseDown)
}

func metricErrorMessage(err error, insufficient string) string {
	switch {
	case errors.Is(err, model.ErrInsufficientData):
		return insufficient
	case errors.Is(err, model.ErrDivisionByZero):
		return msgDivisionByZero
	default:
		return err.Error()
	}
}
