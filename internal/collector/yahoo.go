package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"golang.org/x/time/rate"

	"StockAnalysis/internal/model"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	DefaultYahooTimeout = 30 * time.Second
	DefaultYahooRate    = 2 // requests per second
)

// YahooFetcher implements Fetcher using Yahoo Finance public chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal ticker to Yahoo symbol

	limiter *rate.Limiter
}

// YahooOption configures a YahooFetcher.
type YahooOption func(*YahooFetcher)

// WithBaseURL points the fetcher at another chart endpoint.
func WithBaseURL(baseURL string) YahooOption {
	return func(f *YahooFetcher) {
		if baseURL != "" {
			f.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithProxy routes requests through proxyURL.
func WithProxy(proxyURL string) YahooOption {
	return func(f *YahooFetcher) {
		if proxyURL == "" {
			return
		}
		if u, err := url.Parse(proxyURL); err == nil {
			f.Client.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
		}
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) YahooOption {
	return func(f *YahooFetcher) {
		if timeout > 0 {
			f.Client.Timeout = timeout
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the limit.
func WithRateLimit(requestsPerSecond float64) YahooOption {
	return func(f *YahooFetcher) {
		if requestsPerSecond <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts ...YahooOption) *YahooFetcher {
	f := &YahooFetcher{
		BaseURL:   DefaultYahooBaseURL,
		Client:    &http.Client{Timeout: DefaultYahooTimeout},
		SymbolMap: map[string]string{},
		limiter:   rate.NewLimiter(rate.Limit(DefaultYahooRate), DefaultYahooRate),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooSymbol maps share-class dots to Yahoo's dash form (BRK.B -> BRK-B)
// unless SymbolMap overrides the ticker.
func (f *YahooFetcher) yahooSymbol(ticker string) string {
	if mapped, ok := f.SymbolMap[ticker]; ok {
		return mapped
	}
	return strings.ReplaceAll(ticker, ".", "-")
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				GMTOffset            int    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp []int64 `json:"timestamp"`
			Events    struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
				Splits map[string]struct {
					Date        int64   `json:"date"`
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
				} `json:"splits"`
			} `json:"events"`
			Indicators struct {
				Quote []struct {
					Open   []null.Float `json:"open"`
					High   []null.Float `json:"high"`
					Low    []null.Float `json:"low"`
					Close  []null.Float `json:"close"`
					Volume []null.Int   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchBars downloads bars for ticker in [start, end). Bar times carry the
// exchange's time zone so that their calendar date matches the trading day.
func (f *YahooFetcher) FetchBars(ctx context.Context, ticker string, start, end time.Time, interval Interval) ([]model.RawBar, error) {
	bars, err := f.fetchChart(ctx, ticker, start, end, interval)
	if err != nil {
		return nil, &ProviderError{Provider: f.Name(), Ticker: ticker, Err: err}
	}
	return bars, nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, ticker string, start, end time.Time, interval Interval) ([]model.RawBar, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("empty window %s..%s", start.Format(model.DateLayout), end.Format(model.DateLayout))
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("interval", string(interval))
	params.Set("events", "div|split")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(ticker)), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
		}
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, errors.New("yahoo: no result returned")
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		// Valid ticker with no trading in the window.
		return []model.RawBar{}, nil
	}

	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)
	quote := result.Indicators.Quote[0]
	bars := make([]model.RawBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		b := model.RawBar{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   floatAt(quote.Open, i),
			High:   floatAt(quote.High, i),
			Low:    floatAt(quote.Low, i),
			Close:  floatAt(quote.Close, i),
			Volume: intAt(quote.Volume, i),
		}
		// Holidays come back all null and the unfinished current week can
		// miss single fields; neither is a usable bar.
		if !b.Open.Valid || !b.High.Valid || !b.Low.Valid || !b.Close.Valid || !b.Volume.Valid {
			continue
		}
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	for _, d := range result.Events.Dividends {
		if i := barAtOrBefore(bars, d.Date); i >= 0 {
			bars[i].Dividends += d.Amount
		}
	}
	for _, s := range result.Events.Splits {
		if s.Denominator == 0 {
			continue
		}
		if i := barAtOrBefore(bars, s.Date); i >= 0 {
			bars[i].StockSplits = s.Numerator / s.Denominator
		}
	}
	return bars, nil
}

func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", gmtOffset)
}

func floatAt(values []null.Float, i int) null.Float {
	if i < len(values) {
		return values[i]
	}
	return null.Float{}
}

func intAt(values []null.Int, i int) null.Int {
	if i < len(values) {
		return values[i]
	}
	return null.Int{}
}

// barAtOrBefore returns the index of the last bar starting at or before ts, or -1.
func barAtOrBefore(bars []model.RawBar, ts int64) int {
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Time.Unix() > ts })
	return i - 1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
