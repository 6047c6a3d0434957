package collector

import (
	"context"
	"sync"
	"time"

	"github.com/guregu/null/v6"

	"StockAnalysis/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Tickers listed in Errors fail with the given error; tickers without Bars
// get a generated weekly series inside the requested window.
type MockFetcher struct {
	Price  float64
	Bars   map[string][]model.RawBar
	Errors map[string]error

	mu    sync.Mutex
	Calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, ticker string, start, end time.Time, _ Interval) ([]model.RawBar, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, ticker)
	m.mu.Unlock()

	if err, ok := m.Errors[ticker]; ok {
		return nil, &ProviderError{Provider: m.Name(), Ticker: ticker, Err: err}
	}
	if bars, ok := m.Bars[ticker]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, start, end), nil
}

func generateMockBars(basePrice float64, start, end time.Time) []model.RawBar {
	var bars []model.RawBar
	i := 0
	for t := start; t.Before(end); t = t.AddDate(0, 0, 7) {
		p := basePrice * (1 + float64(i)*0.001)
		bars = append(bars, model.RawBar{
			Time:   t,
			Open:   null.FloatFrom(p * 0.999),
			High:   null.FloatFrom(p * 1.005),
			Low:    null.FloatFrom(p * 0.995),
			Close:  null.FloatFrom(p),
			Volume: null.IntFrom(1000000),
		})
		i++
	}
	return bars
}
