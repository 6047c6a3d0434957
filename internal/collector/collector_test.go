package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalysis/internal/cleaner"
	"StockAnalysis/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	tickers []string
	bars    map[string]model.PriceBar
	listErr error
}

func newMemStore(tickers ...string) *memStore {
	return &memStore{tickers: tickers, bars: map[string]model.PriceBar{}}
}

func (m *memStore) Tickers(context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.tickers, nil
}

func (m *memStore) UpsertPriceBars(_ context.Context, bars []model.PriceBar) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range bars {
		key := b.Ticker + "|" + b.Date.Format(model.DateLayout)
		if _, ok := m.bars[key]; ok {
			continue
		}
		m.bars[key] = b
		n++
	}
	return n, nil
}

type memArchive struct {
	written map[string]int
}

func (a *memArchive) WriteBars(ticker string, bars []model.PriceBar) error {
	if a.written == nil {
		a.written = map[string]int{}
	}
	a.written[ticker] = len(bars)
	return nil
}

var (
	winStart = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	winEnd   = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
)

func TestCollect_IsolatesFailures(t *testing.T) {
	store := newMemStore("AAPL", "BAD", "MSFT")
	fetcher := &MockFetcher{
		Price:  100,
		Errors: map[string]error{"BAD": errors.New("delisted")},
	}
	c := NewCollector(fetcher, store, nil)

	report, err := c.Collect(context.Background(), winStart, winEnd)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Tickers)
	assert.Equal(t, []string{"AAPL", "BAD", "MSFT"}, fetcher.Calls)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "BAD", report.Failures[0].Ticker)
	var perr *ProviderError
	assert.ErrorAs(t, report.Failures[0].Err, &perr)
	assert.False(t, report.AllFailed())

	// 2024-06-01 plus weekly steps before 2024-07-01: 5 bars per ticker.
	assert.Equal(t, 10, report.Fetched)
	assert.Equal(t, 10, report.Inserted)
}

func TestCollect_Idempotent(t *testing.T) {
	store := newMemStore("AAPL")
	c := NewCollector(&MockFetcher{Price: 100}, store, nil)

	first, err := c.Collect(context.Background(), winStart, winEnd)
	require.NoError(t, err)
	second, err := c.Collect(context.Background(), winStart, winEnd)
	require.NoError(t, err)

	assert.Equal(t, 5, first.Inserted)
	assert.Equal(t, 5, second.Fetched)
	assert.Equal(t, 0, second.Inserted)
}

func TestCollect_CleanFailureSkipsTicker(t *testing.T) {
	store := newMemStore("AAPL", "MSFT")
	fetcher := &MockFetcher{
		Price: 100,
		Bars: map[string][]model.RawBar{
			"AAPL": {{Time: winStart, Open: null.FloatFrom(1), High: null.FloatFrom(1), Low: null.FloatFrom(1), Volume: null.IntFrom(1)}},
		},
	}
	c := NewCollector(fetcher, store, nil)

	report, err := c.Collect(context.Background(), winStart, winEnd)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)

	var cerr *cleaner.Error
	require.ErrorAs(t, report.Failures[0].Err, &cerr)
	assert.Equal(t, "Close", cerr.Field)
	assert.Equal(t, 5, report.Inserted)
}

func TestCollect_AllFailed(t *testing.T) {
	boom := errors.New("offline")
	c := NewCollector(&MockFetcher{Errors: map[string]error{"A": boom, "B": boom}}, newMemStore("A", "B"), nil)
	report, err := c.Collect(context.Background(), winStart, winEnd)
	require.NoError(t, err)
	assert.True(t, report.AllFailed())
}

func TestCollect_TickerListError(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("db down")
	c := NewCollector(&MockFetcher{}, store, nil)

	_, err := c.Collect(context.Background(), winStart, winEnd)
	assert.ErrorIs(t, err, store.listErr)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCollector(&MockFetcher{Price: 1}, newMemStore("AAPL"), nil)

	_, err := c.Collect(ctx, winStart, winEnd)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectTicker_Archives(t *testing.T) {
	archive := &memArchive{}
	c := NewCollector(&MockFetcher{Price: 50}, newMemStore("AAPL"), nil)
	c.Archive = archive

	fetched, inserted, err := c.CollectTicker(context.Background(), "AAPL", winStart, winEnd)
	require.NoError(t, err)
	assert.Equal(t, 5, fetched)
	assert.Equal(t, 5, inserted)
	assert.Equal(t, 5, archive.written["AAPL"])
}
