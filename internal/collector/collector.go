package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"StockAnalysis/internal/cleaner"
	"StockAnalysis/internal/model"
)

// BarWriter is the part of the store the collector writes through.
type BarWriter interface {
	Tickers(ctx context.Context) ([]string, error)
	UpsertPriceBars(ctx context.Context, bars []model.PriceBar) (int, error)
}

// Archiver keeps a copy of every cleaned series, e.g. as parquet files.
type Archiver interface {
	WriteBars(ticker string, bars []model.PriceBar) error
}

// Failure records one ticker that could not be ingested.
type Failure struct {
	Ticker string
	Err    error
}

// Report summarises one ingestion run.
type Report struct {
	Start    time.Time
	End      time.Time
	Tickers  int
	Fetched  int
	Inserted int
	Failures []Failure
}

// AllFailed reports whether every attempted ticker failed.
func (r *Report) AllFailed() bool {
	return r.Tickers > 0 && len(r.Failures) == r.Tickers
}

// Collector orchestrates fetch, clean and store for the ticker universe.
type Collector struct {
	Fetcher      Fetcher
	Store        BarWriter
	Interval     Interval
	RequestDelay time.Duration
	Archive      Archiver

	logger *zap.Logger
}

// NewCollector creates a new Collector fetching weekly bars.
func NewCollector(fetcher Fetcher, store BarWriter, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		Fetcher:  fetcher,
		Store:    store,
		Interval: Weekly,
		logger:   logger.With(zap.String("component", "collector")),
	}
}

// Collect ingests [start, end) for every ticker known to the store.
func (c *Collector) Collect(ctx context.Context, start, end time.Time) (*Report, error) {
	tickers, err := c.Store.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	return c.CollectTickers(ctx, tickers, start, end)
}

// CollectTickers ingests [start, end) for tickers. A failing ticker is logged
// and skipped; only cancellation of ctx aborts the run.
func (c *Collector) CollectTickers(ctx context.Context, tickers []string, start, end time.Time) (*Report, error) {
	report := &Report{Start: start, End: end, Tickers: len(tickers)}
	c.logger.Info("collect started",
		zap.Int("tickers", len(tickers)),
		zap.String("start", start.Format(model.DateLayout)),
		zap.String("end", end.Format(model.DateLayout)),
		zap.String("interval", string(c.Interval)))

	for i, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		fetched, inserted, err := c.CollectTicker(ctx, ticker, start, end)
		report.Fetched += fetched
		report.Inserted += inserted
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			c.logger.Warn("ticker skipped", zap.String("ticker", ticker), zap.Error(err))
			report.Failures = append(report.Failures, Failure{Ticker: ticker, Err: err})
		}

		if c.RequestDelay > 0 && i < len(tickers)-1 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(c.RequestDelay):
			}
		}
	}

	c.logger.Info("collect finished",
		zap.Int("tickers", report.Tickers),
		zap.Int("fetched", report.Fetched),
		zap.Int("inserted", report.Inserted),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}

// CollectTicker fetches, cleans and stores one ticker. It returns the number
// of bars fetched and the number newly inserted.
func (c *Collector) CollectTicker(ctx context.Context, ticker string, start, end time.Time) (fetched, inserted int, err error) {
	raw, err := c.Fetcher.FetchBars(ctx, ticker, start, end, c.Interval)
	if err != nil {
		return 0, 0, err
	}
	bars, err := cleaner.Clean(raw, ticker)
	if err != nil {
		return len(raw), 0, err
	}
	if len(bars) == 0 {
		c.logger.Debug("no bars in window", zap.String("ticker", ticker))
		return 0, 0, nil
	}

	inserted, err = c.Store.UpsertPriceBars(ctx, bars)
	if err != nil {
		return len(bars), 0, err
	}
	if c.Archive != nil {
		if err := c.Archive.WriteBars(ticker, bars); err != nil {
			c.logger.Warn("archive write failed", zap.String("ticker", ticker), zap.Error(err))
		}
	}
	c.logger.Debug("ticker stored", zap.String("ticker", ticker), zap.Int("fetched", len(bars)), zap.Int("inserted", inserted))
	return len(bars), inserted, nil
}
