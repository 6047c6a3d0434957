package collector

import (
	"context"
	"fmt"
	"time"

	"StockAnalysis/internal/model"
)

// Interval is the bar granularity requested from a provider.
type Interval string

const (
	Daily  Interval = "1d"
	Weekly Interval = "1wk"
)

// ParseInterval validates s as an Interval.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case Daily, Weekly:
		return Interval(s), nil
	}
	return "", fmt.Errorf("unsupported interval %q (want 1d or 1wk)", s)
}

// Fetcher defines the interface for fetching market data.
// FetchBars returns the bars in [start, end) in ascending time order.
type Fetcher interface {
	FetchBars(ctx context.Context, ticker string, start, end time.Time, interval Interval) ([]model.RawBar, error)
	Name() string
}

// ProviderError reports a failed fetch for one ticker.
type ProviderError struct {
	Provider string
	Ticker   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s fetch %s: %v", e.Provider, e.Ticker, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
