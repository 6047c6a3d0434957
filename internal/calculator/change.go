package calculator

import (
	"fmt"

	"StockAnalysis/internal/model"
)

// Window metrics operate on an already filtered, date-ascending series and
// compare its last bar with its first. They return 0 for fewer than two bars.

// LatestValue returns the close of the last bar.
func LatestValue(series []model.PriceBar) (float64, error) {
	if len(series) == 0 {
		return 0, fmt.Errorf("latest value: %w", model.ErrInsufficientData)
	}
	return series[len(series)-1].Close, nil
}

// AbsoluteChange returns last close minus first close.
func AbsoluteChange(series []model.PriceBar) float64 {
	if len(series) < 2 {
		return 0
	}
	return series[len(series)-1].Close - series[0].Close
}

// PercentChange returns the change from the first to the last close in percent.
func PercentChange(series []model.PriceBar) (float64, error) {
	if len(series) < 2 {
		return 0, nil
	}
	first := series[0].Close
	if first == 0 {
		return 0, fmt.Errorf("percent change of %s: %w", series[0].Ticker, model.ErrDivisionByZero)
	}
	return (series[len(series)-1].Close - first) / first * 100, nil
}

// Weekly metrics operate on a ticker's full, unfiltered series and compare
// the last two bars. Fewer than two bars is an error.

// WeeklyChange returns last close minus the close one bar earlier.
func WeeklyChange(series []model.PriceBar) (float64, error) {
	if len(series) < 2 {
		return 0, fmt.Errorf("weekly change: %w", model.ErrInsufficientData)
	}
	n := len(series)
	return series[n-1].Close - series[n-2].Close, nil
}

// WeeklyPercentChange returns the last-two-bars change in percent.
func WeeklyPercentChange(series []model.PriceBar) (float64, error) {
	if len(series) < 2 {
		return 0, fmt.Errorf("weekly percent change: %w", model.ErrInsufficientData)
	}
	n := len(series)
	prev := series[n-2].Close
	if prev == 0 {
		return 0, fmt.Errorf("weekly percent change of %s: %w", series[n-2].Ticker, model.ErrDivisionByZero)
	}
	return (series[n-1].Close - prev) / prev * 100, nil
}
