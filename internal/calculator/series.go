package calculator

import (
	"sort"
	"time"

	"StockAnalysis/internal/model"
)

// ForTicker returns a copy of the bars belonging to ticker, in input order.
func ForTicker(bars []model.PriceBar, ticker string) []model.PriceBar {
	out := make([]model.PriceBar, 0)
	for _, b := range bars {
		if b.Ticker == ticker {
			out = append(out, b)
		}
	}
	return out
}

// SortByDate orders series by date ascending in place. Bars on the same date
// keep their relative order.
func SortByDate(series []model.PriceBar) {
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
}

// Query selects ticker's bars from all, applies the range option and returns
// them date ascending. The order is re-established after filtering rather
// than assumed from the input.
func Query(all []model.PriceBar, ticker, option string, now time.Time) []model.PriceBar {
	series := FilterByRange(ForTicker(all, ticker), option, now)
	SortByDate(series)
	return series
}

// Closes extracts the closing prices of series.
func Closes(series []model.PriceBar) []float64 {
	closes := make([]float64, len(series))
	for i, b := range series {
		closes[i] = b.Close
	}
	return closes
}
