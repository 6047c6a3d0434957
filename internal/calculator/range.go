package calculator

import (
	"time"

	"StockAnalysis/internal/model"
)

// Symbolic range options accepted by FilterByRange.
const (
	Range3Months = "3months"
	Range6Months = "6months"
	RangeYTD     = "thisyear"
	Range1Year   = "1year"
	Range3Years  = "3year"
	Range5Years  = "5year"
	RangeAll     = "all"
)

var rangeDays = map[string]int{
	Range3Months: 90,
	Range6Months: 180,
	Range1Year:   365,
	Range3Years:  1095,
	Range5Years:  1825,
}

// WindowStart returns the first calendar date included by option relative to
// now. ok is false for options that do not filter, including "all" and any
// unknown value.
func WindowStart(option string, now time.Time) (start time.Time, ok bool) {
	today := model.DateOf(now)
	if option == RangeYTD {
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	days, ok := rangeDays[option]
	if !ok {
		return time.Time{}, false
	}
	return today.AddDate(0, 0, -days), true
}

// FilterByRange keeps bars dated from the window start through today, both
// inclusive. Options without a window return series itself, unmodified.
func FilterByRange(series []model.PriceBar, option string, now time.Time) []model.PriceBar {
	start, ok := WindowStart(option, now)
	if !ok {
		return series
	}
	today := model.DateOf(now)

	filtered := make([]model.PriceBar, 0, len(series))
	for _, b := range series {
		if b.Date.Before(start) || b.Date.After(today) {
			continue
		}
		filtered = append(filtered, b)
	}
	return filtered
}
