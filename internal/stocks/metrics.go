package stocks

import (
	"StockAnalysis/internal/calculator"
	"StockAnalysis/internal/model"
)

// WindowSummary describes a range-filtered series: its last close and the
// change from the first to the last bar of the window.
type WindowSummary struct {
	LastValue  float64
	LastChange float64
	PctChange  float64
}

// Summarize computes the window metrics. An empty window is
// model.ErrInsufficientData.
func Summarize(window []model.PriceBar) (WindowSummary, error) {
	last, err := calculator.LatestValue(window)
	if err != nil {
		return WindowSummary{}, err
	}
	pct, err := calculator.PercentChange(window)
	if err != nil {
		return WindowSummary{}, err
	}
	return WindowSummary{
		LastValue:  last,
		LastChange: calculator.AbsoluteChange(window),
		PctChange:  pct,
	}, nil
}

// WeeklySummary describes the latest week of a full series.
type WeeklySummary struct {
	LastWeekValue  float64 // close of the newest bar
	LastWeekChange float64
	PctChange      float64
}

// SummarizeWeekly computes the last-two-bars metrics over the full series.
// Fewer than two bars is model.ErrInsufficientData.
func SummarizeWeekly(full []model.PriceBar) (WeeklySummary, error) {
	change, err := calculator.WeeklyChange(full)
	if err != nil {
		return WeeklySummary{}, err
	}
	pct, err := calculator.WeeklyPercentChange(full)
	if err != nil {
		return WeeklySummary{}, err
	}
	return WeeklySummary{
		LastWeekValue:  full[len(full)-1].Close,
		LastWeekChange: change,
		PctChange:      pct,
	}, nil
}
