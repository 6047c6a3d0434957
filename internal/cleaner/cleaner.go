// Package cleaner turns raw provider rows into canonical price bars.
//
// Prices are rounded to 2 decimal places half away from zero, applied to the
// shortest decimal representation of the float: 150.005 becomes 150.01 and
// 150.004 becomes 150.00. Dividends and stock splits are dropped.
package cleaner

import (
	"fmt"
	"math"
	"strings"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"StockAnalysis/internal/model"
)

// Error reports a row that cannot be normalized.
type Error struct {
	Ticker string
	Row    int
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("clean %s: %s", e.Ticker, e.Reason)
	}
	return fmt.Sprintf("clean %s: row %d: %s %s", e.Ticker, e.Row, e.Field, e.Reason)
}

// RoundPrice rounds v to 2 decimal places.
func RoundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Clean normalizes raw into price bars for ticker. The result keeps the input
// order. Any row with an absent or non-finite price, or an absent or negative
// volume, fails the whole batch.
func Clean(raw []model.RawBar, ticker string) ([]model.PriceBar, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, &Error{Reason: "empty ticker"}
	}

	bars := make([]model.PriceBar, 0, len(raw))
	for i, r := range raw {
		if r.Time.IsZero() {
			return nil, &Error{Ticker: ticker, Row: i, Field: "Date", Reason: "is missing"}
		}
		open, err := price(ticker, i, "Open", r.Open)
		if err != nil {
			return nil, err
		}
		high, err := price(ticker, i, "High", r.High)
		if err != nil {
			return nil, err
		}
		low, err := price(ticker, i, "Low", r.Low)
		if err != nil {
			return nil, err
		}
		closePrice, err := price(ticker, i, "Close", r.Close)
		if err != nil {
			return nil, err
		}
		if !r.Volume.Valid {
			return nil, &Error{Ticker: ticker, Row: i, Field: "Volume", Reason: "is missing"}
		}
		if r.Volume.Int64 < 0 {
			return nil, &Error{Ticker: ticker, Row: i, Field: "Volume", Reason: "is negative"}
		}

		bars = append(bars, model.PriceBar{
			Ticker: ticker,
			Date:   model.DateOf(r.Time),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: r.Volume.Int64,
		})
	}
	return bars, nil
}

func price(ticker string, row int, field string, v null.Float) (float64, error) {
	if !v.Valid {
		return 0, &Error{Ticker: ticker, Row: row, Field: field, Reason: "is missing"}
	}
	if math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return 0, &Error{Ticker: ticker, Row: row, Field: field, Reason: "is not finite"}
	}
	return RoundPrice(v.Float64), nil
}
