package model

import (
	"encoding/json"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar date format used for storage and JSON.
const DateLayout = "2006-01-02"

// RawBar is one provider row before normalization. Price and volume fields
// are nullable because providers emit nulls for holidays and halted sessions.
type RawBar struct {
	Time        time.Time
	Open        null.Float
	High        null.Float
	Low         null.Float
	Close       null.Float
	Volume      null.Int
	Dividends   float64
	StockSplits float64
}

// PriceBar is one normalized OHLCV record. (Ticker, Date) is its natural key.
type PriceBar struct {
	Ticker string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

type priceBarJSON struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (b PriceBar) MarshalJSON() ([]byte, error) {
	return json.Marshal(priceBarJSON{
		Ticker: b.Ticker,
		Date:   b.Date.Format(DateLayout),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (b *PriceBar) UnmarshalJSON(data []byte) error {
	var v priceBarJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, v.Date)
	if err != nil {
		return err
	}
	*b = PriceBar{Ticker: v.Ticker, Date: d, Open: v.Open, High: v.High, Low: v.Low, Close: v.Close, Volume: v.Volume}
	return nil
}

// LastUpdate identifies the most recent bar in the store.
type LastUpdate struct {
	Date   time.Time
	Ticker string
}

// DateOf truncates t to its calendar date, expressed as midnight UTC.
// The wall-clock date in t's own location is kept; time-of-day and zone are dropped.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
