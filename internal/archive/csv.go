package archive

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/guregu/null/v6"

	"StockAnalysis/internal/model"
)

const csvExt = ".csv"

// csvRow is one line of a yfinance history download. Values are kept as
// text so that blank cells surface as missing fields in the cleaner instead
// of failing the whole file in the decoder.
type csvRow struct {
	Date        string `csv:"Date"`
	Open        string `csv:"Open"`
	High        string `csv:"High"`
	Low         string `csv:"Low"`
	Close       string `csv:"Close"`
	Volume      string `csv:"Volume"`
	Dividends   string `csv:"Dividends"`
	StockSplits string `csv:"Stock Splits"`
}

var csvDateLayouts = []string{
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	model.DateLayout,
}

// ReadCSV decodes a yfinance history CSV into raw bars.
func ReadCSV(r io.Reader) ([]model.RawBar, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	bars := make([]model.RawBar, 0, len(rows))
	for i, row := range rows {
		b, err := row.toRaw()
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", i+2, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// ReadCSVFile decodes the CSV at path.
func ReadCSVFile(path string) ([]model.RawBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func (row *csvRow) toRaw() (model.RawBar, error) {
	var b model.RawBar
	date := strings.TrimSpace(row.Date)
	if date != "" {
		t, err := parseCSVDate(date)
		if err != nil {
			return b, err
		}
		b.Time = t
	}

	var err error
	if b.Open, err = parseFloatCell("Open", row.Open); err != nil {
		return b, err
	}
	if b.High, err = parseFloatCell("High", row.High); err != nil {
		return b, err
	}
	if b.Low, err = parseFloatCell("Low", row.Low); err != nil {
		return b, err
	}
	if b.Close, err = parseFloatCell("Close", row.Close); err != nil {
		return b, err
	}
	if b.Volume, err = parseIntCell("Volume", row.Volume); err != nil {
		return b, err
	}

	div, err := parseFloatCell("Dividends", row.Dividends)
	if err != nil {
		return b, err
	}
	split, err := parseFloatCell("Stock Splits", row.StockSplits)
	if err != nil {
		return b, err
	}
	b.Dividends = div.Float64
	b.StockSplits = split.Float64
	return b, nil
}

func parseCSVDate(s string) (time.Time, error) {
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parseFloatCell(field, s string) (null.Float, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Float{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, fmt.Errorf("%s: %w", field, err)
	}
	return null.FloatFrom(v), nil
}

// parseIntCell accepts "1200" and "1200.0", which pandas writes for volume
// columns that once held a NaN.
func parseIntCell(field, s string) (null.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Int{}, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return null.IntFrom(v), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Int{}, fmt.Errorf("%s: %w", field, err)
	}
	return null.IntFrom(int64(f)), nil
}
