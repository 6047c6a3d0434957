// Package archive keeps weekly price history as files next to the database:
// one parquet file per ticker written during backfills, and yfinance-style
// CSV downloads that can be bulk loaded into the store.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"

	"StockAnalysis/internal/model"
)

const parquetExt = ".parquet"

// barRecord matches the parquet schema of an archived series.
type barRecord struct {
	Ticker string  `parquet:"ticker"`
	Date   string  `parquet:"date"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume int64   `parquet:"volume"`
}

func toRecord(b model.PriceBar) barRecord {
	return barRecord{
		Ticker: b.Ticker,
		Date:   b.Date.Format(model.DateLayout),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

func (r barRecord) toBar() (model.PriceBar, error) {
	d, err := model.ParseDate(r.Date)
	if err != nil {
		return model.PriceBar{}, fmt.Errorf("bad date %q: %w", r.Date, err)
	}
	return model.PriceBar{Ticker: r.Ticker, Date: d, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}, nil
}

// ParquetArchive stores each ticker's series at <Dir>/<TICKER>.parquet.
type ParquetArchive struct {
	Dir string

	mu sync.Mutex
}

// NewParquetArchive returns an archive rooted at dir.
func NewParquetArchive(dir string) *ParquetArchive {
	return &ParquetArchive{Dir: dir}
}

func (a *ParquetArchive) path(ticker string) string {
	return filepath.Join(a.Dir, ticker+parquetExt)
}

// WriteBars merges bars into the ticker's file. Dates already archived keep
// their first value, matching the store's insert-or-ignore policy.
func (a *ParquetArchive) WriteBars(ticker string, bars []model.PriceBar) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	path := a.path(ticker)
	var existing []barRecord
	if _, err := os.Stat(path); err == nil {
		if existing, err = parquet.ReadFile[barRecord](path); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	byDate := make(map[string]barRecord, len(existing)+len(bars))
	for _, r := range existing {
		byDate[r.Date] = r
	}
	for _, b := range bars {
		r := toRecord(b)
		if _, ok := byDate[r.Date]; !ok {
			byDate[r.Date] = r
		}
	}

	records := make([]barRecord, 0, len(byDate))
	for _, r := range byDate {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })

	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ReadBars returns the archived series of ticker, date ascending.
func (a *ParquetArchive) ReadBars(ticker string) ([]model.PriceBar, error) {
	return readParquet(a.path(ticker))
}

func readParquet(path string) ([]model.PriceBar, error) {
	records, err := parquet.ReadFile[barRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	bars := make([]model.PriceBar, 0, len(records))
	for _, r := range records {
		b, err := r.toBar()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		bars = append(bars, b)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// tickerFiles lists files in dir with the given extension, keyed by ticker,
// in ticker order.
func tickerFiles(dir, ext string) ([]string, map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	paths := make(map[string]string)
	var tickers []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		ticker := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if ticker == "" {
			continue
		}
		tickers = append(tickers, ticker)
		paths[ticker] = filepath.Join(dir, e.Name())
	}
	sort.Strings(tickers)
	return tickers, paths, nil
}
