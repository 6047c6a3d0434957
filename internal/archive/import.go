package archive

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"StockAnalysis/internal/cleaner"
	"StockAnalysis/internal/model"
)

// BarWriter is the part of the store imports write through.
type BarWriter interface {
	UpsertPriceBars(ctx context.Context, bars []model.PriceBar) (int, error)
}

// FileError records one file that could not be imported.
type FileError struct {
	Ticker string
	Path   string
	Err    error
}

func (e FileError) Error() string { return fmt.Sprintf("%s (%s): %v", e.Ticker, e.Path, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// ImportReport summarises a bulk import.
type ImportReport struct {
	Files    int
	Rows     int
	Inserted int
	Failures []FileError
}

// ImportCSVDir loads every <TICKER>.csv in dir through the cleaner into w.
// A failing file is logged and skipped.
func ImportCSVDir(ctx context.Context, dir string, w BarWriter, logger *zap.Logger) (*ImportReport, error) {
	return importDir(ctx, dir, csvExt, w, logger, func(ticker, path string) ([]model.PriceBar, error) {
		raw, err := ReadCSVFile(path)
		if err != nil {
			return nil, err
		}
		return cleaner.Clean(raw, ticker)
	})
}

// ImportParquetDir loads every <TICKER>.parquet in dir into w.
func ImportParquetDir(ctx context.Context, dir string, w BarWriter, logger *zap.Logger) (*ImportReport, error) {
	return importDir(ctx, dir, parquetExt, w, logger, func(ticker, path string) ([]model.PriceBar, error) {
		bars, err := readParquet(path)
		if err != nil {
			return nil, err
		}
		for i := range bars {
			if bars[i].Ticker == "" {
				bars[i].Ticker = ticker
			}
		}
		return bars, nil
	})
}

func importDir(ctx context.Context, dir, ext string, w BarWriter, logger *zap.Logger,
	read func(ticker, path string) ([]model.PriceBar, error)) (*ImportReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tickers, paths, err := tickerFiles(dir, ext)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	report := &ImportReport{}
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := paths[ticker]
		report.Files++

		bars, err := read(ticker, path)
		if err == nil {
			report.Rows += len(bars)
			var n int
			n, err = w.UpsertPriceBars(ctx, bars)
			report.Inserted += n
		}
		if err != nil {
			logger.Warn("import file skipped", zap.String("file", path), zap.Error(err))
			report.Failures = append(report.Failures, FileError{Ticker: ticker, Path: path, Err: err})
		}
	}

	logger.Info("import finished",
		zap.String("dir", dir),
		zap.Int("files", report.Files),
		zap.Int("rows", report.Rows),
		zap.Int("inserted", report.Inserted),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}
