// Package store persists companies and weekly price bars.
package store

import (
	"context"
	"fmt"

	"StockAnalysis/internal/model"
)

// Error wraps any connectivity or query failure of the store.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Writer is the ingestion side of the store. Inserts ignore rows whose
// natural key already exists.
type Writer interface {
	UpsertCompanies(ctx context.Context, companies []model.Company) (int, error)
	UpsertPriceBar(ctx context.Context, bar model.PriceBar) (bool, error)
	UpsertPriceBars(ctx context.Context, bars []model.PriceBar) (int, error)
	Tickers(ctx context.Context) ([]string, error)
}

// Reader is the query side of the store.
type Reader interface {
	AllCompanies(ctx context.Context) ([]model.Company, error)
	// AllPriceBars returns every bar ordered by date ascending.
	AllPriceBars(ctx context.Context) ([]model.PriceBar, error)
	// LatestUpdate reports the most recent bar; ok is false on an empty store.
	LatestUpdate(ctx context.Context) (update model.LastUpdate, ok bool, err error)
}

// Store combines both sides.
type Store interface {
	Writer
	Reader
	Close() error
}
