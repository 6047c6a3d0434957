package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"StockAnalysis/internal/model"
)

const (
	defaultQueryTimeout = 10 * time.Second
	defaultBusyTimeout  = 5 * time.Second
)

// SQLiteStore persists companies and price bars to a SQLite database.
// The database is opened and migrated lazily on first use; every operation
// runs on one pooled connection that is released when the operation ends.
type SQLiteStore struct {
	path         string
	queryTimeout time.Duration
	busyTimeout  time.Duration
	logger       *zap.Logger

	mu sync.Mutex
	db *sql.DB
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithQueryTimeout bounds every store operation.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteStore) {
		s.logger = l
	}
}

// NewSQLiteStore returns a store for the database at dbPath. No I/O happens
// until the first operation.
func NewSQLiteStore(dbPath string, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		path:         dbPath,
		queryTimeout: defaultQueryTimeout,
		busyTimeout:  defaultBusyTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// open returns the shared handle, creating and migrating it on first success.
// A failed attempt is not remembered, so the next call retries.
func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		s.path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.db = db
	s.logger.Info("sqlite store opened", zap.String("path", s.path))
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			ticker   TEXT PRIMARY KEY,
			name     TEXT NOT NULL,
			sector   TEXT NOT NULL DEFAULT '',
			industry TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS stock_prize (
			ticker TEXT    NOT NULL REFERENCES companies(ticker),
			date   TEXT    NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume INTEGER NOT NULL CHECK (volume >= 0),
			UNIQUE (ticker, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_prize_date ON stock_prize(date)`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// withConn runs fn on a single connection under the query timeout and wraps
// any failure in *Error.
func (s *SQLiteStore) withConn(ctx context.Context, op string, fn func(context.Context, *sql.Conn) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	db, err := s.open(ctx)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer conn.Close()

	if err := fn(ctx, conn); err != nil {
		return &Error{Op: op, Err: err}
	}
	return nil
}

const (
	insertCompanySQL = `INSERT INTO companies (ticker, name, sector, industry)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ticker) DO NOTHING`
	insertBarSQL = `INSERT INTO stock_prize (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, date) DO NOTHING`
)

// UpsertCompanies inserts companies not yet present and returns how many were
// inserted. Existing rows are left untouched.
func (s *SQLiteStore) UpsertCompanies(ctx context.Context, companies []model.Company) (int, error) {
	var inserted int
	err := s.withConn(ctx, "upsert companies", func(ctx context.Context, conn *sql.Conn) error {
		n, err := execBatch(ctx, conn, insertCompanySQL, len(companies), func(i int) []any {
			c := companies[i]
			return []any{c.Ticker, c.Name, c.Sector, c.Industry}
		})
		inserted = n
		return err
	})
	return inserted, err
}

// UpsertPriceBar inserts one bar in its own commit and reports whether a row
// was written.
func (s *SQLiteStore) UpsertPriceBar(ctx context.Context, bar model.PriceBar) (bool, error) {
	var inserted bool
	err := s.withConn(ctx, "upsert price bar", func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, insertBarSQL, barArgs(bar)...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

// UpsertPriceBars inserts bars in a single transaction and returns how many
// rows were written. Duplicates are skipped, not merged.
func (s *SQLiteStore) UpsertPriceBars(ctx context.Context, bars []model.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	var inserted int
	err := s.withConn(ctx, "upsert price bars", func(ctx context.Context, conn *sql.Conn) error {
		n, err := execBatch(ctx, conn, insertBarSQL, len(bars), func(i int) []any {
			return barArgs(bars[i])
		})
		inserted = n
		return err
	})
	return inserted, err
}

func barArgs(b model.PriceBar) []any {
	return []any{b.Ticker, b.Date.Format(model.DateLayout), b.Open, b.High, b.Low, b.Close, b.Volume}
}

func execBatch(ctx context.Context, conn *sql.Conn, query string, n int, args func(int) []any) (int, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var total int64
	for i := 0; i < n; i++ {
		res, err := stmt.ExecContext(ctx, args(i)...)
		if err != nil {
			return 0, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(total), nil
}

// Tickers returns every registered ticker.
func (s *SQLiteStore) Tickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := s.withConn(ctx, "list tickers", func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT ticker FROM companies ORDER BY ticker`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				return err
			}
			tickers = append(tickers, t)
		}
		return rows.Err()
	})
	return tickers, err
}

func (s *SQLiteStore) AllCompanies(ctx context.Context) ([]model.Company, error) {
	var companies []model.Company
	err := s.withConn(ctx, "all companies", func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT ticker, name, sector, industry FROM companies`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c model.Company
			if err := rows.Scan(&c.Ticker, &c.Name, &c.Sector, &c.Industry); err != nil {
				return err
			}
			companies = append(companies, c)
		}
		return rows.Err()
	})
	return companies, err
}

func (s *SQLiteStore) AllPriceBars(ctx context.Context) ([]model.PriceBar, error) {
	var bars []model.PriceBar
	err := s.withConn(ctx, "all price bars", func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT ticker, date, open, high, low, close, volume
			FROM stock_prize ORDER BY date ASC, ticker ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				b    model.PriceBar
				date string
			)
			if err := rows.Scan(&b.Ticker, &date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
				return err
			}
			if b.Date, err = model.ParseDate(date); err != nil {
				return fmt.Errorf("bad date %q for %s: %w", date, b.Ticker, err)
			}
			bars = append(bars, b)
		}
		return rows.Err()
	})
	return bars, err
}

func (s *SQLiteStore) LatestUpdate(ctx context.Context) (model.LastUpdate, bool, error) {
	var (
		update model.LastUpdate
		found  bool
	)
	err := s.withConn(ctx, "latest update", func(ctx context.Context, conn *sql.Conn) error {
		var date string
		err := conn.QueryRowContext(ctx, `SELECT date, ticker FROM stock_prize
			ORDER BY date DESC, ticker ASC LIMIT 1`).Scan(&date, &update.Ticker)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if update.Date, err = model.ParseDate(date); err != nil {
			return err
		}
		found = true
		return nil
	})
	return update, found, err
}

// Close releases the database handle if it was opened.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	s.logger.Info("closing sqlite store")
	err := s.db.Close()
	s.db = nil
	return err
}
