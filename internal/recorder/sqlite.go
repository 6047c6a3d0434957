package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists ingestion runs to a SQLite database. It may share
// the database file with the price store.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the web server keeps reading while a run is recorded.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingest_runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			source       TEXT    NOT NULL,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER NOT NULL,
			window_start TEXT    NOT NULL,
			window_end   TEXT    NOT NULL,
			attempts     INTEGER NOT NULL,
			tickers      INTEGER NOT NULL,
			fetched      INTEGER NOT NULL,
			inserted     INTEGER NOT NULL,
			failed       INTEGER NOT NULL,
			error        TEXT    NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_runs_started ON ingest_runs(started_at)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun inserts run and sets its ID.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *IngestRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.db.ExecContext(ctx, `INSERT INTO ingest_runs
		(source, started_at, finished_at, window_start, window_end, attempts, tickers, fetched, inserted, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Trigger, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.WindowStart, run.WindowEnd,
		run.Attempts, run.Tickers, run.Fetched, run.Inserted, run.Failed, run.Error)
	if err != nil {
		return fmt.Errorf("insert ingest run: %w", err)
	}
	if run.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("ingest run id: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, source, started_at, finished_at, window_start, window_end,
			attempts, tickers, fetched, inserted, failed, error
		FROM ingest_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	defer rows.Close()

	runs := []IngestRun{}
	for rows.Next() {
		var (
			run               IngestRun
			started, finished int64
		)
		if err := rows.Scan(&run.ID, &run.Trigger, &started, &finished, &run.WindowStart, &run.WindowEnd,
			&run.Attempts, &run.Tickers, &run.Fetched, &run.Inserted, &run.Failed, &run.Error); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		run.StartedAt = time.UnixMilli(started).UTC()
		run.FinishedAt = time.UnixMilli(finished).UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
