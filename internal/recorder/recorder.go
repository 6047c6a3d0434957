// Package recorder keeps a history of ingestion runs for later inspection.
package recorder

import (
	"context"
	"time"
)

// Run triggers.
const (
	TriggerCron     = "cron"
	TriggerManual   = "manual"
	TriggerBackfill = "backfill"
)

// IngestRun is one ingestion run as it finished.
type IngestRun struct {
	ID          int64     `json:"id"`
	Trigger     string    `json:"trigger"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	WindowStart string    `json:"window_start"`
	WindowEnd   string    `json:"window_end"`
	Attempts    int       `json:"attempts"`
	Tickers     int       `json:"tickers"`
	Fetched     int       `json:"fetched"`
	Inserted    int       `json:"inserted"`
	Failed      int       `json:"failed"`
	Error       string    `json:"error,omitempty"`
}

// Recorder persists ingestion history.
type Recorder interface {
	RecordRun(ctx context.Context, run *IngestRun) error
	// RecentRuns returns at most limit runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]IngestRun, error)
	Close() error
}
