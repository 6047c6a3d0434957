package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StockAnalysis/internal/collector"
	"StockAnalysis/internal/logging"
	"StockAnalysis/internal/model"
	"StockAnalysis/internal/notifier"
	"StockAnalysis/internal/recorder"
)

// Ingester runs one ingestion window over the ticker universe.
type Ingester interface {
	Collect(ctx context.Context, start, end time.Time) (*collector.Report, error)
}

// Options controls the weekly ingestion job.
type Options struct {
	Cron         string        // six-field spec with seconds, e.g. "0 0 10 * * 5"
	LookbackDays int           // window start relative to the run date
	MaxRetries   int           // extra attempts after a failed run
	RetryDelay   time.Duration // wait between attempts
}

// ErrAllTickersFailed marks a run in which no ticker could be ingested.
var ErrAllTickersFailed = errors.New("every ticker failed")

// Scheduler manages the cron-driven ingestion job.
type Scheduler struct {
	Cron     *cron.Cron
	Ingester Ingester
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Ctx      context.Context

	opts   Options
	now    func() time.Time
	logger *zap.Logger
}

// NewScheduler creates a new Scheduler. Overlapping runs are skipped and
// panics inside a run are recovered and logged.
func NewScheduler(ctx context.Context, ing Ingester, n notifier.Notifier, rec recorder.Recorder, opts Options, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	cl := logging.CronLogger(logger)
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Ingester: ing,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With(zap.String("component", "scheduler")),
	}
}

// Register adds the weekly ingestion job.
func (s *Scheduler) Register() error {
	if _, err := s.Cron.AddFunc(s.opts.Cron, s.weeklyTask); err != nil {
		return fmt.Errorf("register ingest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.String("cron", s.opts.Cron))
}

// Stop stops the cron scheduler and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunWeeklyNow executes the ingestion job immediately for today.
func (s *Scheduler) RunWeeklyNow() (*collector.Report, error) {
	return s.RunForDate(s.Ctx, s.now(), recorder.TriggerManual)
}

func (s *Scheduler) weeklyTask() {
	if _, err := s.RunForDate(s.Ctx, s.now(), recorder.TriggerCron); err != nil {
		s.logger.Error("weekly ingest failed", zap.Error(err))
	}
}

// Window returns the half-open ingestion window for a run on date:
// [date - LookbackDays, date + 1 day).
func (s *Scheduler) Window(date time.Time) (start, end time.Time) {
	day := model.DateOf(date)
	return day.AddDate(0, 0, -s.opts.LookbackDays), day.AddDate(0, 0, 1)
}

// RunForDate ingests the window of date, retrying up to MaxRetries times
// when the run errors or every ticker fails. The outcome is recorded and
// sent to the notifier.
func (s *Scheduler) RunForDate(ctx context.Context, date time.Time, trigger string) (*collector.Report, error) {
	start, end := s.Window(date)
	startedAt := s.now()
	s.logger.Info("running weekly ingest",
		zap.String("trigger", trigger),
		zap.String("start", start.Format(model.DateLayout)),
		zap.String("end", end.Format(model.DateLayout)))

	var (
		report   *collector.Report
		err      error
		attempts int
	)
	for attempts = 1; ; attempts++ {
		report, err = s.Ingester.Collect(ctx, start, end)
		if err == nil && report.AllFailed() {
			err = ErrAllTickersFailed
		}
		if err == nil || ctx.Err() != nil || attempts > s.opts.MaxRetries {
			break
		}
		s.logger.Warn("ingest attempt failed",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", s.opts.MaxRetries+1),
			zap.Duration("retry_in", s.opts.RetryDelay),
			zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(s.opts.RetryDelay):
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.record(ctx, trigger, startedAt, start, end, attempts, report, err)

	var msg string
	if report != nil {
		msg = notifier.FormatIngestReport(report, attempts)
	} else {
		msg = notifier.FormatIngestFailure(err, attempts)
	}
	if nerr := s.Notifier.Notify(ctx, msg); nerr != nil {
		s.logger.Error("send notification", zap.Error(nerr))
	}

	if err != nil {
		return report, fmt.Errorf("ingest %s..%s after %d attempt(s): %w",
			start.Format(model.DateLayout), end.Format(model.DateLayout), attempts, err)
	}
	return report, nil
}

func (s *Scheduler) record(ctx context.Context, trigger string, startedAt, start, end time.Time, attempts int, report *collector.Report, runErr error) {
	run := &recorder.IngestRun{
		Trigger:     trigger,
		StartedAt:   startedAt,
		FinishedAt:  s.now(),
		WindowStart: start.Format(model.DateLayout),
		WindowEnd:   end.Format(model.DateLayout),
		Attempts:    attempts,
	}
	if report != nil {
		run.Tickers = report.Tickers
		run.Fetched = report.Fetched
		run.Inserted = report.Inserted
		run.Failed = len(report.Failures)
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// The run context may already be cancelled; the record is still wanted.
	if err := s.Recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error("record ingest run", zap.Error(err))
	}
}
