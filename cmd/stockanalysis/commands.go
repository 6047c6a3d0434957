package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"StockAnalysis/internal/archive"
	"StockAnalysis/internal/cache"
	"StockAnalysis/internal/collector"
	"StockAnalysis/internal/model"
	"StockAnalysis/internal/recorder"
	"StockAnalysis/internal/registry"
	"StockAnalysis/internal/server"
	"StockAnalysis/internal/stocks"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var withSchedule bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web app and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(a.logger)
			defer cancel()

			if withSchedule {
				sched := a.scheduler(ctx)
				if err := sched.Register(); err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
			}

			svc := stocks.NewService(a.store, cache.New(),
				stocks.WithTTL(a.cfg.Cache.TTL),
				stocks.WithLogger(a.logger))
			srv := server.NewServer(svc, a.recorder, server.Options{
				Addr:         a.cfg.Server.Addr,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
				IdleTimeout:  a.cfg.Server.IdleTimeout,
			}, a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("web server: %w", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancelShutdown()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("web server shutdown", zap.Error(err))
				}
			}
			a.logger.Info("stockanalysis stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSchedule, "schedule", false, "Also run the weekly ingestion scheduler in-process")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var (
		date string
		days int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion window now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if days > 0 {
				a.cfg.Ingest.LookbackDays = days
			}
			runDate := time.Now()
			if date != "" {
				if runDate, err = model.ParseDate(date); err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}

			ctx, cancel := signalContext(a.logger)
			defer cancel()

			report, err := a.scheduler(ctx).RunForDate(ctx, runDate, recorder.TriggerManual)
			if report != nil {
				printReport(cmd, report)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Run date (YYYY-MM-DD), default today")
	cmd.Flags().IntVar(&days, "days", 0, "Lookback days, overrides ingest.lookback_days")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run only the weekly ingestion scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(a.logger)
			defer cancel()

			sched := a.scheduler(ctx)
			if err := sched.Register(); err != nil {
				return err
			}
			sched.Start()
			if runNow {
				go func() {
					if _, err := sched.RunWeeklyNow(); err != nil {
						a.logger.Error("startup ingest failed", zap.Error(err))
					}
				}()
			}
			a.logger.Info("scheduler running, press Ctrl+C to stop", zap.String("cron", a.cfg.Ingest.Cron))
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Also run one ingestion immediately on start")
	return cmd
}

func newLoadCompaniesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "load-companies",
		Short: "Load the ticker registry into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if file == "" {
				file = a.cfg.Registry.CompaniesFile
			}
			parsed, inserted, err := registry.Load(context.Background(), file, a.store, a.logger)
			if err != nil {
				return err
			}
			cmd.Printf("%d companies parsed, %d new\n", parsed, inserted)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Companies JSON file, default registry.companies_file")
	return cmd
}

func newBackfillCmd() *cobra.Command {
	var (
		start, end  string
		withArchive bool
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fetch the full weekly history of every registered ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			from, err := a.cfg.BackfillStartDate()
			if start != "" {
				from, err = model.ParseDate(start)
			}
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to := model.DateOf(time.Now())
			if end != "" {
				if to, err = model.ParseDate(end); err != nil {
					return fmt.Errorf("--end: %w", err)
				}
			}
			if from.After(to) {
				return fmt.Errorf("start %s is after end %s", from.Format(model.DateLayout), to.Format(model.DateLayout))
			}
			// end is inclusive on the command line
			to = to.AddDate(0, 0, 1)

			ctx, cancel := signalContext(a.logger)
			defer cancel()

			col := a.collector()
			if withArchive {
				col.Archive = archive.NewParquetArchive(a.cfg.Archive.Dir)
			}

			startedAt := time.Now()
			report, err := col.Collect(ctx, from, to)
			recordBackfill(a, startedAt, from, to, report, err)
			if report != nil {
				printReport(cmd, report)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First date (YYYY-MM-DD), default ingest.backfill_start")
	cmd.Flags().StringVar(&end, "end", "", "Last date (YYYY-MM-DD), default today")
	cmd.Flags().BoolVar(&withArchive, "archive", false, "Also write bars to parquet files under archive.dir")
	return cmd
}

func recordBackfill(a *app, startedAt, from, to time.Time, report *collector.Report, runErr error) {
	run := &recorder.IngestRun{
		Trigger:     recorder.TriggerBackfill,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		WindowStart: from.Format(model.DateLayout),
		WindowEnd:   to.Format(model.DateLayout),
		Attempts:    1,
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
	if err := a.recorder.RecordRun(context.Background(), run); err != nil {
		a.logger.Error("record backfill run", zap.Error(err))
	}
}

func newImportCSVCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import-csv",
		Short: "Import <TICKER>.csv price history files from a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, dir, archive.ImportCSVDir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory of CSV files")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newImportParquetCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import-parquet",
		Short: "Import <TICKER>.parquet archive files from a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, dir, archive.ImportParquetDir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory of parquet files, default archive.dir")
	return cmd
}

type importFunc func(ctx context.Context, dir string, w archive.BarWriter, logger *zap.Logger) (*archive.ImportReport, error)

func runImport(cmd *cobra.Command, dir string, importDir importFunc) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if dir == "" {
		dir = a.cfg.Archive.Dir
	}
	ctx, cancel := signalContext(a.logger)
	defer cancel()

	report, err := importDir(ctx, dir, a.store, a.logger)
	if err != nil {
		return err
	}
	cmd.Printf("%d files, %d rows, %d new, %d failed\n",
		report.Files, report.Rows, report.Inserted, len(report.Failures))
	for _, f := range report.Failures {
		cmd.Printf("  %s\n", f.Error())
	}
	return nil
}

func printReport(cmd *cobra.Command, r *collector.Report) {
	cmd.Printf("%s..%s: %d tickers, %d bars fetched, %d new, %d failed\n",
		r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout),
		r.Tickers, r.Fetched, r.Inserted, len(r.Failures))
	for _, f := range r.Failures {
		cmd.Printf("  %s: %v\n", f.Ticker, f.Err)
	}
}
