package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"StockAnalysis/internal/collector"
	"StockAnalysis/internal/config"
	"StockAnalysis/internal/logging"
	"StockAnalysis/internal/notifier"
	"StockAnalysis/internal/recorder"
	"StockAnalysis/internal/scheduler"
	"StockAnalysis/internal/store"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "stockanalysis",
		Short:         "Weekly S&P 500 price ingestion and analytics web app",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default $CONFIG_PATH or "+config.DefaultPath+")")

	rootCmd.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newScheduleCmd(),
		newLoadCompaniesCmd(),
		newBackfillCmd(),
		newImportCSVCmd(),
		newImportParquetCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.SQLiteStore
	recorder recorder.Recorder
}

// newApp loads config and opens the store and run recorder.
func newApp() (*app, error) {
	cfgPath := configFile
	if cfgPath == "" {
		cfgPath = config.DefaultPath
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			cfgPath = v
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	st := store.NewSQLiteStore(cfg.Database.SQLitePath,
		store.WithQueryTimeout(cfg.Database.QueryTimeout),
		store.WithBusyTimeout(cfg.Database.BusyTimeout),
		store.WithLogger(logger))

	var rec recorder.Recorder
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		rec = recorder.NewNoopRecorder()
	} else {
		rec = sr
	}

	return &app{cfg: cfg, logger: logger, store: st, recorder: rec}, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.logger.Warn("close recorder", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) fetcher() collector.Fetcher {
	if a.cfg.Provider.Name == config.ProviderMock {
		a.logger.Info("data source", zap.String("provider", "mock"))
		return &collector.MockFetcher{Price: 100}
	}
	f := collector.NewYahooFetcher(
		collector.WithBaseURL(a.cfg.Provider.BaseURL),
		collector.WithProxy(a.cfg.Provider.Proxy),
		collector.WithTimeout(a.cfg.Provider.Timeout),
		collector.WithRateLimit(a.cfg.Provider.RateLimit),
	)
	for k, v := range a.cfg.Provider.SymbolMap {
		f.SymbolMap[k] = v
	}
	a.logger.Info("data source", zap.String("provider", f.Name()))
	return f
}

// collector builds the ingestion pipeline. The interval was checked by Validate.
func (a *app) collector() *collector.Collector {
	col := collector.NewCollector(a.fetcher(), a.store, a.logger)
	col.Interval, _ = collector.ParseInterval(a.cfg.Provider.Interval)
	col.RequestDelay = a.cfg.Provider.RequestDelay
	return col
}

func (a *app) notifier() notifier.Notifier {
	if !a.cfg.TelegramEnabled() {
		return notifier.NoopNotifier{}
	}
	return notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Provider.Proxy, a.logger)
}

func (a *app) scheduler(ctx context.Context) *scheduler.Scheduler {
	return scheduler.NewScheduler(ctx, a.collector(), a.notifier(), a.recorder, scheduler.Options{
		Cron:         a.cfg.Ingest.Cron,
		LookbackDays: a.cfg.Ingest.LookbackDays,
		MaxRetries:   a.cfg.Ingest.MaxRetries,
		RetryDelay:   a.cfg.Ingest.RetryDelay,
	}, a.logger)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutdown signal received, stopping", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
