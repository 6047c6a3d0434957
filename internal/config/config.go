package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockAnalysis/internal/collector"
	"StockAnalysis/internal/model"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// DefaultMaxRetries is the retry count when ingest.max_retries is absent.
// An explicit 0 disables retries.
const DefaultMaxRetries = 5

// Providers accepted in provider.name.
const (
	ProviderYahoo = "yahoo"
	ProviderMock  = "mock"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`
	Database struct {
		SQLitePath   string        `yaml:"sqlite_path"`
		QueryTimeout time.Duration `yaml:"query_timeout"`
		BusyTimeout  time.Duration `yaml:"busy_timeout"`
	} `yaml:"database"`
	Provider struct {
		Name         string            `yaml:"name"`
		BaseURL      string            `yaml:"base_url"`
		Proxy        string            `yaml:"proxy"`
		Timeout      time.Duration     `yaml:"timeout"`
		RateLimit    float64           `yaml:"rate_limit"`
		Interval     string            `yaml:"interval"`
		RequestDelay time.Duration     `yaml:"request_delay"`
		SymbolMap    map[string]string `yaml:"symbol_map"`
	} `yaml:"provider"`
	Ingest struct {
		Cron          string        `yaml:"cron"`
		LookbackDays  int           `yaml:"lookback_days"`
		MaxRetries    int           `yaml:"max_retries"`
		RetryDelay    time.Duration `yaml:"retry_delay"`
		BackfillStart string        `yaml:"backfill_start"`
	} `yaml:"ingest"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Registry struct {
		CompaniesFile string `yaml:"companies_file"`
	} `yaml:"registry"`
	Archive struct {
		Dir string `yaml:"dir"`
	} `yaml:"archive"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads .env and the YAML file at path, then applies environment
// variable overrides and defaults. Missing files are not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	cfg.Ingest.MaxRetries = DefaultMaxRetries

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Environment variable overrides
func (c *Config) applyEnv() error {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Provider.Proxy = v
	}
	if v := os.Getenv("CRON_INGEST"); v != "" {
		c.Ingest.Cron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("COMPANIES_FILE"); v != "" {
		c.Registry.CompaniesFile = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.Cache.TTL = ttl
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/stockanalysis.db"
	}
	if c.Database.QueryTimeout == 0 {
		c.Database.QueryTimeout = 30 * time.Second
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = 5 * time.Second
	}
	if c.Provider.Name == "" {
		c.Provider.Name = ProviderYahoo
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Provider.RateLimit == 0 {
		c.Provider.RateLimit = collector.DefaultYahooRate
	}
	if c.Provider.Interval == "" {
		c.Provider.Interval = string(collector.Weekly)
	}
	if c.Ingest.Cron == "" {
		// Fridays at 10:00
		c.Ingest.Cron = "0 0 10 * * 5"
	}
	if c.Ingest.LookbackDays == 0 {
		c.Ingest.LookbackDays = 7
	}
	if c.Ingest.RetryDelay == 0 {
		c.Ingest.RetryDelay = 10 * time.Minute
	}
	if c.Ingest.BackfillStart == "" {
		c.Ingest.BackfillStart = "2010-01-01"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 60 * time.Second
	}
	if c.Registry.CompaniesFile == "" {
		c.Registry.CompaniesFile = "data/companies.json"
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = "data/archive"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Ingest.Cron == "" {
		return fmt.Errorf("ingest.cron is required")
	}
	if c.Ingest.LookbackDays < 1 {
		return fmt.Errorf("ingest.lookback_days must be positive")
	}
	if c.Ingest.MaxRetries < 0 {
		return fmt.Errorf("ingest.max_retries must not be negative")
	}
	if c.Ingest.RetryDelay < 0 {
		return fmt.Errorf("ingest.retry_delay must not be negative")
	}
	if _, err := model.ParseDate(c.Ingest.BackfillStart); err != nil {
		return fmt.Errorf("ingest.backfill_start: %w", err)
	}
	if c.Provider.Name != ProviderYahoo && c.Provider.Name != ProviderMock {
		return fmt.Errorf("provider.name must be %s or %s", ProviderYahoo, ProviderMock)
	}
	if _, err := collector.ParseInterval(c.Provider.Interval); err != nil {
		return fmt.Errorf("provider.interval: %w", err)
	}
	if c.Provider.Timeout < 0 || c.Provider.RequestDelay < 0 {
		return fmt.Errorf("provider timeouts must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether run notifications should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// BackfillStartDate returns ingest.backfill_start as a date.
func (c *Config) BackfillStartDate() (time.Time, error) {
	return model.ParseDate(c.Ingest.BackfillStart)
}
