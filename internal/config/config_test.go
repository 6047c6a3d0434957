package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "0 0 10 * * 5", cfg.Ingest.Cron)
	assert.Equal(t, 5, cfg.Ingest.MaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.Ingest.RetryDelay)
	assert.Equal(t, "2010-01-01", cfg.Ingest.BackfillStart)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "1wk", cfg.Provider.Interval)
	assert.Equal(t, ProviderYahoo, cfg.Provider.Name)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
  read_timeout: 5s
database:
  sqlite_path: /tmp/prices.db
provider:
  interval: 1d
  rate_limit: 0.5
  symbol_map:
    BRK.B: BRK-B
ingest:
  cron: "0 30 9 * * 1"
  lookback_days: 14
  retry_delay: 1m
cache:
  ttl: 2m
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/tmp/prices.db", cfg.Database.SQLitePath)
	assert.Equal(t, "1d", cfg.Provider.Interval)
	assert.Equal(t, 0.5, cfg.Provider.RateLimit)
	assert.Equal(t, "BRK-B", cfg.Provider.SymbolMap["BRK.B"])
	assert.Equal(t, "0 30 9 * * 1", cfg.Ingest.Cron)
	assert.Equal(t, 14, cfg.Ingest.LookbackDays)
	assert.Equal(t, time.Minute, cfg.Ingest.RetryDelay)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "database:\n  sqlite_path: from-file.db\n")
	t.Setenv("SQLITE_PATH", "from-env.db")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CRON_INGEST", "0 0 6 * * 6")
	t.Setenv("CACHE_TTL", "15s")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.SQLitePath)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "0 0 6 * * 6", cfg.Ingest.Cron)
	assert.Equal(t, 15*time.Second, cfg.Cache.TTL)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoad_BadEnvDuration(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "CACHE_TTL")
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown provider", func(c *Config) { c.Provider.Name = "polygon" }, "provider.name"},
		{"bad interval", func(c *Config) { c.Provider.Interval = "1mo" }, "provider.interval"},
		{"bad backfill start", func(c *Config) { c.Ingest.BackfillStart = "2010/01/01" }, "backfill_start"},
		{"negative retries", func(c *Config) { c.Ingest.MaxRetries = -1 }, "max_retries"},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "x" }, "telegram"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestBackfillStartDate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	d, err := cfg.BackfillStartDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestLoad_ExplicitZeroRetriesKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "ingest:\n  max_retries: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Ingest.MaxRetries)
	assert.NoError(t, cfg.Validate())

	cfg, err = Load(writeConfig(t, "ingest:\n  lookback_days: 14\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRetries, cfg.Ingest.MaxRetries)
}

func TestLoad_MockProvider(t *testing.T) {
	cfg, err := Load(writeConfig(t, "provider:\n  name: mock\n"))
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, cfg.Provider.Name)
	assert.NoError(t, cfg.Validate())
}
