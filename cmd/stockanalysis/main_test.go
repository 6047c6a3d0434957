package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StockAnalysis/internal/collector"
	"StockAnalysis/internal/config"
)

func testApp(t *testing.T, yaml string) *app {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeFile(path, yaml))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return &app{cfg: cfg, logger: zap.NewNop()}
}

func TestFetcher_Provider(t *testing.T) {
	a := testApp(t, "provider:\n  name: mock\n")
	_, ok := a.fetcher().(*collector.MockFetcher)
	assert.True(t, ok)

	a = testApp(t, "provider:\n  symbol_map:\n    BRK.B: BRK-B\n")
	f, ok := a.fetcher().(*collector.YahooFetcher)
	require.True(t, ok)
	assert.Equal(t, "BRK-B", f.SymbolMap["BRK.B"])
}

func TestCollector_UsesConfiguredInterval(t *testing.T) {
	a := testApp(t, "provider:\n  name: mock\n  interval: 1d\n  request_delay: 2s\n")
	col := a.collector()
	assert.Equal(t, collector.Daily, col.Interval)
	assert.Equal(t, 2*time.Second, col.RequestDelay)
}

func TestBackfillCmd_RejectsReversedRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, writeFile(path, "provider:\n  name: mock\ndatabase:\n  sqlite_path: "+filepath.Join(dir, "db", "test.db")+"\n"))
	configFile = path
	t.Cleanup(func() { configFile = "" })

	cmd := newBackfillCmd()
	cmd.SetArgs([]string{"--start", "2024-07-20", "--end", "2024-07-01"})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "is after end")
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}
