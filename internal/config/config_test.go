package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonConfig = `{
  "app": {"port": 9090},
  "repository": {"enabled": true, "db_host": "localhost", "db_port": 5432, "db_name": "arb"},
  "cache": {"enabled": true, "redis_host": "localhost", "redis_port": 6379},
  "venues": {"enabled": ["binance", "okx"], "fetch_timeout_ms": 5000},
  "scanner": {"enabled": true, "schedule": "@every 1m", "threshold": 0.5, "workers": 2}
}`

const yamlConfig = `
app:
  port: 7070
venues:
  enabled: [kraken, sim]
  custom:
    - name: sim
      ticker_url: "http://127.0.0.1:50101/ticker?symbol={symbol}"
      symbol_format: concat
      price_path: price
scanner:
  symbols: ["BTC/USDT"]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestGetConfigJSON(t *testing.T) {
	cfg, err := GetConfig(writeFile(t, "config.json", jsonConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, []string{"binance", "okx"}, cfg.Venues.Enabled)
	assert.Equal(t, 5000, cfg.Venues.FetchTimeoutMs)
	assert.Equal(t, DefaultRateLimit, cfg.Venues.RateLimit)
	assert.Equal(t, "@every 1m", cfg.Scanner.Schedule)
	assert.Equal(t, 0.5, cfg.Scanner.Threshold)
	assert.Equal(t, 2, cfg.Scanner.Workers)
	assert.Equal(t, "disable", cfg.Repository.DBSSLMode)
	assert.True(t, cfg.Cache.Enabled)
}

func TestGetConfigYAML(t *testing.T) {
	cfg, err := GetConfig(writeFile(t, "config.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.App.Port)
	assert.Equal(t, []string{"kraken", "sim"}, cfg.Venues.Enabled)
	require.Len(t, cfg.Venues.Custom, 1)
	assert.Equal(t, "price", cfg.Venues.Custom[0].PricePath)
	assert.Equal(t, DefaultFetchTimeoutMs, cfg.Venues.FetchTimeoutMs)
	assert.Equal(t, DefaultScannerSchedule, cfg.Scanner.Schedule)
	assert.Equal(t, []string{"BTC/USDT"}, cfg.Scanner.Symbols)
}

func TestGetConfigDefaultsVenues(t *testing.T) {
	cfg, err := GetConfig(writeFile(t, "config.json", `{"app": {"port": 8081}}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultVenues, cfg.Venues.Enabled)
}

func TestGetConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "6060")
	t.Setenv("VENUES", "okx, bybit ,")
	t.Setenv("SCANNER_THRESHOLD", "2.5")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("DB_ENABLED", "false")

	cfg, err := GetConfig(writeFile(t, "config.json", jsonConfig))
	require.NoError(t, err)

	assert.Equal(t, 6060, cfg.App.Port)
	assert.Equal(t, []string{"okx", "bybit"}, cfg.Venues.Enabled)
	assert.Equal(t, 2.5, cfg.Scanner.Threshold)
	assert.Equal(t, "redis", cfg.Cache.RedisHost)
	assert.False(t, cfg.Repository.Enabled)
}

func TestGetConfigErrors(t *testing.T) {
	_, err := GetConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = GetConfig(writeFile(t, "bad.json", "{"))
	assert.Error(t, err)

	t.Setenv("PORT", "not-a-number")
	_, err = GetConfig(writeFile(t, "config.json", jsonConfig))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		App: App{Port: 70000},
		Venues: Venues{Custom: []CustomVenue{
			{Name: "sim", TickerURL: "http://x/ticker", PricePath: "price"},
			{Name: "SIM", TickerURL: "http://x/{symbol}"},
		}},
		Scanner: Scanner{Threshold: -1},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "app.port")
	assert.Contains(t, msg, "must contain {symbol}")
	assert.Contains(t, msg, "duplicate name sim")
	assert.Contains(t, msg, "price_path")
	assert.Contains(t, msg, "scanner.threshold")
}

func TestCacheDurations(t *testing.T) {
	c := Cache{SnapshotTTL: "90s", Retention: "6h"}
	assert.Equal(t, 90*time.Second, c.SnapshotTTLDuration())
	assert.Equal(t, 6*time.Hour, c.RetentionDuration())

	cfg := &Config{App: App{Port: 8080}, Cache: Cache{SnapshotTTL: "soon", Retention: "1h"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.snapshot_ttl")
	assert.Zero(t, cfg.Cache.SnapshotTTLDuration())
}

func TestGetConfigRejectsNonFiniteThreshold(t *testing.T) {
	for _, v := range []string{"NaN", "Inf", "-Inf"} {
		t.Setenv("SCANNER_THRESHOLD", v)
		_, err := GetConfig(writeFile(t, "config.json", jsonConfig))
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "scanner.threshold must be a finite number")
	}
}
