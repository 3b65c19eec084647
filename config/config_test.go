package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestLoadFromFile
func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
binance:
  proxy_url: https://proxy.example.com/api/v3/
trading:
  stable_coin: BUSD
  buy_dumps: true
  coins: [BTC, ETH]
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://proxy.example.com/api/v3/", cfg.Binance.ProxyURL)
	assert.Equal(t, "BUSD", cfg.Trading.StableCoin)
	assert.True(t, cfg.Trading.BuyDumps)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.Trading.Coins)
	assert.Equal(t, "debug", cfg.Log.Level)

	// defaults
	assert.Equal(t, 200*time.Millisecond, cfg.Binance.RetryInterval)
	assert.Equal(t, -1.0, cfg.Trading.StableBalance)
	assert.Equal(t, 10, cfg.Trading.PriceBufferCapacity)
	assert.Equal(t, "dev", cfg.Log.Environment)
	assert.Equal(t, 90*24*time.Hour, cfg.Postgres.TradeRetention)
}

// go test -v --run TestLoadEnvOverride
func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trading:\n  stable_coin: USDT\n"), 0o644))
	t.Setenv("TRADING_STABLE_COIN", "USDC")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "USDC", cfg.Trading.StableCoin)
}

// go test -v --run TestLoadMissingExplicitFile
func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// go test -v --run TestPostgresDSN
func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		DBName:   "tradehelper",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=tradehelper sslmode=disable TimeZone=UTC",
		cfg.DSN("dev"),
	)
}
