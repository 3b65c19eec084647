package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"tradehelper/config"
	"tradehelper/internal/trade"
	"tradehelper/pkg/storage/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to the database named by TRADEHELPER_TEST_POSTGRES_DSN.
func testClient(t *testing.T) *postgres.PostgresClient {
	t.Helper()
	dsn := os.Getenv("TRADEHELPER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRADEHELPER_TEST_POSTGRES_DSN not set")
	}
	client, err := postgres.NewClient(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.AutoMigrate())
	require.NoError(t, client.DB.Exec("TRUNCATE kv_record, trade_record").Error)
	return client
}

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	cfg := config.PostgresConfig{Host: "invalid", Port: 5432, User: "fail", Password: "fail", DBName: "fail", SSLMode: "disable"}

	_, err := postgres.NewClient(cfg.DSN("dev"))
	require.Error(t, err)
}

// go test -v --run ^TestPostgresHealthy$
func TestPostgresHealthy(t *testing.T) {
	client := testClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	assert.True(t, client.IsHealthy(ctx))
}

// go test -v --run TestKV
func TestKV(t *testing.T) {
	kv := testClient(t).KV()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "trades")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "trades", `{"BTC":{}}`))
	require.NoError(t, kv.Set(ctx, "trades", `{}`))
	v, ok, err := kv.Get(ctx, "trades")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{}`, v)

	v, err = kv.GetOrSet(ctx, "trades", "ignored")
	require.NoError(t, err)
	assert.Equal(t, `{}`, v)
	v, err = kv.GetOrSet(ctx, "config", `{"ViewOnly":true}`)
	require.NoError(t, err)
	assert.Equal(t, `{"ViewOnly":true}`, v)

	for i := int64(0); i < 3; i++ {
		n, err := kv.Increment(ctx, "trades-count")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"config", "trades", "trades-count"}, keys)

	require.NoError(t, kv.Delete(ctx, "config"))
	_, ok, err = kv.Get(ctx, "config")
	require.NoError(t, err)
	assert.False(t, ok)
}

// go test -v --run TestTradeJournal
func TestTradeJournal(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	closed := trade.ClosedTrade{
		Symbol:   trade.NewSymbol("BTC", "USDT"),
		Quantity: 0.5,
		Paid:     10,
		Gained:   12,
		Profit:   2,
		OrderID:  "42",
		ClosedAt: now,
	}
	require.NoError(t, client.RecordTrade(ctx, closed))
	old := closed
	old.ClosedAt = now.Add(-48 * time.Hour)
	require.NoError(t, client.RecordTrade(ctx, old))

	records, err := client.ListTrades(ctx, "BTC", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2.0, records[0].Profit)
	assert.Equal(t, "USDT", records[0].StableCoin)

	require.NoError(t, client.DeleteOldTrades(ctx, now.Add(-24*time.Hour)))
	records, err = client.ListTrades(ctx, "", time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// go test -v --run TestToTradeRecord
func TestToTradeRecord(t *testing.T) {
	at := time.Date(2024, 5, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	r := postgres.ToTradeRecord(trade.ClosedTrade{
		Symbol:     trade.NewSymbol("eth", "usdt"),
		Quantity:   1,
		Paid:       100,
		Gained:     95,
		Commission: 0.1,
		SoldPrice:  95,
		Profit:     -5,
		OrderID:    "7",
		ClosedAt:   at,
	})

	assert.Equal(t, "ETH", r.Coin)
	assert.Equal(t, "USDT", r.StableCoin)
	assert.Equal(t, -5.0, r.Profit)
	assert.Equal(t, time.UTC, r.ClosedAt.Location())
	assert.True(t, r.ClosedAt.Equal(at))
}
