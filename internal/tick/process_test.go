package tick

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tradehelper/config"
	"tradehelper/internal/cache"
	"tradehelper/internal/dao"
	"tradehelper/internal/store"
	"tradehelper/internal/trade"
	"tradehelper/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSource struct{ prices map[string]float64 }

func (f *fakeSource) Prices(context.Context) (map[string]float64, error) { return f.prices, nil }

// fakeExchange fills at the source price unless told otherwise.
type fakeExchange struct {
	source   *fakeSource
	balances map[string]float64
	failBuy  map[string]error
	softBuy  map[string]string
	buys     []string
	sells    []string
}

func (f *fakeExchange) Balance(_ context.Context, asset string) (float64, error) {
	return f.balances[asset], nil
}

func (f *fakeExchange) MarketBuy(_ context.Context, symbol trade.Symbol, cost float64) (trade.TradeResult, error) {
	f.buys = append(f.buys, symbol.Quantity)
	if err := f.failBuy[symbol.Quantity]; err != nil {
		return trade.TradeResult{}, err
	}
	if msg := f.softBuy[symbol.Quantity]; msg != "" {
		return trade.NewSoftFailure(symbol, msg), nil
	}
	price := f.source.prices[symbol.String()]
	return trade.TradeResult{
		Symbol:       symbol,
		Quantity:     cost / price,
		Cost:         cost,
		Paid:         cost,
		FromExchange: true,
		OrderID:      "b-" + symbol.Quantity,
	}, nil
}

func (f *fakeExchange) MarketSell(_ context.Context, symbol trade.Symbol, quantity float64) (trade.TradeResult, error) {
	f.sells = append(f.sells, symbol.Quantity)
	price := f.source.prices[symbol.String()]
	return trade.TradeResult{
		Symbol:       symbol,
		Quantity:     quantity,
		Cost:         quantity * price,
		Gained:       quantity * price,
		SoldPrice:    price,
		FromExchange: true,
		OrderID:      "s-" + symbol.Quantity,
	}, nil
}

type recordingJournal struct{ trades []trade.ClosedTrade }

func (j *recordingJournal) RecordTrade(_ context.Context, t trade.ClosedTrade) error {
	j.trades = append(j.trades, t)
	return nil
}

type env struct {
	ctx      context.Context
	store    *store.MemoryStore
	source   *fakeSource
	exchange *fakeExchange
	journal  *recordingJournal
	process  *Process
	logs     *observer.ObservedLogs
	now      time.Time
}

var testDefaults = config.TradingConfig{
	StableCoin:          "USDT",
	StableBalance:       100,
	BuyQuantity:         10,
	SellAtStopLimit:     true,
	PriceAnomalyAlert:   5,
	PriceBufferCapacity: 10,
}

func newEnv(t *testing.T, prices map[string]float64) *env {
	t.Helper()
	e := &env{
		ctx:     context.Background(),
		store:   store.NewMemoryStore(),
		source:  &fakeSource{prices: prices},
		journal: &recordingJournal{},
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	e.exchange = &fakeExchange{source: e.source, balances: map[string]float64{"USDT": 500}}
	core, logs := observer.New(zapcore.DebugLevel)
	e.logs = logs
	c := cache.NewMemoryCache(cache.WithClock(func() time.Time { return e.now }))
	e.process = NewProcess(e.store, c, e.source,
		func(config.TradingConfig) Exchange { return e.exchange },
		testDefaults, zap.New(core),
		WithJournal(e.journal),
		WithClock(func() time.Time { return e.now }),
	)
	return e
}

func (e *env) seed(t *testing.T, memos ...*trade.TradeMemo) {
	t.Helper()
	d := dao.NewTrades(e.store, 10, zap.NewNop())
	require.NoError(t, d.Load(e.ctx))
	for _, tm := range memos {
		tm := tm
		d.Update(tm.Coin(), func(*trade.TradeMemo) {}, func() *trade.TradeMemo { return tm })
	}
	require.NoError(t, d.Save(e.ctx))
}

func (e *env) memo(t *testing.T, coin string) *trade.TradeMemo {
	t.Helper()
	d := dao.NewTrades(e.store, 10, zap.NewNop())
	require.NoError(t, d.Load(e.ctx))
	tm, ok := d.Get(coin)
	require.True(t, ok, "memo %s not found", coin)
	return tm
}

func (e *env) tick(t *testing.T) error {
	t.Helper()
	err := e.process.Tick(e.ctx)
	e.now = e.now.Add(time.Minute)
	return err
}

func (e *env) tradingConfig(t *testing.T) config.TradingConfig {
	t.Helper()
	cfg, err := dao.NewConfig(e.store, testDefaults).Get(e.ctx)
	require.NoError(t, err)
	return cfg
}

// go test -v --run TestTickBuy
func TestTickBuy(t *testing.T) {
	e := newEnv(t, map[string]float64{"BTCUSDT": 20})
	require.NoError(t, e.process.Intent(e.ctx, func(ctx context.Context, a *Actions) error {
		return a.Buy(ctx, "BTC")
	}))
	assert.True(t, e.memo(t, "BTC").StateIs(trade.StateBuy))

	require.NoError(t, e.tick(t))

	tm := e.memo(t, "BTC")
	assert.True(t, tm.StateIs(trade.StateBought))
	assert.Equal(t, 0.5, tm.Result.Quantity)
	assert.Equal(t, 10.0, tm.Result.Paid)
	assert.InDelta(t, 20*(1-trade.DefaultRange), tm.StopLimitPrice(), 1e-9)
	assert.Equal(t, 1, tm.TTL)
	assert.Equal(t, 90.0, e.tradingConfig(t).StableBalance)
}

// go test -v --run TestTickTrailingStopAndSell
func TestTickTrailingStopAndSell(t *testing.T) {
	e := newEnv(t, map[string]float64{"BTCUSDT": 110})
	tm := trade.NewManual(trade.NewSymbol("BTC", "USDT"), 1, 100, 10)
	tm.SetStopLimitPrice(tm.StopLimitBottomPrice())
	e.seed(t, tm)

	require.NoError(t, e.tick(t))
	tm = e.memo(t, "BTC")
	assert.True(t, tm.StateIs(trade.StateBought))
	assert.InDelta(t, 110*(1-tm.ProfitGoal()), tm.StopLimitPrice(), 1e-9, "stop limit trails the price")

	e.source.prices["BTCUSDT"] = 105
	require.NoError(t, e.tick(t))

	tm = e.memo(t, "BTC")
	assert.True(t, tm.StateIs(trade.StateSold))
	assert.Equal(t, 105.0, tm.Result.SoldPrice)
	assert.Zero(t, tm.Result.Quantity)
	assert.Equal(t, []string{"BTC"}, e.exchange.sells)

	require.Len(t, e.journal.trades, 1)
	assert.Equal(t, 5.0, e.journal.trades[0].Profit)

	raw, _, err := e.store.Get(e.ctx, StatisticsKey)
	require.NoError(t, err)
	var stats Stats
	require.NoError(t, json.Unmarshal([]byte(raw), &stats))
	assert.Equal(t, 5.0, stats.TotalProfit)
	assert.Equal(t, 5.0, stats.DailyProfit["2024-05-01"])

	count, _, err := e.store.Get(e.ctx, TradesCountKey)
	require.NoError(t, err)
	assert.Equal(t, "1", count)
	assert.Equal(t, 205.0, e.tradingConfig(t).StableBalance)
	assert.Equal(t, 1, e.logs.FilterMessage("price crossed above entry").Len(), "only the first sample above entry")

	e.source.prices["BTCUSDT"] = 94.5
	require.NoError(t, e.tick(t))
	sinceSale := e.logs.FilterMessage("price since sale").All()
	require.Len(t, sinceSale, 1)
	assert.InDelta(t, -10.0, sinceSale[0].ContextMap()["changePercent"], 1e-9)
}

// go test -v --run TestTickSoftFailureKeepsState
func TestTickSoftFailureKeepsState(t *testing.T) {
	e := newEnv(t, map[string]float64{"BTCUSDT": 20})
	e.exchange.softBuy = map[string]string{"BTC": "Not enough money to buy: USDT=1"}
	require.NoError(t, e.process.Intent(e.ctx, func(ctx context.Context, a *Actions) error {
		return a.Buy(ctx, "BTC")
	}))

	require.NoError(t, e.tick(t))
	assert.True(t, e.memo(t, "BTC").StateIs(trade.StateBuy))
	assert.Equal(t, 100.0, e.tradingConfig(t).StableBalance)
}

// go test -v --run TestTickIsolatesCoins
func TestTickIsolatesCoins(t *testing.T) {
	e := newEnv(t, map[string]float64{"BTCUSDT": 20, "ETHUSDT": 10})
	e.exchange.failBuy = map[string]error{"BTC": errors.New("⛔ 451 restricted")}
	require.NoError(t, e.process.Intent(e.ctx, func(ctx context.Context, a *Actions) error {
		require.NoError(t, a.Buy(ctx, "BTC"))
		return a.Buy(ctx, "ETH")
	}))

	err := e.tick(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trades-check")

	assert.True(t, e.memo(t, "BTC").StateIs(trade.StateBuy))
	assert.True(t, e.memo(t, "ETH").StateIs(trade.StateBought), "other coins are still traded and saved")

	interrupted := e.logs.FilterLoggerName(logger.AlertName).FilterMessageSnippet("interrupted by the exchange")
	require.Equal(t, 1, interrupted.Len())
	assert.Contains(t, interrupted.All()[0].Message, "BTC")
}

// go test -v --run TestTickViewOnly
func TestTickViewOnly(t *testing.T) {
	e := newEnv(t, map[string]float64{"BTCUSDT": 20})
	require.NoError(t, e.store.Set(e.ctx, dao.ConfigKey, `{"ViewOnly": true}`))
	require.NoError(t, e.process.Intent(e.ctx, func(ctx context.Context, a *Actions) error {
		return a.Buy(ctx, "BTC")
	}))

	require.NoError(t, e.tick(t))
	assert.True(t, e.memo(t, "BTC").StateIs(trade.StateBuy))
	assert.Empty(t, e.exchange.buys)
}

// go test -v --run TestTickInitializesStableBalance
func TestTickInitializesStableBalance(t *testing.T) {
	e := newEnv(t, map[string]float64{"BTCUSDT": 20})
	require.NoError(t, e.store.Set(e.ctx, dao.ConfigKey, `{"StableBalance": -1}`))

	require.NoError(t, e.tick(t))
	assert.Equal(t, 500.0, e.tradingConfig(t).StableBalance)
}

// go test -v --run TestTickBuysDumps
func TestTickBuysDumps(t *testing.T) {
	e := newEnv(t, map[string]float64{"ETHUSDT": 100})
	require.NoError(t, e.store.Set(e.ctx, dao.ConfigKey, `{"BuyDumps": true}`))

	for i := 0; i < 10; i++ {
		e.source.prices["ETHUSDT"] = 100 - float64(i)
		require.NoError(t, e.tick(t))
	}
	// the price stops falling: tracking expires after 90s, then the anchor is evaluated
	e.source.prices["ETHUSDT"] = 80
	for i := 0; i < 10; i++ {
		require.NoError(t, e.tick(t))
	}

	tm := e.memo(t, "ETH")
	assert.False(t, tm.StateIs(trade.StateNone))
	assert.Contains(t, e.exchange.buys, "ETH")
}

// go test -v --run TestActions
func TestActions(t *testing.T) {
	e := newEnv(t, map[string]float64{"BTCUSDT": 20})
	e.seed(t, trade.NewManual(trade.NewSymbol("BTC", "USDT"), 1, 10, 10))

	require.NoError(t, e.process.Intent(e.ctx, func(ctx context.Context, a *Actions) error {
		return a.Buy(ctx, "BTC")
	}))
	assert.True(t, e.memo(t, "BTC").StateIs(trade.StateBought), "buy is a no-op for an open position")

	require.NoError(t, e.process.Intent(e.ctx, func(ctx context.Context, a *Actions) error {
		return a.Sell(ctx, "BTC")
	}))
	assert.True(t, e.memo(t, "BTC").StateIs(trade.StateSell))

	require.NoError(t, e.process.Intent(e.ctx, func(ctx context.Context, a *Actions) error {
		return a.Cancel(ctx, "BTC")
	}))
	assert.True(t, e.memo(t, "BTC").StateIs(trade.StateBought))
}

// go test -v --run TestTrackedCoins
func TestTrackedCoins(t *testing.T) {
	s := store.NewMemoryStore()
	d := dao.NewTrades(s, 10, zap.NewNop())
	d.Update("SOL", func(*trade.TradeMemo) {}, func() *trade.TradeMemo {
		return trade.NewManual(trade.NewSymbol("SOL", "USDT"), 1, 10, 10)
	})

	assert.Nil(t, trackedCoins(config.TradingConfig{}, d), "no watch list tracks every symbol")

	cfg := config.TradingConfig{Coins: []string{"BTC", "ETH", "BTC"}}
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, trackedCoins(cfg, d))
}
