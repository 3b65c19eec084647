package trade

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boughtMemo(t *testing.T, qty, paid float64, prices ...float64) *TradeMemo {
	t.Helper()
	tm := NewManual(NewSymbol("btc", "usdt"), qty, paid, 10)
	for _, p := range prices {
		tm.PushPrice(p)
	}
	return tm
}

// go test -v --run TestDerivedValues
func TestDerivedValues(t *testing.T) {
	tm := boughtMemo(t, 1, 10, 12)

	assert.Equal(t, "BTCUSDT", tm.Symbol().String())
	assert.InDelta(t, 0.028, tm.ProfitGoal(), 1e-12)
	assert.InDelta(t, 10.28, tm.ProfitGoalPrice(), 1e-9)
	assert.InDelta(t, 8.6, tm.StopLimitBottomPrice(), 1e-9)
	assert.InDelta(t, 2.0, tm.Profit(), 1e-9)
	assert.InDelta(t, 20.0, tm.ProfitPercent(), 1e-9)
	assert.InDelta(t, 12.0, tm.CurrentValue(), 1e-9)

	tm.SetStopLimitPrice(9)
	assert.InDelta(t, -1.0, tm.StopLimitLoss(), 1e-9)
	assert.InDelta(t, -10.0, tm.StopLimitLossPercent(), 1e-9)

	tm.SetRequestParams(2000, 0.5)
	assert.InDelta(t, 0.05, tm.ProfitGoal(), 1e-12)
	assert.InDelta(t, 5.0, tm.StopLimitBottomPrice(), 1e-9)
}

// go test -v --run TestStopLimitNeverNegative
func TestStopLimitNeverNegative(t *testing.T) {
	tm := boughtMemo(t, 1, 10)
	tm.SetStopLimitPrice(-5)
	assert.Equal(t, 0.0, tm.StopLimitPrice())
}

// go test -v --run TestEntryPriceCrossedUp
func TestEntryPriceCrossedUp(t *testing.T) {
	tm := boughtMemo(t, 1, 100)

	tm.PushPrice(100)
	assert.False(t, tm.EntryPriceCrossedUp())

	tm.PushPrice(101)
	assert.True(t, tm.EntryPriceCrossedUp(), "first sample above entry")

	tm.PushPrice(102)
	assert.False(t, tm.EntryPriceCrossedUp(), "101 already crossed")
}

// go test -v --run TestStopLimitCrossedDown
func TestStopLimitCrossedDown(t *testing.T) {
	tm := boughtMemo(t, 1, 100)
	tm.SetStopLimitPrice(95)

	tm.PushPrice(90)
	assert.False(t, tm.StopLimitCrossedDown(), "needs two samples")

	tm = boughtMemo(t, 1, 100, 100)
	tm.SetStopLimitPrice(95)

	fired := 0
	for _, p := range []float64{97, 95, 94, 93, 96, 94, 92} {
		tm.PushPrice(p)
		if tm.StopLimitCrossedDown() {
			fired++
		}
	}
	// 95 -> 94 and 96 -> 94
	assert.Equal(t, 2, fired)
}

// go test -v --run TestSetStateSold
func TestSetStateSold(t *testing.T) {
	tm := boughtMemo(t, 2, 20, 9, 10, 11)
	tm.SetStopLimitPrice(8)
	tm.TTL = 7
	tm.SetRequestParams(3000, 0.2)
	tm.Result.SoldPrice = 11

	tm.SetState(StateSold)

	assert.True(t, tm.StateIs(StateSold))
	assert.Equal(t, NewSymbol("BTC", "USDT"), tm.Symbol())
	assert.Equal(t, 11.0, tm.Result.SoldPrice)
	assert.Equal(t, []float64{11}, tm.Prices().Prices())
	assert.Zero(t, tm.Result.Quantity)
	assert.Zero(t, tm.Result.Paid)
	assert.Zero(t, tm.StopLimitPrice())
	assert.Zero(t, tm.TTL)
	assert.Equal(t, DefaultDuration, tm.Duration())
	assert.Equal(t, DefaultRange, tm.Range())
}

// go test -v --run TestResetState
func TestResetState(t *testing.T) {
	tm := boughtMemo(t, 1, 10, 10)
	tm.SetState(StateSell)
	tm.ResetState()
	assert.True(t, tm.StateIs(StateBought))

	tm.Result.Quantity = 0
	tm.Result.SoldPrice = 12
	tm.ResetState()
	assert.True(t, tm.StateIs(StateSold))
	assert.False(t, tm.Deleted)

	tm.Result.SoldPrice = 0
	tm.ResetState()
	assert.True(t, tm.StateIs(StateNone))
	assert.True(t, tm.Deleted)
}

// go test -v --run TestJoinWithNewTrade
func TestJoinWithNewTrade(t *testing.T) {
	symbol := NewSymbol("ETH", "USDT")
	fill := TradeResult{Symbol: symbol, Quantity: 0.1, Cost: 0.2, Paid: 0.2, FromExchange: true}

	tm := NewTradeMemo(TradeResult{Symbol: symbol, Quantity: 5, Paid: 5}, 10)
	tm.JoinWithNewTrade(fill)
	assert.Equal(t, fill, tm.Result, "manual result is replaced")

	tm.JoinWithNewTrade(fill)
	assert.Equal(t, 0.2, tm.Result.Quantity)
	assert.Equal(t, 0.4, tm.Result.Cost)
	assert.InDelta(t, 2.0, tm.Result.Price(), 1e-12)
}

// go test -v --run TestTradeResultJoinPrecision
func TestTradeResultJoinPrecision(t *testing.T) {
	a := TradeResult{Quantity: 0.1, Cost: 1.05}
	b := TradeResult{Quantity: 0.2, Cost: 2.1, FromExchange: true}
	j := a.Join(b)
	assert.Equal(t, 0.3, j.Quantity)
	assert.Equal(t, 3.15, j.Cost)
	assert.True(t, j.FromExchange)
}

// go test -v --run TestRecordRoundTrip
func TestRecordRoundTrip(t *testing.T) {
	tm := boughtMemo(t, 0.5, 50, 98, 99, 101, 103)
	tm.SetStopLimitPrice(97.5)
	tm.SetRequestParams(3000, 0.1)
	tm.TTL = 4
	tm.Result.Commission = 0.01
	tm.Result.OrderID = "42"

	b, err := json.Marshal(tm)
	require.NoError(t, err)

	var restored TradeMemo
	require.NoError(t, json.Unmarshal(b, &restored))

	assert.Equal(t, tm.Record(), restored.Record())
	assert.Equal(t, tm.State(), restored.State())
	assert.Equal(t, tm.Profit(), restored.Profit())
	assert.Equal(t, tm.ProfitGoalPrice(), restored.ProfitGoalPrice())
	assert.Equal(t, tm.StopLimitBottomPrice(), restored.StopLimitBottomPrice())
	assert.Equal(t, tm.StopLimitCrossedDown(), restored.StopLimitCrossedDown())
	assert.Equal(t, tm.EntryPriceCrossedUp(), restored.EntryPriceCrossedUp())
}

// go test -v --run TestFromRecord
func TestFromRecord(t *testing.T) {
	_, err := FromRecord(Record{}, 10)
	require.Error(t, err)

	_, err = FromRecord(Record{
		Result: TradeResult{Symbol: NewSymbol("BTC", "USDT")},
		State:  "HODL",
	}, 10)
	require.Error(t, err)

	tm, err := FromRecord(Record{
		Result:    TradeResult{Symbol: Symbol{Quantity: "btc", Price: "usdt"}, Quantity: 1, Cost: 10, Paid: 10},
		StopLimit: -3,
		Prices:    []float64{1, 2, 3, 4},
	}, 2)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", tm.Symbol().String())
	assert.True(t, tm.StateIs(StateBought), "empty state is derived from the result")
	assert.Zero(t, tm.StopLimitPrice())
	assert.Equal(t, []float64{3, 4}, tm.Prices().Prices())
}

// go test -v --run TestStateText
func TestStateText(t *testing.T) {
	b, err := json.Marshal(map[string]State{"s": StateSell})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"SELL"}`, string(b))

	var s State
	require.NoError(t, s.UnmarshalText([]byte("BOUGHT")))
	assert.Equal(t, StateBought, s)
	assert.Error(t, s.UnmarshalText([]byte("nope")))
}

// go test -v --run TestClose
func TestClose(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	position := TradeResult{Symbol: NewSymbol("BTC", "USDT"), Quantity: 0.5, Paid: 50, Commission: 0.01}
	sale := TradeResult{Quantity: 0.5, Gained: 55.25, SoldPrice: 110.5, Commission: 0.02, OrderID: "7"}

	closed := Close(position, sale, at)

	assert.Equal(t, 5.25, closed.Profit)
	assert.Equal(t, 0.03, closed.Commission)
	assert.Equal(t, "BTCUSDT", closed.Symbol.String())
	assert.Equal(t, at, closed.ClosedAt)
}
