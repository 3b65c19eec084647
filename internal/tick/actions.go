package tick

import (
	"context"

	"tradehelper/internal/dao"
	"tradehelper/internal/trade"

	"go.uber.org/zap"
)

// Actions turns buy/sell intents into state changes. Execution happens on
// the next trades check.
type Actions struct {
	trades     *dao.Trades
	stableCoin string
	capacity   int
	prices     map[string]*trade.PriceBuffer
	log        *zap.Logger
}

func NewActions(trades *dao.Trades, stableCoin string, capacity int, log *zap.Logger) *Actions {
	return &Actions{trades: trades, stableCoin: stableCoin, capacity: capacity, log: log}
}

// usePrices seeds new memos with the current window of their coin.
func (a *Actions) usePrices(prices map[string]*trade.PriceBuffer) {
	a.prices = prices
}

// Buy moves the memo of coin to BUY, creating it if needed. A position that is
// already open or being sold is left alone.
func (a *Actions) Buy(_ context.Context, coin string) error {
	a.trades.Update(coin, func(tm *trade.TradeMemo) {
		if tm.StateIs(trade.StateBought) || tm.StateIs(trade.StateSell) {
			a.log.Debug("buy ignored", zap.String("coin", coin), zap.Stringer("state", tm.State()))
			return
		}
		tm.Deleted = false
		tm.SetState(trade.StateBuy)
	}, func() *trade.TradeMemo {
		tm := trade.NewTradeMemo(trade.TradeResult{Symbol: trade.NewSymbol(coin, a.stableCoin)}, a.capacity)
		if b, ok := a.prices[coin]; ok {
			for _, p := range b.Prices() {
				tm.PushPrice(p)
			}
		}
		return tm
	})
	return nil
}

// Sell moves an open position to SELL.
func (a *Actions) Sell(_ context.Context, coin string) error {
	a.trades.Update(coin, func(tm *trade.TradeMemo) {
		if tm.StateIs(trade.StateBought) {
			tm.SetState(trade.StateSell)
		}
	}, nil)
	return nil
}

// Cancel drops a pending intent by deriving the state from the trade result.
func (a *Actions) Cancel(_ context.Context, coin string) error {
	a.trades.Update(coin, func(tm *trade.TradeMemo) { tm.ResetState() }, nil)
	return nil
}
