package tick

import (
	"context"
	"fmt"
	"time"

	"tradehelper/config"
	"tradehelper/internal/dao"
	"tradehelper/internal/trade"
	"tradehelper/logger"
	"tradehelper/pkg/binance"

	"go.uber.org/zap"
)

// Exchange executes market orders. Both the Binance client and the paper
// venue satisfy it.
type Exchange interface {
	Balance(ctx context.Context, asset string) (float64, error)
	MarketBuy(ctx context.Context, symbol trade.Symbol, cost float64) (trade.TradeResult, error)
	MarketSell(ctx context.Context, symbol trade.Symbol, quantity float64) (trade.TradeResult, error)
}

// trader drives every memo through the lifecycle once per tick.
type trader struct {
	exchange Exchange
	trades   *dao.Trades
	stats    *Statistics
	log      *zap.Logger
	now      func() time.Time

	// balanceDelta is the change of the stable balance caused by this tick's fills.
	balanceDelta float64
}

// tradeAll isolates every coin: a failure is logged and the loop continues.
// The number of failed coins is returned.
func (t *trader) tradeAll(ctx context.Context, cfg config.TradingConfig, prices map[string]*trade.PriceBuffer) int {
	failed := 0
	for _, tm := range t.trades.All() {
		if err := t.check(ctx, cfg, tm, prices[tm.Coin()]); err != nil {
			failed++
			if binance.IsInterrupt(err) {
				logger.Alert(t.log, fmt.Sprintf("%s Trading %s was interrupted by the exchange: %v", binance.Interrupt, tm.Coin(), err))
			} else {
				logger.Alert(t.log, fmt.Sprintf("Failed to trade %s: %v", tm.Coin(), err))
			}
			t.log.Error("trade check failed", zap.String("coin", tm.Coin()), zap.Error(err))
		}
	}
	return failed
}

func (t *trader) check(ctx context.Context, cfg config.TradingConfig, tm *trade.TradeMemo, window *trade.PriceBuffer) error {
	if window != nil && window.Len() > 0 {
		tm.PushPrice(window.CurrentPrice())
	}

	if tm.StateIs(trade.StateBuy) && !cfg.ViewOnly {
		if err := t.buy(ctx, cfg, tm); err != nil {
			return err
		}
	}

	if tm.StateIs(trade.StateBought) {
		t.hold(cfg, tm)
	}

	if tm.StateIs(trade.StateSell) && !cfg.ViewOnly {
		if err := t.sell(ctx, tm); err != nil {
			return err
		}
		return nil
	}

	if tm.StateIs(trade.StateSold) && tm.CurrentPrice() != 0 {
		t.log.Debug("price since sale",
			zap.String("coin", tm.Coin()),
			zap.Float64("changePercent", tm.SoldPriceChangePercent()),
		)
	}
	return nil
}

func (t *trader) buy(ctx context.Context, cfg config.TradingConfig, tm *trade.TradeMemo) error {
	result, err := t.exchange.MarketBuy(ctx, tm.Symbol(), cfg.BuyQuantity)
	if err != nil {
		return err
	}
	if !result.FromExchange {
		t.log.Info(result.Msg, zap.String("coin", tm.Coin()))
		return nil
	}

	tm.JoinWithNewTrade(result)
	tm.SetState(trade.StateBought)
	tm.TTL = 0
	tm.SetStopLimitPrice(tm.StopLimitBottomPrice())
	t.balanceDelta -= result.Paid

	logger.Alert(t.log, fmt.Sprintf("%s bought", tm.Coin()),
		zap.Float64("quantity", result.Quantity),
		zap.Float64("paid", result.Paid),
		zap.Float64("price", result.Price()),
		zap.String("orderId", result.OrderID),
	)
	return nil
}

// hold trails the stop limit once the profit goal is reached and triggers a
// sale when the price crosses the stop limit downwards.
func (t *trader) hold(cfg config.TradingConfig, tm *trade.TradeMemo) {
	tm.TTL++

	current := tm.CurrentPrice()
	if current == 0 {
		return
	}
	if tm.EntryPriceCrossedUp() {
		t.log.Info("price crossed above entry", zap.String("coin", tm.Coin()), zap.Float64("price", current))
	}
	if current >= tm.ProfitGoalPrice() {
		if trailing := current * (1 - tm.ProfitGoal()); trailing > tm.StopLimitPrice() {
			tm.SetStopLimitPrice(trailing)
			t.log.Debug("stop limit raised", zap.String("coin", tm.Coin()), zap.Float64("stopLimit", trailing))
		}
	}
	if cfg.SellAtStopLimit && tm.StopLimitCrossedDown() {
		logger.Alert(t.log, fmt.Sprintf("%s crossed the stop limit, selling", tm.Coin()),
			zap.Float64("price", current),
			zap.Float64("stopLimit", tm.StopLimitPrice()),
		)
		tm.SetState(trade.StateSell)
	}
}

func (t *trader) sell(ctx context.Context, tm *trade.TradeMemo) error {
	result, err := t.exchange.MarketSell(ctx, tm.Symbol(), tm.Result.Quantity)
	if err != nil {
		return err
	}
	if !result.FromExchange {
		t.log.Info(result.Msg, zap.String("coin", tm.Coin()))
		return nil
	}

	closed := trade.Close(tm.Result, result, t.now())
	t.balanceDelta += result.Gained
	logger.Alert(t.log, fmt.Sprintf("%s sold", tm.Coin()),
		zap.Float64("gained", result.Gained),
		zap.Float64("profit", closed.Profit),
		zap.Float64("price", result.SoldPrice),
		zap.String("orderId", result.OrderID),
	)

	tm.Result.SoldPrice = result.SoldPrice
	tm.SetState(trade.StateSold)

	if err := t.stats.AddClosed(ctx, closed); err != nil {
		return err
	}
	return nil
}
