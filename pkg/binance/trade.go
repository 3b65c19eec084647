package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"tradehelper/internal/trade"
	"tradehelper/logger"
	"tradehelper/pkg/metrics"
	"tradehelper/pkg/num"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	marketClosed        = "Market is closed"
	insufficientBalance = "Account has insufficient balance"
	notional            = "NOTIONAL" // MIN_NOTIONAL and NOTIONAL filter failures
)

// MarketBuy spends cost of the price asset on the quantity asset. Missing
// funds and a closed market are reported as soft failures.
func (c *Client) MarketBuy(ctx context.Context, symbol trade.Symbol, cost float64) (trade.TradeResult, error) {
	available, err := c.Balance(ctx, symbol.Price)
	if err != nil {
		metrics.Orders.WithLabelValues("BUY", "error").Inc()
		return trade.TradeResult{}, err
	}
	if available < cost {
		metrics.Orders.WithLabelValues("BUY", "soft_failure").Inc()
		return trade.NewSoftFailure(symbol, fmt.Sprintf("Not enough money to buy: %s=%s", symbol.Price, num.Format(available))), nil
	}

	logger.Alert(c.log, "buying",
		zap.String("coin", symbol.Quantity),
		zap.Float64("cost", cost),
		zap.String("asset", symbol.Price),
	)
	query := fmt.Sprintf("symbol=%s&type=MARKET&side=BUY&quoteOrderQty=%s", symbol, num.Format(cost))
	result, err := c.marketTrade(ctx, symbol, query)
	if err != nil {
		if errorContains(err, marketClosed) {
			metrics.Orders.WithLabelValues("BUY", "soft_failure").Inc()
			return trade.NewSoftFailure(symbol, fmt.Sprintf("Market is closed for %s.", symbol)), nil
		}
		metrics.Orders.WithLabelValues("BUY", "error").Inc()
		return trade.TradeResult{}, err
	}

	result.Paid = result.Cost
	c.updateBalance(symbol.Price, -result.Cost)
	metrics.Orders.WithLabelValues("BUY", "filled").Inc()
	return result, nil
}

// MarketSell sells quantity floored to the lot-size step.
func (c *Client) MarketSell(ctx context.Context, symbol trade.Symbol, quantity float64) (trade.TradeResult, error) {
	qty, err := c.QuantityForLotStepSize(ctx, symbol, quantity)
	if err != nil {
		metrics.Orders.WithLabelValues("SELL", "error").Inc()
		return trade.TradeResult{}, err
	}

	logger.Alert(c.log, "selling",
		zap.String("coin", symbol.Quantity),
		zap.Float64("quantity", qty),
		zap.String("asset", symbol.Price),
	)
	query := fmt.Sprintf("symbol=%s&type=MARKET&side=SELL&quantity=%s", symbol, num.Format(qty))
	result, err := c.marketTrade(ctx, symbol, query)
	if err != nil {
		var soft string
		switch {
		case errorContains(err, insufficientBalance):
			soft = fmt.Sprintf("Account has no %s of %s", num.Format(qty), symbol.Quantity)
		case errorContains(err, marketClosed):
			soft = fmt.Sprintf("Market is closed for %s.", symbol)
		case errorContains(err, notional):
			soft = fmt.Sprintf("The cost of %s is less than minimal needed to sell it.", symbol.Quantity)
		default:
			metrics.Orders.WithLabelValues("SELL", "error").Inc()
			return trade.TradeResult{}, err
		}
		metrics.Orders.WithLabelValues("SELL", "soft_failure").Inc()
		return trade.NewSoftFailure(symbol, soft), nil
	}

	result.Gained = result.Cost
	result.SoldPrice = result.Price()
	c.updateBalance(symbol.Price, result.Cost)
	metrics.Orders.WithLabelValues("SELL", "filled").Inc()
	return result, nil
}

func (c *Client) marketTrade(ctx context.Context, symbol trade.Symbol, query string) (trade.TradeResult, error) {
	var order orderResponse
	if err := c.fetch(ctx, http.MethodPost, c.signed("order", query), &order); err != nil {
		return trade.TradeResult{}, errors.Wrapf(err, "failed to trade %s", symbol)
	}
	c.log.Debug("order filled",
		zap.String("symbol", order.Symbol),
		zap.Int64("orderId", order.OrderID),
		zap.String("status", order.Status),
		zap.String("origQty", order.OrigQty),
		zap.String("cummulativeQuoteQty", order.CummulativeQuoteQty),
	)

	f := sumFees(symbol, order.Fills)
	quantity, _ := num.ParseDecimal(order.OrigQty).Sub(f.quantity).Float64()
	cost, _ := num.ParseDecimal(order.CummulativeQuoteQty).Sub(f.quote).Float64()
	commission, _ := f.discount.Float64()

	return trade.TradeResult{
		Symbol:       symbol,
		Quantity:     quantity,
		Cost:         cost,
		Commission:   commission,
		FromExchange: true,
		OrderID:      strconv.FormatInt(order.OrderID, 10),
	}, nil
}

// fees are commissions itemized by the asset they were charged in.
type fees struct {
	discount decimal.Decimal // paid in DiscountAsset
	quantity decimal.Decimal // reduces the acquired/sold quantity
	quote    decimal.Decimal // reduces the cost
}

func sumFees(symbol trade.Symbol, fills []orderFill) fees {
	f := fees{discount: decimal.Zero, quantity: decimal.Zero, quote: decimal.Zero}
	for _, fill := range fills {
		commission := num.ParseDecimal(fill.Commission)
		switch fill.CommissionAsset {
		case DiscountAsset:
			f.discount = f.discount.Add(commission)
		case symbol.Quantity:
			f.quantity = f.quantity.Add(commission)
		case symbol.Price:
			f.quote = f.quote.Add(commission)
		}
	}
	return f
}
