package binance

import (
	"context"
	"fmt"

	"tradehelper/internal/trade"
	"tradehelper/logger"
	"tradehelper/pkg/metrics"
	"tradehelper/pkg/num"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PriceSource provides the latest price of every symbol.
type PriceSource interface {
	Prices(ctx context.Context) (map[string]float64, error)
}

// Paper is a dry-run venue: orders fill instantly at the current source
// price with no commission. Balances live only as long as the Paper value.
type Paper struct {
	source   PriceSource
	balances map[string]float64
	prices   map[string]float64
	log      *zap.Logger
	newID    func() string
}

func NewPaper(source PriceSource, balances map[string]float64, log *zap.Logger) *Paper {
	seeded := make(map[string]float64, len(balances))
	for k, v := range balances {
		seeded[k] = v
	}
	return &Paper{
		source:   source,
		balances: seeded,
		log:      log,
		newID:    func() string { return uuid.NewString() },
	}
}

func (p *Paper) Balance(_ context.Context, asset string) (float64, error) {
	return p.balances[asset], nil
}

func (p *Paper) price(ctx context.Context, symbol trade.Symbol) (float64, error) {
	if p.prices == nil {
		prices, err := p.source.Prices(ctx)
		if err != nil {
			return 0, errors.Wrap(err, "paper: failed to get prices")
		}
		p.prices = prices
	}
	price, ok := p.prices[symbol.String()]
	if !ok || price <= 0 {
		return 0, errors.Errorf("paper: no price for %s", symbol)
	}
	return price, nil
}

func (p *Paper) MarketBuy(ctx context.Context, symbol trade.Symbol, cost float64) (trade.TradeResult, error) {
	available := p.balances[symbol.Price]
	if available < cost {
		metrics.Orders.WithLabelValues("BUY", "soft_failure").Inc()
		return trade.NewSoftFailure(symbol, fmt.Sprintf("Not enough money to buy: %s=%s", symbol.Price, num.Format(available))), nil
	}
	price, err := p.price(ctx, symbol)
	if err != nil {
		metrics.Orders.WithLabelValues("BUY", "error").Inc()
		return trade.TradeResult{}, err
	}

	qty := cost / price
	p.balances[symbol.Price] = num.SumWithMaxPrecision(available, -cost)
	p.balances[symbol.Quantity] += qty

	logger.Alert(p.log, "paper buy", zap.String("coin", symbol.Quantity), zap.Float64("cost", cost), zap.Float64("price", price))
	metrics.Orders.WithLabelValues("BUY", "filled").Inc()
	return trade.TradeResult{
		Symbol:       symbol,
		Quantity:     qty,
		Cost:         cost,
		Paid:         cost,
		FromExchange: true,
		OrderID:      p.newID(),
	}, nil
}

// MarketSell does not check the quantity balance: positions opened on
// earlier ticks are not known to a fresh Paper venue.
func (p *Paper) MarketSell(ctx context.Context, symbol trade.Symbol, quantity float64) (trade.TradeResult, error) {
	price, err := p.price(ctx, symbol)
	if err != nil {
		metrics.Orders.WithLabelValues("SELL", "error").Inc()
		return trade.TradeResult{}, err
	}

	gained := quantity * price
	p.balances[symbol.Price] += gained
	p.balances[symbol.Quantity] = max(0, p.balances[symbol.Quantity]-quantity)

	logger.Alert(p.log, "paper sell", zap.String("coin", symbol.Quantity), zap.Float64("quantity", quantity), zap.Float64("price", price))
	metrics.Orders.WithLabelValues("SELL", "filled").Inc()
	return trade.TradeResult{
		Symbol:       symbol,
		Quantity:     quantity,
		Cost:         gained,
		Gained:       gained,
		SoldPrice:    price,
		FromExchange: true,
		OrderID:      p.newID(),
	}, nil
}
