package binance

import (
	"context"
	"net/http"
	"strconv"

	"tradehelper/internal/trade"
	"tradehelper/pkg/num"

	"github.com/pkg/errors"
)

func (c *Client) symbolInfo(ctx context.Context, symbol trade.Symbol) (symbolInfo, error) {
	if info, ok := c.symbols[symbol.String()]; ok {
		return info, nil
	}
	var resp exchangeInfoResponse
	if err := c.fetch(ctx, http.MethodGet, public("exchangeInfo", "symbol="+symbol.String()), &resp); err != nil {
		return symbolInfo{}, errors.Wrapf(err, "failed to get exchange info for %s", symbol)
	}
	for _, info := range resp.Symbols {
		c.symbols[info.Symbol] = info
	}
	return c.symbols[symbol.String()], nil
}

func (c *Client) filter(ctx context.Context, symbol trade.Symbol, filterType string) (symbolFilter, error) {
	info, err := c.symbolInfo(ctx, symbol)
	if err != nil {
		return symbolFilter{}, err
	}
	for _, f := range info.Filters {
		if f.FilterType == filterType {
			return f, nil
		}
	}
	return symbolFilter{}, errors.Wrapf(ErrFilterNotFound, "%s for %s", filterType, symbol)
}

// LotSizePrecision is the number of decimals allowed in an order quantity.
func (c *Client) LotSizePrecision(ctx context.Context, symbol trade.Symbol) (int, error) {
	f, err := c.filter(ctx, symbol, "LOT_SIZE")
	if err != nil {
		return 0, err
	}
	return stepPrecision(f.StepSize), nil
}

// PricePrecision is the number of decimals allowed in an order price.
func (c *Client) PricePrecision(ctx context.Context, symbol trade.Symbol) (int, error) {
	f, err := c.filter(ctx, symbol, "PRICE_FILTER")
	if err != nil {
		return 0, err
	}
	return stepPrecision(f.TickSize), nil
}

// QuantityForLotStepSize floors quantity so it never exceeds what is held.
func (c *Client) QuantityForLotStepSize(ctx context.Context, symbol trade.Symbol, quantity float64) (float64, error) {
	precision, err := c.LotSizePrecision(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return num.Floor(quantity, precision), nil
}

func stepPrecision(step string) int {
	v, err := strconv.ParseFloat(step, 64)
	if err != nil {
		return 0
	}
	return num.Precision(v)
}
