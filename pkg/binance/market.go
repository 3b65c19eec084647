package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"tradehelper/internal/trade"
	"tradehelper/pkg/num"

	"github.com/pkg/errors"
)

// Prices returns the latest price of every symbol, keyed by symbol name.
func (c *Client) Prices(ctx context.Context) (map[string]float64, error) {
	var tickers []tickerPrice
	if err := c.fetch(ctx, http.MethodGet, public("ticker/price", ""), &tickers); err != nil {
		return nil, errors.Wrap(err, "failed to get prices")
	}
	prices := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		p, err := strconv.ParseFloat(t.Price, 64)
		if err != nil {
			continue
		}
		prices[t.Symbol] = p
	}
	return prices, nil
}

// KlineOpenPrices returns the open price of the latest limit klines.
func (c *Client) KlineOpenPrices(ctx context.Context, symbol trade.Symbol, interval string, limit int) ([]float64, error) {
	c.log.Debug(fmt.Sprintf("fetching latest kline open prices for %s, interval: %s, limit: %d", symbol, interval, limit))

	var klines [][]any
	query := fmt.Sprintf("symbol=%s&interval=%s&limit=%d", symbol, interval, limit)
	if err := c.fetch(ctx, http.MethodGet, public("klines", query), &klines); err != nil {
		return nil, errors.Wrapf(err, "failed to get latest kline open prices for %s", symbol)
	}

	out := make([]float64, 0, len(klines))
	for _, k := range klines {
		if len(k) < 2 {
			continue
		}
		open, ok := k[1].(string)
		if !ok {
			continue
		}
		p, _ := num.ParseDecimal(open).Float64()
		out = append(out, p)
	}
	return out, nil
}

// Imbalance compares bid volume above bidCutOff with ask volume below the
// mirrored cut-off around the mid price. The result is in [-1, 1]; positive
// means buyers dominate. An empty side yields 0.
func (c *Client) Imbalance(ctx context.Context, symbol trade.Symbol, limit int, bidCutOff float64) (float64, error) {
	var depth depthResponse
	query := fmt.Sprintf("symbol=%s&limit=%d", symbol, limit)
	if err := c.fetch(ctx, http.MethodGet, public("depth", query), &depth); err != nil {
		return 0, errors.Wrapf(err, "failed to get depth for %s", symbol)
	}
	return imbalance(depth, bidCutOff), nil
}

func imbalance(depth depthResponse, bidCutOff float64) float64 {
	level := func(l [2]string) (float64, float64) {
		p, _ := strconv.ParseFloat(l[0], 64)
		q, _ := strconv.ParseFloat(l[1], 64)
		return p, q
	}

	bidsVol := 0.0
	for _, b := range depth.Bids {
		if p, q := level(b); p > bidCutOff {
			bidsVol += q
		}
	}

	var topBid, topAsk float64
	if len(depth.Bids) > 0 {
		topBid, _ = level(depth.Bids[0])
	}
	if len(depth.Asks) > 0 {
		topAsk, _ = level(depth.Asks[0])
	}
	mid := (topBid + topAsk) / 2
	if bidCutOff <= 0 {
		return 0
	}
	askCutOff := mid * (mid / bidCutOff)

	asksVol := 0.0
	for _, a := range depth.Asks {
		if p, q := level(a); p < askCutOff {
			asksVol += q
		}
	}

	if bidsVol+asksVol == 0 {
		return 0
	}
	return (bidsVol - asksVol) / (bidsVol + asksVol)
}
