// Package prices keeps the rolling price window of every tracked coin.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tradehelper/internal/cache"
	"tradehelper/internal/trade"

	"go.uber.org/zap"
)

// Expiration drops the stored windows when ticks stop running.
const Expiration = 10 * time.Minute

// Source returns the latest price of every symbol, keyed by symbol name.
type Source interface {
	Prices(ctx context.Context) (map[string]float64, error)
}

// Provider updates the windows once per tick.
type Provider struct {
	source   Source
	cache    cache.Cache
	capacity int
	log      *zap.Logger
}

func NewProvider(source Source, c cache.Cache, capacity int, log *zap.Logger) *Provider {
	return &Provider{
		source:   source,
		cache:    c,
		capacity: capacity,
		log:      log,
	}
}

func cacheKey(stableCoin string) string {
	return "prices-" + stableCoin
}

// Update reads the stored windows with one cache read, pushes the current
// price of every tracked coin and writes them back. An empty coins list
// tracks every symbol quoted in stableCoin.
func (p *Provider) Update(ctx context.Context, stableCoin string, coins []string) (map[string]*trade.PriceBuffer, error) {
	latest, err := p.source.Prices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}

	key := cacheKey(stableCoin)
	cached, err := p.cache.GetAll(ctx, []string{key})
	if err != nil {
		return nil, fmt.Errorf("failed to read price windows: %w", err)
	}
	stored := map[string][]float64{}
	if raw, ok := cached[key]; ok {
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			p.log.Warn("discarding unreadable price windows", zap.String("key", key), zap.Error(err))
			stored = map[string][]float64{}
		}
	}

	buffers := make(map[string]*trade.PriceBuffer)
	for coin, price := range trackedPrices(latest, stableCoin, coins) {
		b := trade.NewPriceBuffer(p.capacity, stored[coin]...)
		b.Push(price)
		buffers[coin] = b
	}

	out := make(map[string][]float64, len(buffers))
	for coin, b := range buffers {
		out[coin] = b.Prices()
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode price windows: %w", err)
	}
	if err := p.cache.PutAll(ctx, map[string]cache.Entry{key: {Value: string(raw), Expiration: Expiration}}); err != nil {
		return nil, fmt.Errorf("failed to write price windows: %w", err)
	}

	p.log.Debug("prices updated", zap.String("stableCoin", stableCoin), zap.Int("coins", len(buffers)))
	return buffers, nil
}

func trackedPrices(latest map[string]float64, stableCoin string, coins []string) map[string]float64 {
	out := make(map[string]float64)
	if len(coins) > 0 {
		for _, coin := range coins {
			coin = strings.ToUpper(coin)
			if price, ok := latest[coin+stableCoin]; ok && price > 0 {
				out[coin] = price
			}
		}
		return out
	}
	for symbol, price := range latest {
		coin, ok := strings.CutSuffix(symbol, stableCoin)
		if !ok || coin == "" || coin == stableCoin || price <= 0 {
			continue
		}
		out[coin] = price
	}
	return out
}
