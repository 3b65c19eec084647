// Package anomaly classifies short-term pumps and dumps and turns them into
// trade intents.
package anomaly

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"tradehelper/config"
	"tradehelper/internal/cache"
	"tradehelper/internal/trade"
	"tradehelper/logger"
	"tradehelper/pkg/metrics"
	"tradehelper/pkg/num"

	"go.uber.org/zap"
)

type PriceAnomaly int

const (
	None PriceAnomaly = iota
	Pump
	Dump
	Tracking
)

func (a PriceAnomaly) String() string {
	switch a {
	case Pump:
		return "PUMP"
	case Dump:
		return "DUMP"
	case Tracking:
		return "TRACKING"
	default:
		return "NONE"
	}
}

const (
	// TrackingWindow is how long a coin stays TRACKING after its last strong move.
	TrackingWindow = 90 * time.Second
	// AnchorWindow keeps the anchor alive past the tracking window so it can be evaluated.
	AnchorWindow = 2 * TrackingWindow
)

func trackingKey(coin string) string   { return coin + "-pump-dump-tracking" }
func startPriceKey(coin string) string { return coin + "-start-price" }

// Buyer receives buy intents.
type Buyer interface {
	Buy(ctx context.Context, coin string) error
}

// Positions gives access to the memos of the current tick.
type Positions interface {
	Update(coin string, fn func(tm *trade.TradeMemo), init func() *trade.TradeMemo)
}

type Detector struct {
	cache     cache.Cache
	buyer     Buyer
	positions Positions
	log       *zap.Logger
}

func NewDetector(c cache.Cache, buyer Buyer, positions Positions, log *zap.Logger) *Detector {
	return &Detector{cache: c, buyer: buyer, positions: positions, log: log}
}

// Run classifies every coin in buffers and acts on pumps and dumps. With both
// BuyDumps and SellPumps disabled it returns without touching the cache.
func (d *Detector) Run(ctx context.Context, cfg config.TradingConfig, buffers map[string]*trade.PriceBuffer) (map[string]PriceAnomaly, error) {
	if !cfg.BuyDumps && !cfg.SellPumps {
		return nil, nil
	}

	coins := make([]string, 0, len(buffers))
	for coin, b := range buffers {
		if b.Len() > 0 {
			coins = append(coins, coin)
		}
	}
	sort.Strings(coins)

	b, err := readBatch(ctx, d.cache, coins)
	if err != nil {
		return nil, err
	}

	results := make(map[string]PriceAnomaly, len(coins))
	for _, coin := range coins {
		anomaly := d.classify(b, coin, buffers[coin], cfg.PriceAnomalyAlert)
		results[coin] = anomaly
		d.handle(ctx, cfg, coin, anomaly)
	}

	if err := b.flush(ctx, d.cache); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Detector) classify(b *batch, coin string, prices *trade.PriceBuffer, alert float64) PriceAnomaly {
	tKey, aKey := trackingKey(coin), startPriceKey(coin)
	_, tracking := b.get(tKey)
	storedAnchor, hasAnchor := b.get(aKey)

	if up, down := prices.GoesStrongUp(), prices.GoesStrongDown(); up || down {
		b.put(tKey, "true", TrackingWindow)
		anchor := storedAnchor
		if !tracking || !hasAnchor {
			extreme := prices.Max()
			if up {
				extreme = prices.Min()
			}
			anchor = strconv.FormatFloat(extreme, 'f', -1, 64)
		}
		b.put(aKey, anchor, AnchorWindow)
		return Tracking
	}
	if tracking {
		return Tracking
	}
	if !hasAnchor {
		return None
	}

	b.remove(aKey)
	anchor, err := strconv.ParseFloat(storedAnchor, 64)
	if err != nil {
		d.log.Warn("dropping unreadable anomaly anchor", zap.String("coin", coin), zap.String("value", storedAnchor))
		return None
	}

	current := prices.CurrentPrice()
	percent := num.AbsPercentageChange(anchor, current)
	if alert > 0 && percent < alert {
		return None
	}

	switch {
	case anchor > current:
		logger.Alert(d.log, fmt.Sprintf("%s price dumped for %v%%: %v -> %v", coin, percent, anchor, current))
		return Dump
	case anchor < current:
		logger.Alert(d.log, fmt.Sprintf("%s price pumped for %v%%: %v -> %v", coin, percent, anchor, current))
		return Pump
	default:
		return None
	}
}

func (d *Detector) handle(ctx context.Context, cfg config.TradingConfig, coin string, anomaly PriceAnomaly) {
	if anomaly == Pump || anomaly == Dump {
		metrics.Anomalies.WithLabelValues(anomaly.String()).Inc()
	}

	switch {
	case anomaly == Dump && cfg.BuyDumps:
		logger.Alert(d.log, fmt.Sprintf("Buying price dumps is enabled: %s will be bought.", coin))
		if err := d.buyer.Buy(ctx, coin); err != nil {
			d.log.Error("failed to buy price dump", zap.String("coin", coin), zap.Error(err))
		}
	case anomaly == Pump && cfg.SellPumps:
		d.positions.Update(coin, func(tm *trade.TradeMemo) {
			if tm.StateIs(trade.StateBought) && tm.Profit() > 0 {
				logger.Alert(d.log, fmt.Sprintf("Selling price pumps is enabled: %s will be sold.", coin))
				tm.SetState(trade.StateSell)
			}
		}, nil)
	}
}
