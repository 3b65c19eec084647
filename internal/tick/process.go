// Package tick runs one bounded pass of the trading engine: prices, lifecycle,
// stable balance, anomalies and persistence.
package tick

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradehelper/config"
	"tradehelper/internal/anomaly"
	"tradehelper/internal/cache"
	"tradehelper/internal/dao"
	"tradehelper/internal/prices"
	"tradehelper/internal/store"
	"tradehelper/internal/trade"
	"tradehelper/logger"
	"tradehelper/pkg/metrics"

	"go.uber.org/zap"
)

// ExchangeFactory builds the venue for one tick, so per-tick caches such as
// balances start empty.
type ExchangeFactory func(cfg config.TradingConfig) Exchange

type Process struct {
	store       store.Store
	cache       cache.Cache
	source      prices.Source
	newExchange ExchangeFactory
	journal     Journal
	defaults    config.TradingConfig
	log         *zap.Logger
	now         func() time.Time
}

type Option func(*Process)

// WithJournal records every closed trade, e.g. in postgres.
func WithJournal(j Journal) Option {
	return func(p *Process) { p.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(p *Process) { p.now = now }
}

func NewProcess(
	s store.Store,
	c cache.Cache,
	source prices.Source,
	newExchange ExchangeFactory,
	defaults config.TradingConfig,
	log *zap.Logger,
	opts ...Option,
) *Process {
	p := &Process{
		store:       s,
		cache:       c,
		source:      source,
		newExchange: newExchange,
		defaults:    defaults,
		log:         log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tick runs every stage once. A failing stage is reported as an alert and
// does not stop the following ones; all stage errors are returned joined.
func (p *Process) Tick(ctx context.Context) (err error) {
	tickStart := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.Ticks.WithLabelValues(result).Inc()
	}()

	configDao := dao.NewConfig(p.store, p.defaults)
	sw := metrics.StartStage("config")
	cfg, err := configDao.Get(ctx)
	if err != nil {
		logger.Alert(p.log, fmt.Sprintf("Failed to load config: %v", err))
		return err
	}
	p.log.Debug("config loaded", zap.Duration("took", sw.Stop()))

	trades := dao.NewTrades(p.store, cfg.PriceBufferCapacity, p.log)
	sw = metrics.StartStage("trades-load")
	if err := trades.Load(ctx); err != nil {
		// saving an empty set would wipe the stored positions
		logger.Alert(p.log, fmt.Sprintf("Failed to load trades: %v", err))
		return err
	}
	p.log.Debug("trades loaded", zap.Duration("took", sw.Stop()))

	exchange := p.newExchange(cfg)
	stats := NewStatistics(p.store, p.journal)
	actions := NewActions(trades, cfg.StableCoin, cfg.PriceBufferCapacity, p.log)
	t := &trader{exchange: exchange, trades: trades, stats: stats, log: p.log, now: p.now}
	provider := prices.NewProvider(p.source, p.cache, cfg.PriceBufferCapacity, p.log)
	detector := anomaly.NewDetector(p.cache, actions, trades, p.log)

	var errs []error
	stage := func(name string, fn func() error) {
		sw := metrics.StartStage(name)
		if err := fn(); err != nil {
			logger.Alert(p.log, fmt.Sprintf("Failed to run %s: %v", name, err))
			p.log.Error("stage failed", zap.String("stage", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		p.log.Debug("stage done", zap.String("stage", name), zap.Duration("took", sw.Stop()))
	}

	buffers := map[string]*trade.PriceBuffer{}
	stage("prices-update", func() error {
		updated, err := provider.Update(ctx, cfg.StableCoin, trackedCoins(cfg, trades))
		if err != nil {
			return err
		}
		buffers = updated
		actions.usePrices(buffers)
		return nil
	})

	stage("trades-check", func() error {
		if failed := t.tradeAll(ctx, cfg, buffers); failed > 0 {
			return fmt.Errorf("%d coin(s) failed", failed)
		}
		return nil
	})

	stage("stable-balance-update", func() error {
		return p.updateStableBalance(ctx, configDao, cfg, exchange, t.balanceDelta)
	})

	stage("anomalies-check", func() error {
		results, err := detector.Run(ctx, cfg, buffers)
		for coin, a := range results {
			if a == anomaly.Pump || a == anomaly.Dump {
				p.log.Info("price anomaly", zap.String("coin", coin), zap.Stringer("anomaly", a))
			}
		}
		return err
	})

	stage("trades-save", func() error { return trades.Save(ctx) })
	stage("statistics-flush", func() error { return stats.Flush(ctx) })

	return errors.Join(errs...)
}

// updateStableBalance reads the balance from the account when it is unknown,
// otherwise applies the fills of this tick to the stored value.
func (p *Process) updateStableBalance(
	ctx context.Context,
	configDao *dao.Config,
	cfg config.TradingConfig,
	exchange Exchange,
	delta float64,
) error {
	if cfg.StableBalance == -1 {
		balance, err := exchange.Balance(ctx, cfg.StableCoin)
		if err != nil {
			return err
		}
		p.log.Info("stable balance initialized", zap.String("coin", cfg.StableCoin), zap.Float64("balance", balance))
		return configDao.SetStableBalance(ctx, balance)
	}
	if delta == 0 {
		return nil
	}
	return configDao.SetStableBalance(ctx, max(0, cfg.StableBalance+delta))
}

// Intent applies a manual action outside of a tick and saves the result.
func (p *Process) Intent(ctx context.Context, fn func(ctx context.Context, a *Actions) error) error {
	cfg, err := dao.NewConfig(p.store, p.defaults).Get(ctx)
	if err != nil {
		return err
	}
	trades := dao.NewTrades(p.store, cfg.PriceBufferCapacity, p.log)
	if err := trades.Load(ctx); err != nil {
		return err
	}
	if err := fn(ctx, NewActions(trades, cfg.StableCoin, cfg.PriceBufferCapacity, p.log)); err != nil {
		return err
	}
	return trades.Save(ctx)
}

// trackedCoins is nil (every symbol) unless a watch list is configured, in
// which case open positions are added so they keep receiving prices.
func trackedCoins(cfg config.TradingConfig, trades *dao.Trades) []string {
	if len(cfg.Coins) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var coins []string
	for _, c := range cfg.Coins {
		if !seen[c] {
			seen[c] = true
			coins = append(coins, c)
		}
	}
	for _, tm := range trades.All() {
		if !seen[tm.Coin()] {
			seen[tm.Coin()] = true
			coins = append(coins, tm.Coin())
		}
	}
	return coins
}
