package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradehelper/config"
	"tradehelper/internal/cache"
	"tradehelper/internal/prices"
	"tradehelper/internal/store"
	"tradehelper/internal/tick"
	"tradehelper/logger"
	"tradehelper/pkg/binance"
	"tradehelper/pkg/storage/postgres"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// app holds the wired engine and the resources to release on exit.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   store.Store
	process *tick.Process
	pg      *postgres.PostgresClient
	closers []func() error
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() error { _ = log.Sync(); return nil })

	var opts []tick.Option
	var db *badger.DB
	openBadger := func() (*badger.DB, error) {
		if db != nil {
			return db, nil
		}
		var err error
		if db, err = store.OpenBadger(cfg.Storage.BadgerDir); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return db, nil
	}

	switch cfg.Storage.Store {
	case "memory":
		a.store = store.NewMemoryStore()
	case "badger":
		bdb, err := openBadger()
		if err != nil {
			return a, err
		}
		a.store = store.NewBadgerStore(bdb)
	case "postgres":
		pg, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Environment, cfg.Environment != "prod")
		if err != nil {
			return a, err
		}
		a.pg = pg
		a.closers = append(a.closers, pg.Close)
		a.store = pg.KV()
		opts = append(opts, tick.WithJournal(pg))
	default:
		return a, fmt.Errorf("unknown store %q", cfg.Storage.Store)
	}

	var c cache.Cache
	switch cfg.Storage.Cache {
	case "memory":
		c = cache.NewMemoryCache()
	case "badger":
		bdb, err := openBadger()
		if err != nil {
			return a, err
		}
		c = cache.NewBadgerCache(bdb)
	default:
		return a, fmt.Errorf("unknown cache %q", cfg.Storage.Cache)
	}

	source, err := priceSource(cfg.Binance, log)
	if err != nil {
		return a, err
	}

	a.process = tick.NewProcess(a.store, c, source, exchangeFactory(cfg.Binance, source, log), cfg.Trading, log, opts...)
	return a, nil
}

func priceSource(cfg config.BinanceConfig, log *zap.Logger) (prices.Source, error) {
	switch cfg.PriceSource {
	case "rest":
		return binance.NewClient(cfg, log.Named("prices")), nil
	case "ws":
		return binance.NewTickerStream(cfg.StreamURL, log.Named("stream")), nil
	default:
		return nil, fmt.Errorf("unknown price source %q", cfg.PriceSource)
	}
}

// exchangeFactory builds a fresh venue every tick. Dry runs trade on paper
// seeded with the known stable balance.
func exchangeFactory(cfg config.BinanceConfig, source prices.Source, log *zap.Logger) tick.ExchangeFactory {
	return func(tc config.TradingConfig) tick.Exchange {
		if tc.DryRun {
			balance := tc.PaperBalance
			if tc.StableBalance >= 0 {
				balance = tc.StableBalance
			}
			return binance.NewPaper(source, map[string]float64{tc.StableCoin: balance}, log.Named("paper"))
		}
		return binance.NewClient(cfg, log.Named("binance"))
	}
}

// tick runs one tick and, with the postgres journal, drops trades older than
// the retention.
func (a *app) tick(ctx context.Context) error {
	err := a.process.Tick(ctx)
	if a.pg == nil || a.cfg.Postgres.TradeRetention <= 0 {
		return err
	}
	if perr := a.pg.DeleteOldTrades(ctx, time.Now().Add(-a.cfg.Postgres.TradeRetention)); perr != nil {
		a.log.Error("failed to prune trade journal", zap.Error(perr))
		err = errors.Join(err, perr)
	}
	return err
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
