// Package dao maps trading state onto the key/value store.
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"tradehelper/internal/store"
	"tradehelper/internal/trade"

	"go.uber.org/zap"
)

// TradesKey holds every memo as a JSON object keyed by coin.
const TradesKey = "trades"

// Trades is the tick-scoped set of memos: read once, mutated in place and
// written back once.
type Trades struct {
	store    store.Store
	capacity int
	log      *zap.Logger
	memos    map[string]*trade.TradeMemo
}

func NewTrades(s store.Store, capacity int, log *zap.Logger) *Trades {
	return &Trades{
		store:    s,
		capacity: capacity,
		log:      log,
		memos:    make(map[string]*trade.TradeMemo),
	}
}

// Load replaces the in-memory set with the stored one. Records that fail
// validation are logged and dropped.
func (d *Trades) Load(ctx context.Context) error {
	raw, ok, err := d.store.Get(ctx, TradesKey)
	if err != nil {
		return fmt.Errorf("failed to load trades: %w", err)
	}
	d.memos = make(map[string]*trade.TradeMemo)
	if !ok || raw == "" {
		return nil
	}

	var records map[string]trade.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return fmt.Errorf("failed to decode trades: %w", err)
	}
	for coin, r := range records {
		tm, err := trade.FromRecord(r, d.capacity)
		if err != nil {
			d.log.Warn("dropping invalid trade record", zap.String("coin", coin), zap.Error(err))
			continue
		}
		d.memos[tm.Coin()] = tm
	}
	return nil
}

func (d *Trades) Get(coin string) (*trade.TradeMemo, bool) {
	tm, ok := d.memos[coin]
	return tm, ok
}

// Update applies fn to the memo of coin. When the memo does not exist, init
// creates it; a nil init makes Update a no-op for unknown coins.
func (d *Trades) Update(coin string, fn func(tm *trade.TradeMemo), init func() *trade.TradeMemo) {
	tm, ok := d.memos[coin]
	if !ok {
		if init == nil {
			return
		}
		tm = init()
		d.memos[coin] = tm
	}
	fn(tm)
}

// All returns the memos ordered by coin.
func (d *Trades) All() []*trade.TradeMemo {
	coins := make([]string, 0, len(d.memos))
	for coin := range d.memos {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	out := make([]*trade.TradeMemo, 0, len(coins))
	for _, coin := range coins {
		out = append(out, d.memos[coin])
	}
	return out
}

// Save writes the set back, dropping memos marked as deleted.
func (d *Trades) Save(ctx context.Context) error {
	records := make(map[string]trade.Record, len(d.memos))
	for coin, tm := range d.memos {
		if tm.Deleted {
			delete(d.memos, coin)
			continue
		}
		records[coin] = tm.Record()
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode trades: %w", err)
	}
	if err := d.store.Set(ctx, TradesKey, string(b)); err != nil {
		return fmt.Errorf("failed to save trades: %w", err)
	}
	return nil
}
