package tick

import (
	"context"
	"encoding/json"
	"fmt"

	"tradehelper/internal/store"
	"tradehelper/internal/trade"
	"tradehelper/pkg/num"
)

const (
	StatisticsKey  = "statistics"
	TradesCountKey = "trades-count"
)

// Journal keeps a durable record of every closed trade.
type Journal interface {
	RecordTrade(ctx context.Context, t trade.ClosedTrade) error
}

// Stats is the stored form of realized profit.
type Stats struct {
	TotalProfit float64            `json:"totalProfit"`
	DailyProfit map[string]float64 `json:"dailyProfit"`
}

// Statistics accumulates realized profit during a tick and merges it into the
// store on Flush.
type Statistics struct {
	store   store.Store
	journal Journal
	pending map[string]float64
}

func NewStatistics(s store.Store, journal Journal) *Statistics {
	return &Statistics{store: s, journal: journal, pending: make(map[string]float64)}
}

// AddClosed records a closed trade: its profit is staged for Flush, the trade
// counter is incremented and the journal, if any, receives the trade.
func (s *Statistics) AddClosed(ctx context.Context, closed trade.ClosedTrade) error {
	day := closed.ClosedAt.UTC().Format("2006-01-02")
	s.pending[day] = num.SumWithMaxPrecision(s.pending[day], closed.Profit)

	if _, err := s.store.Increment(ctx, TradesCountKey); err != nil {
		return fmt.Errorf("failed to count trade: %w", err)
	}
	if s.journal != nil {
		if err := s.journal.RecordTrade(ctx, closed); err != nil {
			return fmt.Errorf("failed to journal trade: %w", err)
		}
	}
	return nil
}

func (s *Statistics) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	stats, err := s.Get(ctx)
	if err != nil {
		return err
	}
	for day, profit := range s.pending {
		stats.DailyProfit[day] = num.SumWithMaxPrecision(stats.DailyProfit[day], profit)
		stats.TotalProfit = num.SumWithMaxPrecision(stats.TotalProfit, profit)
	}

	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode statistics: %w", err)
	}
	if err := s.store.Set(ctx, StatisticsKey, string(b)); err != nil {
		return fmt.Errorf("failed to save statistics: %w", err)
	}
	s.pending = make(map[string]float64)
	return nil
}

func (s *Statistics) Get(ctx context.Context) (Stats, error) {
	stats := Stats{DailyProfit: map[string]float64{}}
	raw, ok, err := s.store.Get(ctx, StatisticsKey)
	if err != nil {
		return stats, fmt.Errorf("failed to load statistics: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &stats); err != nil {
			return stats, fmt.Errorf("failed to decode statistics: %w", err)
		}
		if stats.DailyProfit == nil {
			stats.DailyProfit = map[string]float64{}
		}
	}
	return stats, nil
}
