package postgres

import (
	"context"
	"time"

	"tradehelper/internal/trade"
)

// RecordTrade appends a closed trade to the journal.
func (p *PostgresClient) RecordTrade(ctx context.Context, t trade.ClosedTrade) error {
	return p.DB.WithContext(ctx).Create(ToTradeRecord(t)).Error
}

// ListTrades returns the trades of coin closed at or after since, newest first.
// An empty coin lists every coin.
func (p *PostgresClient) ListTrades(ctx context.Context, coin string, since time.Time) ([]TradeRecord, error) {
	q := p.DB.WithContext(ctx).Where("closed_at >= ?", since)
	if coin != "" {
		q = q.Where("coin = ?", coin)
	}
	var records []TradeRecord
	if err := q.Order("closed_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (p *PostgresClient) DeleteOldTrades(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("closed_at < ?", before).
		Delete(&TradeRecord{}).Error
}

// ToTradeRecord converts a closed trade into a TradeRecord for DB insertion.
func ToTradeRecord(t trade.ClosedTrade) *TradeRecord {
	return &TradeRecord{
		Coin:       t.Symbol.Quantity,
		StableCoin: t.Symbol.Price,
		ClosedAt:   t.ClosedAt.UTC(),
		Quantity:   t.Quantity,
		Paid:       t.Paid,
		Gained:     t.Gained,
		Commission: t.Commission,
		SoldPrice:  t.SoldPrice,
		Profit:     t.Profit,
		OrderID:    t.OrderID,
	}
}
