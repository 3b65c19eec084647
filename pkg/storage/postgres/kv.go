package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KV stores the trading state in the kv_record table.
type KV struct {
	db *gorm.DB
}

func (p *PostgresClient) KV() *KV {
	return &KV{db: p.DB}
}

func (s *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var rec KVRecord
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return rec.Value, true, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	return upsert(s.db.WithContext(ctx), key, value)
}

func (s *KV) GetOrSet(ctx context.Context, key, value string) (string, error) {
	var out string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec KVRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("key = ?", key).First(&rec).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil && rec.Value != "" {
			out = rec.Value
			return nil
		}
		out = value
		return upsert(tx, key, value)
	})
	if err != nil {
		return "", fmt.Errorf("get or set %s: %w", key, err)
	}
	return out, nil
}

// Increment returns the previous value. It locks the row so concurrent
// increments are serialized.
func (s *KV) Increment(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec KVRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("key = ?", key).First(&rec).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		current, perr := strconv.ParseInt(strings.TrimSpace(rec.Value), 10, 64)
		if perr != nil {
			current = 0
		}
		n = current
		return upsert(tx, key, strconv.FormatInt(n+1, 10))
	})
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return n, nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&KVRecord{}).Error
}

func (s *KV) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&KVRecord{}).Order("key").Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func upsert(db *gorm.DB, key, value string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&KVRecord{Key: key, Value: value}).Error
}
