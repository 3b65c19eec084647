package anomaly

import (
	"context"
	"fmt"
	"time"

	"tradehelper/internal/cache"
)

// batch stages all cache I/O of one detector pass: one bulk read up front,
// one bulk write and one bulk removal on flush.
type batch struct {
	reads    map[string]string
	writes   map[string]cache.Entry
	removals []string
}

func readBatch(ctx context.Context, c cache.Cache, coins []string) (*batch, error) {
	keys := make([]string, 0, 2*len(coins))
	for _, coin := range coins {
		keys = append(keys, trackingKey(coin), startPriceKey(coin))
	}
	reads, err := c.GetAll(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to read anomaly tracking: %w", err)
	}
	if reads == nil {
		reads = map[string]string{}
	}
	return &batch{reads: reads, writes: map[string]cache.Entry{}}, nil
}

func (b *batch) get(key string) (string, bool) {
	v, ok := b.reads[key]
	return v, ok && v != ""
}

func (b *batch) put(key, value string, expiration time.Duration) {
	b.writes[key] = cache.Entry{Value: value, Expiration: expiration}
}

func (b *batch) remove(key string) {
	b.removals = append(b.removals, key)
}

func (b *batch) flush(ctx context.Context, c cache.Cache) error {
	if err := c.PutAll(ctx, b.writes); err != nil {
		return fmt.Errorf("failed to write anomaly tracking: %w", err)
	}
	if err := c.RemoveAll(ctx, b.removals); err != nil {
		return fmt.Errorf("failed to remove anomaly anchors: %w", err)
	}
	return nil
}
