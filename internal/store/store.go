// Package store provides the string-keyed persistence used for trades,
// trading policy and statistics.
package store

import "context"

// Store is eventually-durable key/value storage with no transactions
// spanning several keys.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// GetOrSet returns the existing non-empty value, or stores and returns value.
	GetOrSet(ctx context.Context, key, value string) (string, error)
	// Increment adds one to a numeric value (missing or malformed counts as 0)
	// and returns the value it held before.
	Increment(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
