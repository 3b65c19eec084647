// Package cache provides the best-effort, time-expiring cache used for
// anomaly tracking and rolling price windows.
package cache

import (
	"context"
	"time"
)

// Entry is a value with its time to live.
type Entry struct {
	Value      string
	Expiration time.Duration
}

// Cache is accessed in bulk only. Expired entries read back as absent.
type Cache interface {
	// GetAll returns the live entries among keys. Missing keys are omitted.
	GetAll(ctx context.Context, keys []string) (map[string]string, error)
	PutAll(ctx context.Context, entries map[string]Entry) error
	RemoveAll(ctx context.Context, keys []string) error
}
