package dao

import (
	"context"
	"encoding/json"
	"fmt"

	"tradehelper/config"
	"tradehelper/internal/store"
)

// ConfigKey holds the stored overrides of the trading policy.
const ConfigKey = "config"

// Config reads the trading policy: file/env defaults overlaid with the
// fields present in the stored record.
type Config struct {
	store    store.Store
	defaults config.TradingConfig
}

func NewConfig(s store.Store, defaults config.TradingConfig) *Config {
	return &Config{store: s, defaults: defaults}
}

func (d *Config) Get(ctx context.Context) (config.TradingConfig, error) {
	cfg := d.defaults
	cfg.Coins = append([]string(nil), d.defaults.Coins...)

	raw, ok, err := d.store.Get(ctx, ConfigKey)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if !ok || raw == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return d.defaults, fmt.Errorf("failed to decode stored config: %w", err)
	}
	return cfg, nil
}

// SetStableBalance updates a single field of the stored record, keeping the
// fields it does not know about.
func (d *Config) SetStableBalance(ctx context.Context, balance float64) error {
	fields := map[string]any{}
	raw, ok, err := d.store.Get(ctx, ConfigKey)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return fmt.Errorf("failed to decode stored config: %w", err)
		}
	}
	fields["StableBalance"] = balance

	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := d.store.Set(ctx, ConfigKey, string(b)); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
