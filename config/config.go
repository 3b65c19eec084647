package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"` // "dev" or "prod"
	Binance     BinanceConfig  `mapstructure:"binance"`
	Trading     TradingConfig  `mapstructure:"trading"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Schedule    ScheduleConfig `mapstructure:"schedule"`
	Log         LogConfig      `mapstructure:"log"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
}

type BinanceConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
	// ProxyURL replaces the public api{1,2,3}.binance.com rotation with a single host.
	ProxyURL      string        `mapstructure:"proxy_url"`
	StreamURL     string        `mapstructure:"stream_url"`
	PriceSource   string        `mapstructure:"price_source"` // "rest" or "ws"
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// TradingConfig is the trading policy. Values here are defaults; the stored
// "config" record overrides them at the start of every tick.
type TradingConfig struct {
	StableCoin string `mapstructure:"stable_coin" json:"StableCoin"`
	// StableBalance of -1 means it is read from the account on the next tick.
	StableBalance     float64 `mapstructure:"stable_balance" json:"StableBalance"`
	BuyQuantity       float64 `mapstructure:"buy_quantity" json:"BuyQuantity"`
	SellAtStopLimit   bool    `mapstructure:"sell_at_stop_limit" json:"SellAtStopLimit"`
	BuyDumps          bool    `mapstructure:"buy_dumps" json:"BuyDumps"`
	SellPumps         bool    `mapstructure:"sell_pumps" json:"SellPumps"`
	PriceAnomalyAlert float64 `mapstructure:"price_anomaly_alert" json:"PriceAnomalyAlert"`
	DryRun            bool    `mapstructure:"dry_run" json:"DryRun"`
	// PaperBalance seeds the dry-run venue when StableBalance is still -1.
	PaperBalance        float64  `mapstructure:"paper_balance" json:"PaperBalance"`
	ViewOnly            bool     `mapstructure:"view_only" json:"ViewOnly"`
	PriceBufferCapacity int      `mapstructure:"price_buffer_capacity" json:"PriceBufferCapacity"`
	Coins               []string `mapstructure:"coins" json:"Coins,omitempty"`
}

// StorageConfig selects the persistence and cache backends.
type StorageConfig struct {
	Store     string `mapstructure:"store"` // "memory", "badger" or "postgres"
	Cache     string `mapstructure:"cache"` // "memory" or "badger"
	BadgerDir string `mapstructure:"badger_dir"`
}

type ScheduleConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads .env (if present), then config.yaml, and overrides with environment variables.
// An empty path searches ./config and ../config next to the executable.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., BINANCE_API_KEY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Log.Environment == "" {
		cfg.Log.Environment = cfg.Environment
	}

	if cfg.Environment == "prod" {
		cfg.Binance.resolveSecrets()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("binance.price_source", "rest")
	v.SetDefault("binance.stream_url", "wss://stream.binance.com:9443/ws/!miniTicker@arr")
	v.SetDefault("binance.timeout", 10*time.Second)
	v.SetDefault("binance.retry_interval", 200*time.Millisecond)

	v.SetDefault("trading.stable_coin", "USDT")
	v.SetDefault("trading.stable_balance", -1)
	v.SetDefault("trading.buy_quantity", 15)
	v.SetDefault("trading.sell_at_stop_limit", true)
	v.SetDefault("trading.price_anomaly_alert", 5)
	v.SetDefault("trading.dry_run", true)
	v.SetDefault("trading.paper_balance", 1000)
	v.SetDefault("trading.price_buffer_capacity", 10)

	v.SetDefault("storage.store", "badger")
	v.SetDefault("storage.cache", "badger")
	v.SetDefault("storage.badger_dir", "data")

	v.SetDefault("schedule.interval", time.Minute)
	v.SetDefault("schedule.metrics_addr", ":9090")

	v.SetDefault("postgres.trade_retention", 90*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
