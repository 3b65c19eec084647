package postgres

import "time"

// KVRecord is one key of the trading state store.
type KVRecord struct {
	Key       string    `gorm:"primaryKey;type:text"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (KVRecord) TableName() string {
	return "kv_record"
}

// TradeRecord is a closed trade kept for reporting.
type TradeRecord struct {
	ID uint `gorm:"primaryKey"`

	Coin       string    `gorm:"type:varchar(20);not null;index:idx_trade_coin_closed"`
	StableCoin string    `gorm:"type:varchar(20);not null"`
	ClosedAt   time.Time `gorm:"not null;index:idx_trade_coin_closed;index:idx_trade_closed_at"`

	Quantity   float64 `gorm:"type:numeric;not null"`
	Paid       float64 `gorm:"type:numeric;not null"`
	Gained     float64 `gorm:"type:numeric;not null"`
	Commission float64 `gorm:"type:numeric;not null"`
	SoldPrice  float64 `gorm:"type:numeric;not null"`
	Profit     float64 `gorm:"type:numeric;not null"`

	OrderID string `gorm:"type:text"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (TradeRecord) TableName() string {
	return "trade_record"
}
