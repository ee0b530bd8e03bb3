package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

const Exchange = "binance"

type TradeRecord struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time       `gorm:"type:timestamptz;not null;index:idx_trades_symbol_timestamp,priority:2,sort:desc"`
	Symbol    string          `gorm:"type:varchar(20);not null;index:idx_trades_symbol_timestamp,priority:1"`
	Price     decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Volume    decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Side      string          `gorm:"type:varchar(4);not null"`
	Exchange  string          `gorm:"type:varchar(20);not null;default:binance"`
	CreatedAt time.Time       `gorm:"type:timestamptz"`
}

func (TradeRecord) TableName() string { return "trades" }

type LiquidationRecord struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time       `gorm:"type:timestamptz;not null;index:idx_liquidations_symbol_timestamp,priority:2,sort:desc"`
	Symbol    string          `gorm:"type:varchar(20);not null;index:idx_liquidations_symbol_timestamp,priority:1"`
	Side      string          `gorm:"type:varchar(5);not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,8);not null;index:idx_liquidations_amount,sort:desc"`
	Price     decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	// Leverage is unknown for exchange force orders and stays NULL.
	Leverage  *int      `gorm:"type:integer"`
	Exchange  string    `gorm:"type:varchar(20);not null;default:binance"`
	CreatedAt time.Time `gorm:"type:timestamptz"`
}

func (LiquidationRecord) TableName() string { return "liquidations" }

type VolumeRecord struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	Timestamp      time.Time       `gorm:"type:timestamptz;not null;index:idx_volume_symbol_timestamp,priority:2,sort:desc"`
	Symbol         string          `gorm:"type:varchar(20);not null;index:idx_volume_symbol_timestamp,priority:1"`
	Volume1m       decimal.Decimal `gorm:"column:volume_1m;type:numeric(28,8)"`
	Volume5m       decimal.Decimal `gorm:"column:volume_5m;type:numeric(28,8)"`
	Volume15m      decimal.Decimal `gorm:"column:volume_15m;type:numeric(28,8)"`
	Volume1h       decimal.Decimal `gorm:"column:volume_1h;type:numeric(28,8)"`
	AvgVolume      decimal.Decimal `gorm:"type:numeric(28,8)"`
	RelativeVolume decimal.Decimal `gorm:"type:numeric(12,4)"`
	CreatedAt      time.Time       `gorm:"type:timestamptz"`
}

func (VolumeRecord) TableName() string { return "volume_data" }

type ClimacticRecord struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement"`
	Timestamp          time.Time       `gorm:"type:timestamptz;not null;index:idx_climactic_symbol_timestamp,priority:2,sort:desc"`
	Symbol             string          `gorm:"type:varchar(20);not null;index:idx_climactic_symbol_timestamp,priority:1"`
	PriceChangePercent decimal.Decimal `gorm:"type:numeric(8,4);not null;index:idx_climactic_change,sort:desc"`
	VolumeSpike        decimal.Decimal `gorm:"type:numeric(28,8);not null"`
	Timeframe          string          `gorm:"type:varchar(5);not null"`
	Exchange           string          `gorm:"type:varchar(20);not null"`
	CreatedAt          time.Time       `gorm:"type:timestamptz"`
}

func (ClimacticRecord) TableName() string { return "climactic_moves" }

var _tables = []any{&TradeRecord{}, &LiquidationRecord{}, &VolumeRecord{}, &ClimacticRecord{}}
