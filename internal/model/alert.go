package model

import (
	"github.com/shopspring/decimal"

	"cryptoflow/internal/model/enum"
)

// ClimacticMove is derived from a Ticker whose 24h change and quote volume
// both cross the climactic thresholds.
type ClimacticMove struct {
	Symbol             string          `json:"symbol"`
	Price              decimal.Decimal `json:"price"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	Volume             decimal.Decimal `json:"volume"`
	QuoteVolume        decimal.Decimal `json:"quoteVolume"`
	Timeframe          string          `json:"timeframe"`
	Alert              bool            `json:"alert"`
	Sound              bool            `json:"sound"`
	TimestampMs        int64           `json:"timestamp"`
}

func (ClimacticMove) Kind() enum.EventKind  { return enum.EventClimacticMove }
func (c ClimacticMove) EventSymbol() string { return c.Symbol }
func (c ClimacticMove) EventTime() int64    { return c.TimestampMs }

// LiquidationAlert is derived from a Liquidation above the notional threshold.
type LiquidationAlert struct {
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	AmountUSD   decimal.Decimal `json:"amount"`
	Price       decimal.Decimal `json:"price"`
	Alert       bool            `json:"alert"`
	Sound       bool            `json:"sound"`
	TimestampMs int64           `json:"timestamp"`
}

func (LiquidationAlert) Kind() enum.EventKind  { return enum.EventLiquidationAlert }
func (l LiquidationAlert) EventSymbol() string { return l.Symbol }
func (l LiquidationAlert) EventTime() int64    { return l.TimestampMs }
