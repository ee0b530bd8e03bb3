package model

import (
	"github.com/shopspring/decimal"

	"cryptoflow/internal/model/enum"
)

// Event is the canonical event union. Every variant carries a symbol and a
// millisecond timestamp.
type Event interface {
	Kind() enum.EventKind
	EventSymbol() string
	EventTime() int64
}

type Ticker struct {
	Symbol             string          `json:"symbol"`
	Price              decimal.Decimal `json:"price"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	Volume             decimal.Decimal `json:"volume"`
	QuoteVolume        decimal.Decimal `json:"quoteVolume"`
	High               decimal.Decimal `json:"high"`
	Low                decimal.Decimal `json:"low"`
	Open               decimal.Decimal `json:"open"`
	TimestampMs        int64           `json:"timestamp"`
}

func (Ticker) Kind() enum.EventKind  { return enum.EventTicker }
func (t Ticker) EventSymbol() string { return t.Symbol }
func (t Ticker) EventTime() int64    { return t.TimestampMs }

type AggTrade struct {
	Symbol       string          `json:"symbol"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	IsBuyerMaker bool            `json:"isBuyerMaker"`
	TimestampMs  int64           `json:"timestamp"`
	TradeID      int64           `json:"tradeId"`
}

func (AggTrade) Kind() enum.EventKind  { return enum.EventAggTrade }
func (a AggTrade) EventSymbol() string { return a.Symbol }
func (a AggTrade) EventTime() int64    { return a.TimestampMs }

// QuoteVolume is price * quantity.
func (a AggTrade) QuoteVolume() decimal.Decimal {
	return a.Price.Mul(a.Quantity)
}

// Side is the aggressor side: a buyer-maker trade was sold into.
func (a AggTrade) Side() string {
	if a.IsBuyerMaker {
		return "sell"
	}
	return "buy"
}

type Liquidation struct {
	Symbol               string          `json:"symbol"`
	Side                 string          `json:"side"`
	OrderType            string          `json:"orderType"`
	TimeInForce          string          `json:"timeInForce"`
	Quantity             decimal.Decimal `json:"qty"`
	Price                decimal.Decimal `json:"price"`
	AvgPrice             decimal.Decimal `json:"avgPrice"`
	Status               string          `json:"status"`
	LastFilledQty        decimal.Decimal `json:"lastFilledQty"`
	FilledAccumulatedQty decimal.Decimal `json:"filledAccumulatedQty"`
	TradeTimeMs          int64           `json:"tradeTime"`
}

func (Liquidation) Kind() enum.EventKind  { return enum.EventLiquidation }
func (l Liquidation) EventSymbol() string { return l.Symbol }
func (l Liquidation) EventTime() int64    { return l.TradeTimeMs }

// Notional is qty * price.
func (l Liquidation) Notional() decimal.Decimal {
	return l.Quantity.Mul(l.Price)
}

// Level is one [price, qty] book row.
type Level struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"qty"`
}

type DepthSnapshot struct {
	Symbol      string  `json:"symbol"`
	Bids        []Level `json:"bids"`
	Asks        []Level `json:"asks"`
	TimestampMs int64   `json:"timestamp"`
}

func (DepthSnapshot) Kind() enum.EventKind  { return enum.EventDepth }
func (d DepthSnapshot) EventSymbol() string { return d.Symbol }
func (d DepthSnapshot) EventTime() int64    { return d.TimestampMs }
