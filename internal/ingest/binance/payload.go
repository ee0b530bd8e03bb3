package binance

import "encoding/json"

// combined is the wrapper used by /stream?streams=... endpoints.
type combined struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// MiniTicker is the 24h rolling window mini ticker (!miniTicker@arr).
// P is only present on the full ticker stream.
type MiniTicker struct {
	EventType          string `json:"e"`
	EventTime          int64  `json:"E"`
	Symbol             string `json:"s"`
	Close              string `json:"c"`
	Open               string `json:"o"`
	High               string `json:"h"`
	Low                string `json:"l"`
	Volume             string `json:"v"`
	QuoteVolume        string `json:"q"`
	PriceChangePercent string `json:"P"`
}

type AggTrade struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	AggTradeID   int64  `json:"a"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

type ForceOrder struct {
	EventType string          `json:"e"`
	EventTime int64           `json:"E"`
	Order     ForceOrderOrder `json:"o"`
}

type ForceOrderOrder struct {
	Symbol               string `json:"s"`
	Side                 string `json:"S"`
	OrderType            string `json:"o"`
	TimeInForce          string `json:"f"`
	Quantity             string `json:"q"`
	Price                string `json:"p"`
	AvgPrice             string `json:"ap"`
	Status               string `json:"X"`
	LastFilledQty        string `json:"l"`
	FilledAccumulatedQty string `json:"z"`
	TradeTime            int64  `json:"T"`
}

// PartialDepth is the partial book depth payload (<symbol>@depth5@1000ms).
// The spot stream carries no symbol, it is taken from the stream name.
type PartialDepth struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	EventTime    int64       `json:"E"`
	Symbol       string      `json:"s"`
	Bids         [][2]string `json:"bids"` // [0]price [1]quantity
	Asks         [][2]string `json:"asks"` // [0]price [1]quantity
}

// Ticker24h is one row of GET /api/v3/ticker/24hr.
type Ticker24h struct {
	Symbol             string `json:"symbol"`
	PriceChangePercent string `json:"priceChangePercent"`
	WeightedAvgPrice   string `json:"weightedAvgPrice"`
	LastPrice          string `json:"lastPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	Count              int64  `json:"count"`
}
