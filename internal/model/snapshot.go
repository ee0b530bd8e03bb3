package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type LiquidationRow struct {
	ID         int64           `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Ticker     string          `json:"ticker"`
	Side       string          `json:"side"`
	Amount     decimal.Decimal `json:"amount"`
	Price      decimal.Decimal `json:"price"`
	Leverage   string          `json:"leverage"`
	Exchange   string          `json:"exchange"`
	SecondsAgo int64           `json:"secondsAgo"`
	Time       string          `json:"time"`
}

type ClimacticRow struct {
	ID            int64           `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Ticker        string          `json:"ticker"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Volume        decimal.Decimal `json:"volume"`
	Timeframe     string          `json:"timeframe"`
	Exchange      string          `json:"exchange"`
	SecondsAgo    int64           `json:"secondsAgo"`
	Time          string          `json:"time"`
}

type VolumeRow struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Ticker    string          `json:"ticker"`
	Trend     string          `json:"trend"`
	Volume    decimal.Decimal `json:"volume"`
	RelVol    decimal.Decimal `json:"relVol"`
	Time      string          `json:"time"`
}

// VolumeSample is one per-minute rollup produced by the volume tracker.
type VolumeSample struct {
	Symbol         string
	Timestamp      time.Time
	Volume1m       decimal.Decimal
	Volume5m       decimal.Decimal
	Volume15m      decimal.Decimal
	Volume1h       decimal.Decimal
	AvgVolume      decimal.Decimal
	RelativeVolume decimal.Decimal
}

type MarketMover struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
	Change decimal.Decimal `json:"change"`
	RelVol decimal.Decimal `json:"relVol"`
}

type MarketMovers struct {
	Gainers        []MarketMover `json:"gainers"`
	Losers         []MarketMover `json:"losers"`
	RelativeVolume []MarketMover `json:"relativeVolume"`
}

// TickerSummary is one row of the exchange 24h ticker statistics.
type TickerSummary struct {
	Symbol             string
	LastPrice          decimal.Decimal
	PriceChangePercent decimal.Decimal
	Volume             decimal.Decimal
	QuoteVolume        decimal.Decimal
	WeightedAvgPrice   decimal.Decimal
	Count              int64
}

type OptionFlow struct {
	ID        int64           `json:"id"`
	Time      time.Time       `json:"time"`
	Ticker    string          `json:"ticker"`
	Direction string          `json:"direction"`
	CallPut   string          `json:"callPut"`
	Price     decimal.Decimal `json:"price"`
	Premium   decimal.Decimal `json:"premium"`
	Size      int64           `json:"size"`
	Expiry    string          `json:"expiry"`
	Strike    decimal.Decimal `json:"strike"`
	IV        decimal.Decimal `json:"iv"`
	Sentiment string          `json:"sentiment"`
}

// InitialSnapshot is sent once to every newly joined subscriber.
type InitialSnapshot struct {
	Liquidations   []LiquidationRow `json:"liquidations"`
	ClimacticMoves []ClimacticRow   `json:"climacticMoves"`
	VolumeAnalysis []VolumeRow      `json:"volumeAnalysis"`
	MarketMovers   MarketMovers     `json:"marketMovers"`
	OptionsFlow    []OptionFlow     `json:"optionsFlow"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Normalize replaces nil lists with empty ones so they encode as [].
func (s InitialSnapshot) Normalize() InitialSnapshot {
	if s.Liquidations == nil {
		s.Liquidations = []LiquidationRow{}
	}
	if s.ClimacticMoves == nil {
		s.ClimacticMoves = []ClimacticRow{}
	}
	if s.VolumeAnalysis == nil {
		s.VolumeAnalysis = []VolumeRow{}
	}
	if s.OptionsFlow == nil {
		s.OptionsFlow = []OptionFlow{}
	}
	s.MarketMovers = s.MarketMovers.Normalize()
	return s
}

func (m MarketMovers) Normalize() MarketMovers {
	if m.Gainers == nil {
		m.Gainers = []MarketMover{}
	}
	if m.Losers == nil {
		m.Losers = []MarketMover{}
	}
	if m.RelativeVolume == nil {
		m.RelativeVolume = []MarketMover{}
	}
	return m
}

type StatusUpdate struct {
	Status           string    `json:"status"`
	ServerTime       time.Time `json:"serverTime"`
	TotalConnections int       `json:"totalConnections"`
}

type Heartbeat struct {
	Timestamp   time.Time `json:"timestamp"`
	ServerTime  int64     `json:"serverTime"`
	Connections int       `json:"connections"`
	Uptime      float64   `json:"uptime"`
}

// LiveData is the combined recent-activity view served over HTTP.
type LiveData struct {
	Liquidations   []LiquidationRow `json:"liquidations"`
	ClimacticMoves []ClimacticRow   `json:"climacticMoves"`
	VolumeAnalysis []VolumeRow      `json:"volumeAnalysis"`
	Timestamp      time.Time        `json:"timestamp"`
}
