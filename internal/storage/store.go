package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cryptoflow/internal/model"
)

const (
	minLiquidationAmount = 20_000
	minRelativeVolume    = 1.1
	strongRelativeVolume = 2

	TrendUp   = "VWAP↗"
	TrendDown = "VWAP↘"
)

var (
	_minLiquidationAmount = decimal.NewFromInt(minLiquidationAmount)
	_minRelativeVolume    = decimal.NewFromFloat(minRelativeVolume)
	_strongRelativeVolume = decimal.NewFromInt(strongRelativeVolume)
)

// Store persists ingested activity and serves the recent-activity lists.
type Store interface {
	InsertTrade(ctx context.Context, rec TradeRecord) error
	InsertLiquidation(ctx context.Context, rec LiquidationRecord) error
	InsertClimacticMove(ctx context.Context, rec ClimacticRecord) error
	InsertVolume(ctx context.Context, rec VolumeRecord) error

	// RecentLiquidations returns rows with amount above 20000, newest first.
	RecentLiquidations(ctx context.Context, limit int) ([]LiquidationRecord, error)
	ClimacticMoves(ctx context.Context, limit int) ([]ClimacticRecord, error)
	// VolumeAnalysis returns rows with relative volume above 1.1, newest first.
	VolumeAnalysis(ctx context.Context, limit int) ([]VolumeRecord, error)

	// Cleanup deletes every row older than before and reports how many went.
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

func tradeRecord(t model.AggTrade) TradeRecord {
	return TradeRecord{
		Timestamp: msTime(t.TimestampMs),
		Symbol:    t.Symbol,
		Price:     t.Price,
		Volume:    t.Quantity,
		Side:      t.Side(),
		Exchange:  Exchange,
	}
}

func liquidationRecord(l model.Liquidation) LiquidationRecord {
	return LiquidationRecord{
		Timestamp: msTime(l.TradeTimeMs),
		Symbol:    l.Symbol,
		Side:      l.Side,
		Amount:    l.Notional(),
		Price:     l.Price,
		Exchange:  Exchange,
	}
}

func climacticRecord(m model.ClimacticMove) ClimacticRecord {
	return ClimacticRecord{
		Timestamp:          msTime(m.TimestampMs),
		Symbol:             m.Symbol,
		PriceChangePercent: m.PriceChangePercent,
		VolumeSpike:        m.QuoteVolume,
		Timeframe:          m.Timeframe,
		Exchange:           Exchange,
	}
}

func volumeRecord(s model.VolumeSample) VolumeRecord {
	return VolumeRecord{
		Timestamp:      s.Timestamp,
		Symbol:         s.Symbol,
		Volume1m:       s.Volume1m,
		Volume5m:       s.Volume5m,
		Volume15m:      s.Volume15m,
		Volume1h:       s.Volume1h,
		AvgVolume:      s.AvgVolume,
		RelativeVolume: s.RelativeVolume,
	}
}

func liquidationRow(r LiquidationRecord, now time.Time) model.LiquidationRow {
	leverage := ""
	if r.Leverage != nil {
		leverage = decimal.NewFromInt(int64(*r.Leverage)).String() + "x"
	}
	return model.LiquidationRow{
		ID:         r.ID,
		Timestamp:  r.Timestamp,
		Ticker:     r.Symbol,
		Side:       r.Side,
		Amount:     r.Amount.Round(0),
		Price:      r.Price.Round(2),
		Leverage:   leverage,
		Exchange:   r.Exchange,
		SecondsAgo: secondsAgo(r.Timestamp, now),
		Time:       r.Timestamp.Format(time.TimeOnly),
	}
}

func climacticRow(r ClimacticRecord, now time.Time) model.ClimacticRow {
	return model.ClimacticRow{
		ID:            r.ID,
		Timestamp:     r.Timestamp,
		Ticker:        r.Symbol,
		ChangePercent: r.PriceChangePercent.Round(2),
		Volume:        r.VolumeSpike.Round(0),
		Timeframe:     r.Timeframe,
		Exchange:      r.Exchange,
		SecondsAgo:    secondsAgo(r.Timestamp, now),
		Time:          r.Timestamp.Format(time.TimeOnly),
	}
}

func volumeRow(r VolumeRecord) model.VolumeRow {
	trend := TrendDown
	if r.RelativeVolume.GreaterThan(_strongRelativeVolume) {
		trend = TrendUp
	}
	return model.VolumeRow{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Ticker:    r.Symbol,
		Trend:     trend,
		Volume:    r.AvgVolume.Round(2),
		RelVol:    r.RelativeVolume.Round(1),
		Time:      r.Timestamp.Format(time.TimeOnly),
	}
}

func secondsAgo(ts, now time.Time) int64 {
	if d := now.Sub(ts); d > 0 {
		return int64(d / time.Second)
	}
	return 0
}

func msTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
