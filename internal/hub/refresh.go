package hub

import (
	"context"
	"time"

	"cryptoflow/internal/model"
	"cryptoflow/internal/model/enum"
)

// Source provides the cacheable aggregations. Each call may fail with
// exception.ErrSourceUnavailable.
type Source interface {
	FetchRecentLiquidations(ctx context.Context, limit int) ([]model.LiquidationRow, error)
	FetchClimacticMoves(ctx context.Context, limit int) ([]model.ClimacticRow, error)
	FetchVolumeAnalysis(ctx context.Context, limit int) ([]model.VolumeRow, error)
	FetchMarketMovers(ctx context.Context) (model.MarketMovers, error)
	FetchOptionsFlow(ctx context.Context) ([]model.OptionFlow, error)
}

// Refresher recomputes one cache key on a fixed interval and republishes it
// to one topic.
type Refresher struct {
	Key      CacheKey
	Topic    enum.Topic
	MsgType  string
	Interval time.Duration
	// Refresh fetches the payload and stores it in the cache.
	Refresh func(ctx context.Context) (any, error)
}

// RefreshOption carries the refresh intervals and list limits.
type RefreshOption struct {
	Liquidations      time.Duration
	ClimacticMoves    time.Duration
	VolumeAnalysis    time.Duration
	MarketMovers      time.Duration
	OptionsFlow       time.Duration
	LiquidationsLimit int
	ClimacticLimit    int
	VolumeLimit       int
}

func DefaultRefreshOption() RefreshOption {
	return RefreshOption{
		Liquidations:      3 * time.Second,
		ClimacticMoves:    5 * time.Second,
		VolumeAnalysis:    10 * time.Second,
		MarketMovers:      30 * time.Second,
		OptionsFlow:       15 * time.Second,
		LiquidationsLimit: 15,
		ClimacticLimit:    12,
		VolumeLimit:       10,
	}
}

// Refreshers builds the five cache refreshers over src.
func Refreshers(src Source, cache *SnapshotCache, opt RefreshOption) []Refresher {
	return []Refresher{
		{
			Key:      CacheLiquidations,
			Topic:    enum.TopicLiquidations,
			MsgType:  model.MsgLiquidationsUpdate,
			Interval: opt.Liquidations,
			Refresh: func(ctx context.Context) (any, error) {
				rows, err := src.FetchRecentLiquidations(ctx, opt.LiquidationsLimit)
				if err != nil {
					return nil, err
				}
				cache.SetLiquidations(rows)
				return rows, nil
			},
		},
		{
			Key:      CacheClimacticMoves,
			Topic:    enum.TopicClimactic,
			MsgType:  model.MsgClimacticUpdate,
			Interval: opt.ClimacticMoves,
			Refresh: func(ctx context.Context) (any, error) {
				rows, err := src.FetchClimacticMoves(ctx, opt.ClimacticLimit)
				if err != nil {
					return nil, err
				}
				cache.SetClimacticMoves(rows)
				return rows, nil
			},
		},
		{
			Key:      CacheVolumeAnalysis,
			Topic:    enum.TopicVolume,
			MsgType:  model.MsgVolumeUpdate,
			Interval: opt.VolumeAnalysis,
			Refresh: func(ctx context.Context) (any, error) {
				rows, err := src.FetchVolumeAnalysis(ctx, opt.VolumeLimit)
				if err != nil {
					return nil, err
				}
				cache.SetVolumeAnalysis(rows)
				return rows, nil
			},
		},
		{
			Key:      CacheMarketMovers,
			Topic:    enum.TopicMovers,
			MsgType:  model.MsgMarketMoversUpdate,
			Interval: opt.MarketMovers,
			Refresh: func(ctx context.Context) (any, error) {
				movers, err := src.FetchMarketMovers(ctx)
				if err != nil {
					return nil, err
				}
				movers = movers.Normalize()
				cache.SetMarketMovers(movers)
				return movers, nil
			},
		},
		{
			Key:      CacheOptionsFlow,
			Topic:    enum.TopicOptions,
			MsgType:  model.MsgOptionsUpdate,
			Interval: opt.OptionsFlow,
			Refresh: func(ctx context.Context) (any, error) {
				rows, err := src.FetchOptionsFlow(ctx)
				if err != nil {
					return nil, err
				}
				cache.SetOptionsFlow(rows)
				return rows, nil
			},
		},
	}
}
