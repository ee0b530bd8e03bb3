package storage

import (
	"context"
	"time"

	"github.com/yanun0323/errors"

	"cryptoflow/internal/analytics"
	"cryptoflow/internal/model"
	"cryptoflow/pkg/exception"
)

// TickerSource lists the exchange 24h ticker statistics.
type TickerSource interface {
	Tickers24h(ctx context.Context) ([]model.TickerSummary, error)
}

// Source serves the cacheable aggregations from a Store, the exchange REST
// ticker list and the options-flow generator.
type Source struct {
	store   Store
	tickers TickerSource
	options *analytics.OptionsFlow
	now     func() time.Time
}

func NewSource(store Store, tickers TickerSource, options *analytics.OptionsFlow) *Source {
	if options == nil {
		options = analytics.NewOptionsFlow(uint64(time.Now().UnixNano()), nil)
	}
	return &Source{store: store, tickers: tickers, options: options, now: time.Now}
}

func (s *Source) FetchRecentLiquidations(ctx context.Context, limit int) ([]model.LiquidationRow, error) {
	recs, err := s.store.RecentLiquidations(ctx, limit)
	if err != nil {
		return nil, unavailable(err, "liquidations")
	}
	now := s.now()
	rows := make([]model.LiquidationRow, len(recs))
	for i, r := range recs {
		rows[i] = liquidationRow(r, now)
	}
	return rows, nil
}

func (s *Source) FetchClimacticMoves(ctx context.Context, limit int) ([]model.ClimacticRow, error) {
	recs, err := s.store.ClimacticMoves(ctx, limit)
	if err != nil {
		return nil, unavailable(err, "climactic moves")
	}
	now := s.now()
	rows := make([]model.ClimacticRow, len(recs))
	for i, r := range recs {
		rows[i] = climacticRow(r, now)
	}
	return rows, nil
}

func (s *Source) FetchVolumeAnalysis(ctx context.Context, limit int) ([]model.VolumeRow, error) {
	recs, err := s.store.VolumeAnalysis(ctx, limit)
	if err != nil {
		return nil, unavailable(err, "volume analysis")
	}
	rows := make([]model.VolumeRow, len(recs))
	for i, r := range recs {
		rows[i] = volumeRow(r)
	}
	return rows, nil
}

func (s *Source) FetchMarketMovers(ctx context.Context) (model.MarketMovers, error) {
	if s.tickers == nil {
		return model.MarketMovers{}.Normalize(), nil
	}
	tickers, err := s.tickers.Tickers24h(ctx)
	if err != nil {
		return model.MarketMovers{}, unavailable(err, "market movers")
	}
	return analytics.ComputeMovers(tickers), nil
}

func (s *Source) FetchOptionsFlow(context.Context) ([]model.OptionFlow, error) {
	return s.options.Generate(analytics.OptionsFlowSize), nil
}

func unavailable(err error, what string) error {
	if errors.Is(err, exception.ErrSourceUnavailable) {
		return err
	}
	return errors.Wrap(exception.ErrSourceUnavailable, what).With("cause", err.Error())
}
