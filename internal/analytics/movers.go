package analytics

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"cryptoflow/internal/model"
)

const (
	MoverLimit = 8

	moverQuoteAsset = "USDT"
)

var (
	_minMoverVolume = decimal.NewFromInt(100_000)
	_minRelVol      = decimal.NewFromFloat(1.5)
	_million        = decimal.NewFromInt(1_000_000)
)

// ComputeMovers ranks USDT pairs with enough 24h volume. Relative volume is
// a pair's 24h quote volume over the median quote volume of the eligible
// list.
func ComputeMovers(tickers []model.TickerSummary) model.MarketMovers {
	eligible := make([]model.TickerSummary, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, moverQuoteAsset) {
			continue
		}
		if t.Volume.LessThanOrEqual(_minMoverVolume) {
			continue
		}
		eligible = append(eligible, t)
	}

	median := medianQuoteVolume(eligible)
	movers := make([]model.MarketMover, 0, len(eligible))
	for _, t := range eligible {
		movers = append(movers, toMover(t, median))
	}

	var gainers, losers, relative []model.MarketMover
	for _, m := range movers {
		switch m.Change.Sign() {
		case 1:
			gainers = append(gainers, m)
		case -1:
			losers = append(losers, m)
		}
		if m.RelVol.GreaterThan(_minRelVol) {
			relative = append(relative, m)
		}
	}

	slices.SortStableFunc(gainers, func(a, b model.MarketMover) int {
		return cmpThen(b.Change.Cmp(a.Change), a, b)
	})
	slices.SortStableFunc(losers, func(a, b model.MarketMover) int {
		return cmpThen(a.Change.Cmp(b.Change), a, b)
	})
	slices.SortStableFunc(relative, func(a, b model.MarketMover) int {
		return cmpThen(b.RelVol.Cmp(a.RelVol), a, b)
	})

	return model.MarketMovers{
		Gainers:        head(gainers, MoverLimit),
		Losers:         head(losers, MoverLimit),
		RelativeVolume: head(relative, MoverLimit),
	}.Normalize()
}

func toMover(t model.TickerSummary, median decimal.Decimal) model.MarketMover {
	relVol := decimal.Zero
	if median.IsPositive() {
		relVol = t.QuoteVolume.Div(median).Round(2)
	}
	return model.MarketMover{
		Ticker: t.Symbol,
		Price:  t.LastPrice,
		Volume: t.QuoteVolume.Div(_million).Round(2),
		Change: t.PriceChangePercent.Round(2),
		RelVol: relVol,
	}
}

func medianQuoteVolume(tickers []model.TickerSummary) decimal.Decimal {
	if len(tickers) == 0 {
		return decimal.Zero
	}
	vols := make([]decimal.Decimal, len(tickers))
	for i, t := range tickers {
		vols[i] = t.QuoteVolume
	}
	slices.SortFunc(vols, func(a, b decimal.Decimal) int { return a.Cmp(b) })

	mid := len(vols) / 2
	if len(vols)%2 == 1 {
		return vols[mid]
	}
	return vols[mid-1].Add(vols[mid]).Div(decimal.NewFromInt(2))
}

func cmpThen(c int, a, b model.MarketMover) int {
	if c != 0 {
		return c
	}
	return strings.Compare(a.Ticker, b.Ticker)
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
