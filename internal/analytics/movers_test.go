package analytics

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoflow/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func summary(sym, change, volume, quote string) model.TickerSummary {
	return model.TickerSummary{
		Symbol:             sym,
		LastPrice:          d("1"),
		PriceChangePercent: d(change),
		Volume:             d(volume),
		QuoteVolume:        d(quote),
	}
}

func names(ms []model.MarketMover) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Ticker
	}
	return out
}

func TestComputeMoversFiltersAndRanks(t *testing.T) {
	in := []model.TickerSummary{
		summary("AAAUSDT", "5", "200000", "1000000"),
		summary("BBBUSDT", "12.5", "200000", "1000000"),
		summary("CCCUSDT", "-3", "200000", "1000000"),
		summary("DDDUSDT", "-9", "200000", "8000000"),
		summary("EEEUSDT", "0", "200000", "1000000"),
		summary("FFFBTC", "40", "200000", "1000000"),
		summary("GGGUSDT", "50", "100000", "1000000"),
	}

	movers := ComputeMovers(in)
	assert.Equal(t, []string{"BBBUSDT", "AAAUSDT"}, names(movers.Gainers))
	assert.Equal(t, []string{"DDDUSDT", "CCCUSDT"}, names(movers.Losers))
	require.Equal(t, []string{"DDDUSDT"}, names(movers.RelativeVolume))
	assert.True(t, movers.RelativeVolume[0].RelVol.Equal(d("8")))
	assert.True(t, movers.Gainers[0].Volume.Equal(d("1")))
}

func TestComputeMoversCapsAtLimit(t *testing.T) {
	var in []model.TickerSummary
	for i := 0; i < 20; i++ {
		in = append(in, summary(fmt.Sprintf("S%02dUSDT", i), fmt.Sprintf("%d", i+1), "500000", "1000"))
	}
	movers := ComputeMovers(in)
	require.Len(t, movers.Gainers, MoverLimit)
	assert.Equal(t, "S19USDT", movers.Gainers[0].Ticker)
	assert.Empty(t, movers.Losers)
	assert.NotNil(t, movers.Losers)
}

func TestComputeMoversEmpty(t *testing.T) {
	movers := ComputeMovers(nil)
	assert.NotNil(t, movers.Gainers)
	assert.NotNil(t, movers.RelativeVolume)
}
