package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoflow/internal/model"
)

func TestVolumeTrackerRoll(t *testing.T) {
	v := NewVolumeTracker()
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		v.Add("BTCUSDT", d("100"))
		v.Roll(now.Add(time.Duration(i) * time.Minute))
	}
	require.NoError(t, v.HandleEvent(context.Background(), model.AggTrade{Symbol: "BTCUSDT", Price: d("10"), Quantity: d("60")}))
	require.NoError(t, v.HandleEvent(context.Background(), model.Ticker{Symbol: "BTCUSDT"}))

	samples := v.Roll(now.Add(3 * time.Minute))
	require.Len(t, samples, 1)
	s := samples[0]
	assert.Equal(t, "BTCUSDT", s.Symbol)
	assert.True(t, s.Volume1m.Equal(d("600")))
	assert.True(t, s.Volume5m.Equal(d("900")))
	assert.True(t, s.Volume1h.Equal(d("900")))
	assert.True(t, s.AvgVolume.Equal(d("225")))
	assert.True(t, s.RelativeVolume.Equal(d("2.6667")))
}

func TestVolumeTrackerForgetsIdleSymbols(t *testing.T) {
	v := NewVolumeTracker()
	now := time.Unix(1_700_000_000, 0)
	v.Add("ETHUSDT", d("50"))
	require.Len(t, v.Roll(now), 1)

	for i := 1; i < _volumeWindow; i++ {
		samples := v.Roll(now.Add(time.Duration(i) * time.Minute))
		require.Len(t, samples, 1, "minute %d", i)
		assert.True(t, samples[0].Volume1m.IsZero())
	}
	assert.Empty(t, v.Roll(now.Add(time.Hour)))
}

func TestVolumeTrackerIgnoresNonPositive(t *testing.T) {
	v := NewVolumeTracker()
	v.Add("BTCUSDT", d("0"))
	v.Add("", d("5"))
	assert.Empty(t, v.Roll(time.Now()))
}
