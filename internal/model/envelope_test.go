package model

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoflow/internal/model/enum"
)

func TestEnvelopeEncodeKeepsDecimalStrings(t *testing.T) {
	alert := LiquidationAlert{
		Symbol:    "BTCUSDT",
		Side:      "SELL",
		AmountUSD: decimal.RequireFromString("120000.50"),
		Price:     decimal.RequireFromString("60000.25"),
		Alert:     true,
		Sound:     true,
	}
	b, err := NewEnvelope(MsgLiquidationAlert, string(enum.TopicLiquidations), alert).Encode()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, sonic.Unmarshal(b, &got))
	assert.Equal(t, MsgLiquidationAlert, got["type"])
	assert.Equal(t, "liquidations", got["topic"])
	assert.NotZero(t, got["timestamp"])

	data, ok := got["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "120000.5", data["amount"])
	assert.Equal(t, true, data["sound"])
}

func TestInitialSnapshotNormalizeEncodesEmptyLists(t *testing.T) {
	b, err := NewEnvelope(MsgInitialData, "", InitialSnapshot{}.Normalize()).Encode()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"liquidations":[]`)
	assert.Contains(t, string(b), `"gainers":[]`)
	assert.NotContains(t, string(b), `"topic"`)
}

func TestLiquidationNotional(t *testing.T) {
	l := Liquidation{Quantity: decimal.RequireFromString("0.4"), Price: decimal.RequireFromString("50000")}
	assert.True(t, l.Notional().Equal(decimal.NewFromInt(20000)))
}

func TestTickerTopic(t *testing.T) {
	topic := enum.TickerTopic("btcusdt")
	assert.Equal(t, enum.Topic("ticker:BTCUSDT"), topic)
	sym, ok := topic.TickerSymbol()
	assert.True(t, ok)
	assert.Equal(t, "BTCUSDT", sym)
	assert.True(t, topic.IsAvailable())
	assert.False(t, enum.Topic("ticker:").IsAvailable())
	assert.False(t, enum.Topic("tickers").IsAvailable())
}
