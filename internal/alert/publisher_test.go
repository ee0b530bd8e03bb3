package alert

import (
	"context"
	"errors"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cryptoflow/internal/model"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(msgs).Error(0)
}

func TestPublishLiquidationAlert(t *testing.T) {
	w := &mockWriter{}
	var sent []kafka.Message
	w.On("WriteMessages", mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(0).([]kafka.Message)
	}).Return(nil).Once()

	p := NewPublisher(w)
	err := p.HandleEvent(context.Background(), model.LiquidationAlert{
		Symbol:    "BTCUSDT",
		Side:      "SELL",
		AmountUSD: decimal.NewFromInt(150000),
		Sound:     true,
	})
	require.NoError(t, err)
	w.AssertExpectations(t)

	require.Len(t, sent, 1)
	assert.Equal(t, "BTCUSDT", string(sent[0].Key))
	assert.Equal(t, model.MsgLiquidationAlert, string(sent[0].Headers[0].Value))

	var env struct {
		Type  string `json:"type"`
		Topic string `json:"topic"`
	}
	require.NoError(t, sonic.Unmarshal(sent[0].Value, &env))
	assert.Equal(t, model.MsgLiquidationAlert, env.Type)
	assert.Equal(t, "liquidations", env.Topic)
}

func TestPublishIgnoresOtherEvents(t *testing.T) {
	w := &mockWriter{}
	p := NewPublisher(w)
	require.NoError(t, p.HandleEvent(context.Background(), model.Ticker{Symbol: "BTCUSDT"}))
	w.AssertNotCalled(t, "WriteMessages", mock.Anything)
}

func TestPublishFailureIsReturned(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything).Return(errors.New("broker down"))

	p := NewPublisher(w)
	err := p.HandleEvent(context.Background(), model.ClimacticMove{Symbol: "SOLUSDT", Timeframe: "24h"})
	assert.Error(t, err)
	assert.Len(t, p.Kinds(), 2)
}
