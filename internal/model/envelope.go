package model

import (
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// Message type names carried in Envelope.Type.
const (
	MsgInitialData             = "initial-data"
	MsgStatusUpdate            = "status-update"
	MsgHeartbeat               = "heartbeat"
	MsgPong                    = "pong"
	MsgAssetSelected           = "asset-selected"
	MsgSubscriptionConfirmed   = "subscription-confirmed"
	MsgUnsubscriptionConfirmed = "unsubscription-confirmed"
	MsgError                   = "error"

	MsgLiquidationsUpdate = "liquidations-update"
	MsgClimacticUpdate    = "climactic-update"
	MsgVolumeUpdate       = "volume-update"
	MsgMarketMoversUpdate = "market-movers-update"
	MsgOptionsUpdate      = "options-update"

	MsgLiquidationAlert = "liquidation-alert"
	MsgClimacticAlert   = "climactic-alert"
	MsgTickerUpdate     = "ticker-update"
)

// Envelope is the topic-tagged, timestamped wire message sent to subscribers.
type Envelope struct {
	Type      string `json:"type"`
	Topic     string `json:"topic,omitempty"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

func NewEnvelope(msgType, topic string, data any) Envelope {
	return Envelope{
		Type:      msgType,
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (e Envelope) Encode() ([]byte, error) {
	b, err := sonic.Marshal(e)
	if err != nil {
		return nil, errors.Wrapf(err, "encode envelope %s", e.Type)
	}
	return b, nil
}

// Command is an inbound client message.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscriptionRequest is the data of subscribe and unsubscribe commands.
type SubscriptionRequest struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols,omitempty"`
}
