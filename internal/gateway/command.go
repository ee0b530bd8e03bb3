package gateway

import (
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"cryptoflow/internal/model"
	"cryptoflow/internal/model/enum"
	"cryptoflow/pkg/exception"
)

// Client command types.
const (
	CmdSubscribe   = "subscribe"
	CmdUnsubscribe = "unsubscribe"
	CmdPing        = "ping"
	CmdSelectAsset = "select-asset"
)

type confirmation struct {
	Type      string    `json:"type"`
	Symbols   []string  `json:"symbols,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type pong struct {
	Timestamp int64 `json:"timestamp"`
}

type assetSelected struct {
	Asset     string    `json:"asset"`
	Timestamp time.Time `json:"timestamp"`
}

type errorMessage struct {
	Message string `json:"message"`
}

// SubscribeTopics maps a subscribe request to topics. A tickers request
// adds one ticker topic per symbol plus the market movers topic.
func SubscribeTopics(req model.SubscriptionRequest) ([]enum.Topic, error) {
	subType := enum.SubscriptionType(req.Type)
	if !subType.IsAvailable() {
		return nil, errors.Wrap(exception.ErrUnknownSubscription, req.Type)
	}
	if subType != enum.SubscriptionTickers {
		return []enum.Topic{enum.Topic(subType)}, nil
	}
	return append(tickerTopics(req.Symbols), enum.TopicMovers), nil
}

// UnsubscribeTopics mirrors SubscribeTopics. A tickers request with symbols
// removes only those ticker topics, without symbols it removes the market
// movers topic.
func UnsubscribeTopics(req model.SubscriptionRequest) ([]enum.Topic, error) {
	subType := enum.SubscriptionType(req.Type)
	if !subType.IsAvailable() {
		return nil, errors.Wrap(exception.ErrUnknownSubscription, req.Type)
	}
	if subType != enum.SubscriptionTickers {
		return []enum.Topic{enum.Topic(subType)}, nil
	}
	if len(req.Symbols) == 0 {
		return []enum.Topic{enum.TopicMovers}, nil
	}
	return tickerTopics(req.Symbols), nil
}

func tickerTopics(symbols []string) []enum.Topic {
	topics := make([]enum.Topic, 0, len(symbols)+1)
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		topics = append(topics, enum.TickerTopic(sym))
	}
	return topics
}

func decodeCommand(raw []byte) (model.Command, error) {
	var cmd model.Command
	if err := sonic.Unmarshal(raw, &cmd); err != nil {
		return cmd, errors.Wrap(exception.ErrDecode, err.Error())
	}
	if cmd.Type == "" {
		return cmd, errors.Wrap(exception.ErrDecode, "missing command type")
	}
	return cmd, nil
}

func decodeSubscription(cmd model.Command) (model.SubscriptionRequest, error) {
	var req model.SubscriptionRequest
	if len(cmd.Data) == 0 {
		return req, errors.Wrap(exception.ErrDecode, "missing subscription data")
	}
	if err := sonic.Unmarshal(cmd.Data, &req); err != nil {
		return req, errors.Wrap(exception.ErrDecode, err.Error())
	}
	for i, s := range req.Symbols {
		req.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return req, nil
}

// decodeAsset accepts either a bare string or {"asset": "..."}.
func decodeAsset(cmd model.Command) string {
	var asset string
	if err := sonic.Unmarshal(cmd.Data, &asset); err == nil {
		return asset
	}
	var wrapped struct {
		Asset string `json:"asset"`
	}
	if err := sonic.Unmarshal(cmd.Data, &wrapped); err == nil {
		return wrapped.Asset
	}
	return ""
}
