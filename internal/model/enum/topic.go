package enum

import "strings"

// Topic is a subscriber interest key. Matching is exact-string.
type Topic string

const (
	TopicLiquidations Topic = "liquidations"
	TopicClimactic    Topic = "climactic"
	TopicVolume       Topic = "volume"
	TopicOptions      Topic = "options"
	TopicMovers       Topic = "movers"

	tickerTopicPrefix = "ticker:"
)

// TickerTopic returns the per-symbol topic, e.g. "ticker:BTCUSDT".
func TickerTopic(symbol string) Topic {
	return Topic(tickerTopicPrefix + strings.ToUpper(symbol))
}

// TickerSymbol returns the symbol of a per-symbol topic.
func (t Topic) TickerSymbol() (string, bool) {
	return strings.CutPrefix(string(t), tickerTopicPrefix)
}

func (t Topic) IsAvailable() bool {
	switch t {
	case TopicLiquidations, TopicClimactic, TopicVolume, TopicOptions, TopicMovers:
		return true
	}
	sym, ok := t.TickerSymbol()
	return ok && sym != ""
}

func (t Topic) String() string {
	return string(t)
}
