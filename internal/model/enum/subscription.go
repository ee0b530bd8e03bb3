package enum

// SubscriptionType is the "type" field of a client subscribe/unsubscribe command.
type SubscriptionType string

const (
	SubscriptionLiquidations SubscriptionType = "liquidations"
	SubscriptionClimactic    SubscriptionType = "climactic"
	SubscriptionOptions      SubscriptionType = "options"
	SubscriptionVolume       SubscriptionType = "volume"
	SubscriptionTickers      SubscriptionType = "tickers"
)

func (s SubscriptionType) IsAvailable() bool {
	switch s {
	case SubscriptionLiquidations, SubscriptionClimactic, SubscriptionOptions, SubscriptionVolume, SubscriptionTickers:
		return true
	default:
		return false
	}
}
