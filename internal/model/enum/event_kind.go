package enum

// EventKind tags a canonical or derived event.
type EventKind uint8

const (
	_event_kind_beg EventKind = iota
	EventTicker
	EventAggTrade
	EventLiquidation
	EventDepth
	EventClimacticMove
	EventLiquidationAlert
	_event_kind_end
)

func (k EventKind) IsAvailable() bool {
	return k > _event_kind_beg && k < _event_kind_end
}

func (k EventKind) String() string {
	switch k {
	case EventTicker:
		return "ticker"
	case EventAggTrade:
		return "aggTrade"
	case EventLiquidation:
		return "liquidation"
	case EventDepth:
		return "depth"
	case EventClimacticMove:
		return "climacticMove"
	case EventLiquidationAlert:
		return "liquidationAlert"
	default:
		return "unknown"
	}
}

// EventKinds lists every available kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, _event_kind_end-_event_kind_beg-1)
	for k := _event_kind_beg + 1; k < _event_kind_end; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
