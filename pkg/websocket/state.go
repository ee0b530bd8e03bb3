package websocket

// State is the lifecycle state of a Stream.
//
//	Disconnected -> Connecting -> Open -> (Closing | Faulted) -> Disconnected
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}
