package websocket

import "time"

// MessageType represents a WebSocket message type.
// Values match RFC 6455 opcodes where applicable.
type MessageType uint8

const (
	// MessageText is a text data frame.
	MessageText MessageType = 1
	// MessageBinary is a binary data frame.
	MessageBinary MessageType = 2
	// MessageClose is a close control frame.
	MessageClose MessageType = 8
	// MessagePing is a ping control frame.
	MessagePing MessageType = 9
	// MessagePong is a pong control frame.
	MessagePong MessageType = 10
)

// Backoff defines reconnect backoff behavior.
type Backoff struct {
	// Base is the delay unit, doubled for every attempt.
	Base time.Duration
	// Max caps a single delay.
	Max time.Duration
	// MaxAttempts is the number of consecutive reconnects allowed before giving up.
	MaxAttempts int
}

// Endpoint describes one logical upstream subscription.
type Endpoint struct {
	// Name identifies the channel group, e.g. "miniTicker".
	Name string
	// URL is the full websocket URL including stream names.
	URL string
	// Streams lists the multiplexed stream names carried by URL.
	Streams []string
}
