package websocket

import "context"

// Conn is a minimal interface for a WebSocket connection.
// Close must be idempotent: closing an already closed Conn returns nil.
type Conn interface {
	Read(ctx context.Context) (msgType MessageType, payload []byte, err error)
	Write(ctx context.Context, msgType MessageType, payload []byte) error
	Close() error
}

// Dialer opens a transport for an endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint Endpoint) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, endpoint Endpoint) (Conn, error)

// Dial calls f(ctx, endpoint).
func (f DialerFunc) Dial(ctx context.Context, endpoint Endpoint) (Conn, error) {
	return f(ctx, endpoint)
}

// MessageHandler receives every data frame read by a Stream.
type MessageHandler func(ctx context.Context, payload []byte)
