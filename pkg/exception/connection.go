package exception

import "github.com/yanun0323/errors"

// Stream connection errors
var (
	// ErrStreamClosed is returned when a stream was shut down explicitly.
	ErrStreamClosed = errors.New("stream: closed")

	// ErrStreamRunning is returned when a second run loop is started for the same stream.
	ErrStreamRunning = errors.New("stream: already running")

	// ErrStreamExhausted is returned when a stream used up its reconnect budget.
	ErrStreamExhausted = errors.New("stream: reconnect attempts exhausted")

	ErrStreamNilDialer   = errors.New("stream: nil dialer")
	ErrStreamNilHandler  = errors.New("stream: nil message handler")
	ErrStreamBadEndpoint = errors.New("stream: invalid endpoint")
)
