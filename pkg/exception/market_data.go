package exception

import "github.com/yanun0323/errors"

var (
	ErrDecode             = errors.New("market data: decode failed")
	ErrDecodeEmptySymbol  = errors.New("market data: empty symbol")
	ErrIngestNoGroup      = errors.New("ingest: no channel group configured")
	ErrIngestHandlerPanic = errors.New("ingest: handler panicked")
	ErrIngestNilHandler   = errors.New("ingest: nil handler")
	ErrIngestStarted      = errors.New("ingest: supervisor already started")
)
