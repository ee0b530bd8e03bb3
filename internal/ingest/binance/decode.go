package binance

import (
	"bytes"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"cryptoflow/internal/model"
	"cryptoflow/pkg/exception"
)

// Decoder turns one raw frame into zero or more canonical events.
type Decoder func(payload []byte) ([]model.Event, error)

var _combinedPrefix = []byte(`{"stream"`)

// unwrap strips the combined-stream wrapper when present.
func unwrap(payload []byte) (stream string, data []byte, err error) {
	trimmed := bytes.TrimSpace(payload)
	if !bytes.HasPrefix(trimmed, _combinedPrefix) {
		return "", trimmed, nil
	}
	var c combined
	if err := sonic.Unmarshal(trimmed, &c); err != nil {
		return "", nil, decodeErr(err)
	}
	if len(c.Data) == 0 {
		return c.Stream, nil, errors.Wrap(exception.ErrDecode, "empty data").With("stream", c.Stream)
	}
	return c.Stream, c.Data, nil
}

// DecodeMiniTickers accepts an array of mini tickers or a single one.
func DecodeMiniTickers(payload []byte) ([]model.Event, error) {
	_, data, err := unwrap(payload)
	if err != nil {
		return nil, err
	}

	var raws []MiniTicker
	if len(data) > 0 && data[0] == '[' {
		if err := sonic.Unmarshal(data, &raws); err != nil {
			return nil, decodeErr(err)
		}
	} else {
		var raw MiniTicker
		if err := sonic.Unmarshal(data, &raw); err != nil {
			return nil, decodeErr(err)
		}
		raws = append(raws, raw)
	}

	events := make([]model.Event, 0, len(raws))
	var firstErr error
	for _, raw := range raws {
		ticker, err := NormalizeTicker(raw)
		if err != nil {
			if firstErr == nil {
				firstErr = errors.Wrap(err, "normalize ticker").With("symbol", raw.Symbol)
			}
			continue
		}
		events = append(events, ticker)
	}
	if len(events) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return events, nil
}

func DecodeAggTrade(payload []byte) ([]model.Event, error) {
	_, data, err := unwrap(payload)
	if err != nil {
		return nil, err
	}
	var raw AggTrade
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, decodeErr(err)
	}
	trade, err := NormalizeAggTrade(raw)
	if err != nil {
		return nil, errors.Wrap(err, "normalize aggTrade")
	}
	return []model.Event{trade}, nil
}

func DecodeForceOrder(payload []byte) ([]model.Event, error) {
	_, data, err := unwrap(payload)
	if err != nil {
		return nil, err
	}
	var raw ForceOrder
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, decodeErr(err)
	}
	liq, err := NormalizeLiquidation(raw.Order)
	if err != nil {
		return nil, errors.Wrap(err, "normalize forceOrder")
	}
	return []model.Event{liq}, nil
}

// DepthDecoder decodes partial depth frames. The symbol comes from the
// payload, then from the combined stream name, then from fallback.
func DepthDecoder(fallback string) Decoder {
	return func(payload []byte) ([]model.Event, error) {
		stream, data, err := unwrap(payload)
		if err != nil {
			return nil, err
		}
		var raw PartialDepth
		if err := sonic.Unmarshal(data, &raw); err != nil {
			return nil, decodeErr(err)
		}
		symbol := fallback
		if s := symbolFromStream(stream); s != "" {
			symbol = s
		}
		depth, err := NormalizeDepth(symbol, raw)
		if err != nil {
			return nil, errors.Wrap(err, "normalize depth").With("stream", stream)
		}
		return []model.Event{depth}, nil
	}
}

// symbolFromStream returns "BTCUSDT" for "btcusdt@depth5@1000ms".
func symbolFromStream(stream string) string {
	sym, _, ok := strings.Cut(stream, "@")
	if !ok || sym == "" || strings.HasPrefix(sym, "!") {
		return ""
	}
	return strings.ToUpper(sym)
}

func decodeErr(err error) error {
	return errors.Wrap(exception.ErrDecode, err.Error())
}
