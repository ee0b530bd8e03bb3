package binance

import (
	"strings"

	"github.com/yanun0323/errors"

	"cryptoflow/pkg/exception"
	"cryptoflow/pkg/websocket"
)

const (
	DefaultSpotURL    = "wss://stream.binance.com:9443"
	DefaultFuturesURL = "wss://fstream.binance.com"
	DefaultRestURL    = "https://api.binance.com"

	GroupMiniTicker   = "miniTicker"
	GroupTrades       = "trades"
	GroupLiquidations = "liquidations"
	GroupDepth        = "depth"
)

var (
	DefaultTradeSymbols = []string{
		"btcusdt", "ethusdt", "solusdt", "adausdt", "dotusdt",
		"avaxusdt", "maticusdt", "linkusdt", "uniusdt", "ltcusdt",
	}
	DefaultDepthSymbols = []string{"btcusdt", "ethusdt", "solusdt"}
)

// Group is one channel group: an endpoint plus the decoder for its frames.
type Group struct {
	Endpoint websocket.Endpoint
	Decode   Decoder
}

type GroupOption struct {
	SpotURL      string
	FuturesURL   string
	TradeSymbols []string
	DepthSymbols []string
}

// Groups builds the four channel groups: all-symbol mini tickers, aggregated
// trades, futures liquidations and partial depth.
func Groups(opt GroupOption) ([]Group, error) {
	if opt.SpotURL == "" {
		opt.SpotURL = DefaultSpotURL
	}
	if opt.FuturesURL == "" {
		opt.FuturesURL = DefaultFuturesURL
	}
	if len(opt.TradeSymbols) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "empty trade symbols")
	}
	if len(opt.DepthSymbols) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "empty depth symbols")
	}

	tradeStreams := make([]string, 0, len(opt.TradeSymbols))
	for _, sym := range opt.TradeSymbols {
		tradeStreams = append(tradeStreams, strings.ToLower(sym)+"@aggTrade")
	}
	depthStreams := make([]string, 0, len(opt.DepthSymbols))
	for _, sym := range opt.DepthSymbols {
		depthStreams = append(depthStreams, strings.ToLower(sym)+"@depth5@1000ms")
	}

	miniTicker := []string{"!miniTicker@arr"}
	liquidations := []string{"!forceOrder@arr"}

	return []Group{
		{
			Endpoint: websocket.Endpoint{Name: GroupMiniTicker, URL: StreamURL(opt.SpotURL, miniTicker), Streams: miniTicker},
			Decode:   DecodeMiniTickers,
		},
		{
			Endpoint: websocket.Endpoint{Name: GroupTrades, URL: StreamURL(opt.SpotURL, tradeStreams), Streams: tradeStreams},
			Decode:   DecodeAggTrade,
		},
		{
			Endpoint: websocket.Endpoint{Name: GroupLiquidations, URL: StreamURL(opt.FuturesURL, liquidations), Streams: liquidations},
			Decode:   DecodeForceOrder,
		},
		{
			Endpoint: websocket.Endpoint{Name: GroupDepth, URL: StreamURL(opt.SpotURL, depthStreams), Streams: depthStreams},
			Decode:   DepthDecoder(strings.ToUpper(opt.DepthSymbols[0])),
		},
	}, nil
}

// StreamURL returns base/ws/<stream> for one stream and the combined
// base/stream?streams=a/b form for several.
func StreamURL(base string, streams []string) string {
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/ws")
	if len(streams) == 1 {
		return base + "/ws/" + streams[0]
	}
	return base + "/stream?streams=" + strings.Join(streams, "/")
}
