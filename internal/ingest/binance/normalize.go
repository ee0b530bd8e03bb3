package binance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"cryptoflow/internal/model"
	"cryptoflow/pkg/exception"
)

var _hundred = decimal.NewFromInt(100)

// NormalizeTicker maps a mini ticker to a canonical Ticker. When the payload
// carries no P field the change percent is derived from open and close.
func NormalizeTicker(raw MiniTicker) (model.Ticker, error) {
	if raw.Symbol == "" {
		return model.Ticker{}, exception.ErrDecodeEmptySymbol
	}

	price, err := parseDecimal("c", raw.Close)
	if err != nil {
		return model.Ticker{}, err
	}
	open, err := parseDecimal("o", raw.Open)
	if err != nil {
		return model.Ticker{}, err
	}
	high, err := parseDecimal("h", raw.High)
	if err != nil {
		return model.Ticker{}, err
	}
	low, err := parseDecimal("l", raw.Low)
	if err != nil {
		return model.Ticker{}, err
	}
	volume, err := parseDecimal("v", raw.Volume)
	if err != nil {
		return model.Ticker{}, err
	}
	quoteVolume, err := parseDecimal("q", raw.QuoteVolume)
	if err != nil {
		return model.Ticker{}, err
	}

	var change decimal.Decimal
	if raw.PriceChangePercent != "" {
		change, err = parseDecimal("P", raw.PriceChangePercent)
		if err != nil {
			return model.Ticker{}, err
		}
	} else if !open.IsZero() {
		change = price.Sub(open).Div(open).Mul(_hundred).Round(4)
	}

	return model.Ticker{
		Symbol:             strings.ToUpper(raw.Symbol),
		Price:              price,
		PriceChangePercent: change,
		Volume:             volume,
		QuoteVolume:        quoteVolume,
		High:               high,
		Low:                low,
		Open:               open,
		TimestampMs:        timestampOrNow(raw.EventTime),
	}, nil
}

func NormalizeAggTrade(raw AggTrade) (model.AggTrade, error) {
	if raw.Symbol == "" {
		return model.AggTrade{}, exception.ErrDecodeEmptySymbol
	}
	price, err := parseDecimal("p", raw.Price)
	if err != nil {
		return model.AggTrade{}, err
	}
	qty, err := parseDecimal("q", raw.Quantity)
	if err != nil {
		return model.AggTrade{}, err
	}

	ts := raw.TradeTime
	if ts == 0 {
		ts = raw.EventTime
	}

	return model.AggTrade{
		Symbol:       strings.ToUpper(raw.Symbol),
		Price:        price,
		Quantity:     qty,
		IsBuyerMaker: raw.IsBuyerMaker,
		TimestampMs:  timestampOrNow(ts),
		TradeID:      raw.AggTradeID,
	}, nil
}

func NormalizeLiquidation(raw ForceOrderOrder) (model.Liquidation, error) {
	if raw.Symbol == "" {
		return model.Liquidation{}, exception.ErrDecodeEmptySymbol
	}
	qty, err := parseDecimal("q", raw.Quantity)
	if err != nil {
		return model.Liquidation{}, err
	}
	price, err := parseDecimal("p", raw.Price)
	if err != nil {
		return model.Liquidation{}, err
	}
	avg, err := parseOptionalDecimal("ap", raw.AvgPrice)
	if err != nil {
		return model.Liquidation{}, err
	}
	last, err := parseOptionalDecimal("l", raw.LastFilledQty)
	if err != nil {
		return model.Liquidation{}, err
	}
	filled, err := parseOptionalDecimal("z", raw.FilledAccumulatedQty)
	if err != nil {
		return model.Liquidation{}, err
	}

	return model.Liquidation{
		Symbol:               strings.ToUpper(raw.Symbol),
		Side:                 raw.Side,
		OrderType:            raw.OrderType,
		TimeInForce:          raw.TimeInForce,
		Quantity:             qty,
		Price:                price,
		AvgPrice:             avg,
		Status:               raw.Status,
		LastFilledQty:        last,
		FilledAccumulatedQty: filled,
		TradeTimeMs:          timestampOrNow(raw.TradeTime),
	}, nil
}

// NormalizeDepth maps a partial depth payload. symbol is used when the
// payload carries none.
func NormalizeDepth(symbol string, raw PartialDepth) (model.DepthSnapshot, error) {
	if raw.Symbol != "" {
		symbol = raw.Symbol
	}
	if symbol == "" {
		return model.DepthSnapshot{}, exception.ErrDecodeEmptySymbol
	}

	bids, err := normalizeLevels(raw.Bids)
	if err != nil {
		return model.DepthSnapshot{}, errors.Wrap(err, "bids")
	}
	asks, err := normalizeLevels(raw.Asks)
	if err != nil {
		return model.DepthSnapshot{}, errors.Wrap(err, "asks")
	}

	return model.DepthSnapshot{
		Symbol:      strings.ToUpper(symbol),
		Bids:        bids,
		Asks:        asks,
		TimestampMs: timestampOrNow(raw.EventTime),
	}, nil
}

func NormalizeTicker24h(raw Ticker24h) (model.TickerSummary, error) {
	if raw.Symbol == "" {
		return model.TickerSummary{}, exception.ErrDecodeEmptySymbol
	}
	last, err := parseDecimal("lastPrice", raw.LastPrice)
	if err != nil {
		return model.TickerSummary{}, err
	}
	change, err := parseDecimal("priceChangePercent", raw.PriceChangePercent)
	if err != nil {
		return model.TickerSummary{}, err
	}
	volume, err := parseDecimal("volume", raw.Volume)
	if err != nil {
		return model.TickerSummary{}, err
	}
	quoteVolume, err := parseOptionalDecimal("quoteVolume", raw.QuoteVolume)
	if err != nil {
		return model.TickerSummary{}, err
	}
	weighted, err := parseOptionalDecimal("weightedAvgPrice", raw.WeightedAvgPrice)
	if err != nil {
		return model.TickerSummary{}, err
	}

	return model.TickerSummary{
		Symbol:             raw.Symbol,
		LastPrice:          last,
		PriceChangePercent: change,
		Volume:             volume,
		QuoteVolume:        quoteVolume,
		WeightedAvgPrice:   weighted,
		Count:              raw.Count,
	}, nil
}

func normalizeLevels(rows [][2]string) ([]model.Level, error) {
	levels := make([]model.Level, 0, len(rows))
	for _, row := range rows {
		price, err := parseDecimal("price", row[0])
		if err != nil {
			return nil, err
		}
		qty, err := parseDecimal("qty", row[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, model.Level{Price: price, Quantity: qty})
	}
	return levels, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(exception.ErrDecode, err.Error()).With("field", field).With("value", s)
	}
	return d, nil
}

func parseOptionalDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return parseDecimal(field, s)
}

func timestampOrNow(ms int64) int64 {
	if ms > 0 {
		return ms
	}
	return time.Now().UnixMilli()
}
