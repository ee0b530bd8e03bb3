package ingest

import (
	"github.com/shopspring/decimal"

	"cryptoflow/internal/model"
)

// Thresholds are compared with strict greater-than.
type Thresholds struct {
	// LiquidationNotional drops liquidations whose qty*price is not above it.
	LiquidationNotional decimal.Decimal
	// LiquidationSound flags alerts for emphasis.
	LiquidationSound decimal.Decimal
	// ClimacticChange is the absolute 24h change percent.
	ClimacticChange decimal.Decimal
	// ClimacticQuoteVolume is the 24h quote volume.
	ClimacticQuoteVolume decimal.Decimal
	// ClimacticSound flags alerts for emphasis.
	ClimacticSound decimal.Decimal
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		LiquidationNotional:  decimal.NewFromInt(20_000),
		LiquidationSound:     decimal.NewFromInt(100_000),
		ClimacticChange:      decimal.NewFromInt(5),
		ClimacticQuoteVolume: decimal.NewFromInt(1_000_000),
		ClimacticSound:       decimal.NewFromInt(10),
	}
}

// WithDefaults fills every zero field from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	def := DefaultThresholds()
	fill := func(v *decimal.Decimal, d decimal.Decimal) {
		if v.IsZero() {
			*v = d
		}
	}
	fill(&t.LiquidationNotional, def.LiquidationNotional)
	fill(&t.LiquidationSound, def.LiquidationSound)
	fill(&t.ClimacticChange, def.ClimacticChange)
	fill(&t.ClimacticQuoteVolume, def.ClimacticQuoteVolume)
	fill(&t.ClimacticSound, def.ClimacticSound)
	return t
}

func (t Thresholds) PassLiquidation(l model.Liquidation) bool {
	return l.Notional().GreaterThan(t.LiquidationNotional)
}

func (t Thresholds) IsClimactic(tk model.Ticker) bool {
	return tk.PriceChangePercent.Abs().GreaterThan(t.ClimacticChange) &&
		tk.QuoteVolume.GreaterThan(t.ClimacticQuoteVolume)
}

func (t Thresholds) LiquidationAlert(l model.Liquidation) model.LiquidationAlert {
	amount := l.Notional()
	return model.LiquidationAlert{
		Symbol:      l.Symbol,
		Side:        l.Side,
		AmountUSD:   amount,
		Price:       l.Price,
		Alert:       true,
		Sound:       amount.GreaterThan(t.LiquidationSound),
		TimestampMs: l.TradeTimeMs,
	}
}

func (t Thresholds) ClimacticMove(tk model.Ticker) model.ClimacticMove {
	return model.ClimacticMove{
		Symbol:             tk.Symbol,
		Price:              tk.Price,
		PriceChangePercent: tk.PriceChangePercent,
		Volume:             tk.Volume,
		QuoteVolume:        tk.QuoteVolume,
		Timeframe:          "24h",
		Alert:              true,
		Sound:              tk.PriceChangePercent.Abs().GreaterThan(t.ClimacticSound),
		TimestampMs:        tk.TimestampMs,
	}
}

// Apply returns what is forwarded for one canonical event: small
// liquidations are dropped, large ones are followed by a LiquidationAlert,
// climactic tickers are followed by a ClimacticMove.
func (t Thresholds) Apply(ev model.Event) []model.Event {
	switch e := ev.(type) {
	case model.Liquidation:
		if !t.PassLiquidation(e) {
			return nil
		}
		return []model.Event{e, t.LiquidationAlert(e)}
	case model.Ticker:
		if t.IsClimactic(e) {
			return []model.Event{e, t.ClimacticMove(e)}
		}
		return []model.Event{e}
	default:
		return []model.Event{ev}
	}
}
