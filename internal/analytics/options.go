package analytics

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptoflow/internal/model"
)

const OptionsFlowSize = 10

var (
	_optionTickers    = []string{"BTC", "ETH", "SOL", "AVAX", "MATIC", "LINK"}
	_optionDirections = []string{"Buy", "Sell"}
	_optionKinds      = []string{"Call", "Put"}
	_optionSentiments = []string{"Bullish", "Bearish"}
)

// OptionsFlow generates synthetic options prints. There is no upstream
// options feed.
type OptionsFlow struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewOptionsFlow(seed uint64, now func() time.Time) *OptionsFlow {
	if now == nil {
		now = time.Now
	}
	return &OptionsFlow{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: now,
	}
}

// Generate returns n rows spaced 30 seconds apart, newest first.
func (o *OptionsFlow) Generate(n int) []model.OptionFlow {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	rows := make([]model.OptionFlow, 0, n)
	for i := 0; i < n; i++ {
		expiry := now.Add(time.Duration(o.rnd.Float64() * float64(90*24*time.Hour)))
		rows = append(rows, model.OptionFlow{
			ID:        now.UnixMilli() + int64(i),
			Time:      now.Add(-time.Duration(i) * 30 * time.Second),
			Ticker:    pick(o.rnd, _optionTickers),
			Direction: pick(o.rnd, _optionDirections),
			CallPut:   pick(o.rnd, _optionKinds),
			Price:     o.between(20_000, 90_000, 2),
			Premium:   o.between(0, 200_000, 1),
			Size:      10 + o.rnd.Int64N(500),
			Expiry:    expiry.Format(time.DateOnly),
			Strike:    o.between(30_000, 50_000, 0),
			IV:        o.between(40, 100, 1),
			Sentiment: pick(o.rnd, _optionSentiments),
		})
	}
	return rows
}

func (o *OptionsFlow) between(lo, hi float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(lo + o.rnd.Float64()*(hi-lo)).Round(places)
}

func pick(rnd *rand.Rand, from []string) string {
	return from[rnd.IntN(len(from))]
}
