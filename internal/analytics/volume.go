package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptoflow/internal/model"
)

const _volumeWindow = 60

// VolumeTracker accumulates trade quote volume per symbol per minute and
// rolls it into one-hour windows.
type VolumeTracker struct {
	mu      sync.Mutex
	current map[string]decimal.Decimal
	history map[string][]decimal.Decimal
}

func NewVolumeTracker() *VolumeTracker {
	return &VolumeTracker{
		current: make(map[string]decimal.Decimal),
		history: make(map[string][]decimal.Decimal),
	}
}

func (v *VolumeTracker) Add(symbol string, quote decimal.Decimal) {
	if symbol == "" || !quote.IsPositive() {
		return
	}
	v.mu.Lock()
	v.current[symbol] = v.current[symbol].Add(quote)
	v.mu.Unlock()
}

// HandleEvent feeds aggregated trades into the tracker and ignores the rest.
func (v *VolumeTracker) HandleEvent(_ context.Context, ev model.Event) error {
	if trade, ok := ev.(model.AggTrade); ok {
		v.Add(trade.Symbol, trade.QuoteVolume())
	}
	return nil
}

// Roll closes the current minute and returns one sample per symbol that
// traded within the last hour, ordered by symbol.
func (v *VolumeTracker) Roll(now time.Time) []model.VolumeSample {
	v.mu.Lock()
	defer v.mu.Unlock()

	for sym := range v.current {
		if _, ok := v.history[sym]; !ok {
			v.history[sym] = nil
		}
	}

	samples := make([]model.VolumeSample, 0, len(v.history))
	for sym, hist := range v.history {
		hist = append(hist, v.current[sym])
		if len(hist) > _volumeWindow {
			hist = hist[len(hist)-_volumeWindow:]
		}

		hour := sum(hist, _volumeWindow)
		if hour.IsZero() {
			delete(v.history, sym)
			continue
		}
		v.history[sym] = hist

		last := hist[len(hist)-1]
		avg := hour.Div(decimal.NewFromInt(int64(len(hist))))
		samples = append(samples, model.VolumeSample{
			Symbol:         sym,
			Timestamp:      now,
			Volume1m:       last,
			Volume5m:       sum(hist, 5),
			Volume15m:      sum(hist, 15),
			Volume1h:       hour,
			AvgVolume:      avg.Round(8),
			RelativeVolume: last.Div(avg).Round(4),
		})
	}
	v.current = make(map[string]decimal.Decimal)

	sort.Slice(samples, func(i, j int) bool { return samples[i].Symbol < samples[j].Symbol })
	return samples
}

// Run rolls the tracker every interval and hands each sample to record.
func (v *VolumeTracker) Run(ctx context.Context, interval time.Duration, record func(model.VolumeSample)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, s := range v.Roll(now) {
				record(s)
			}
		}
	}
}

func sum(hist []decimal.Decimal, last int) decimal.Decimal {
	if last > len(hist) {
		last = len(hist)
	}
	total := decimal.Zero
	for _, d := range hist[len(hist)-last:] {
		total = total.Add(d)
	}
	return total
}
