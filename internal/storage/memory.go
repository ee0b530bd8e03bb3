package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

const defaultMemoryCapacity = 2000

// Memory is a bounded in-process Store used when no database is configured.
// Each table keeps its newest rows only.
type Memory struct {
	mu       sync.RWMutex
	capacity int
	seq      int64

	trades       []TradeRecord
	liquidations []LiquidationRecord
	climactic    []ClimacticRecord
	volume       []VolumeRecord
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &Memory{capacity: capacity}
}

func (m *Memory) InsertTrade(_ context.Context, rec TradeRecord) error {
	m.mu.Lock()
	rec.ID, rec.CreatedAt = m.next(), time.Now()
	m.trades = capped(append(m.trades, rec), m.capacity)
	m.mu.Unlock()
	return nil
}

func (m *Memory) InsertLiquidation(_ context.Context, rec LiquidationRecord) error {
	m.mu.Lock()
	rec.ID, rec.CreatedAt = m.next(), time.Now()
	m.liquidations = capped(append(m.liquidations, rec), m.capacity)
	m.mu.Unlock()
	return nil
}

func (m *Memory) InsertClimacticMove(_ context.Context, rec ClimacticRecord) error {
	m.mu.Lock()
	rec.ID, rec.CreatedAt = m.next(), time.Now()
	m.climactic = capped(append(m.climactic, rec), m.capacity)
	m.mu.Unlock()
	return nil
}

func (m *Memory) InsertVolume(_ context.Context, rec VolumeRecord) error {
	m.mu.Lock()
	rec.ID, rec.CreatedAt = m.next(), time.Now()
	m.volume = capped(append(m.volume, rec), m.capacity)
	m.mu.Unlock()
	return nil
}

func (m *Memory) RecentLiquidations(_ context.Context, limit int) ([]LiquidationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newest(m.liquidations, limit, func(r LiquidationRecord) (time.Time, bool) {
		return r.Timestamp, r.Amount.GreaterThan(_minLiquidationAmount)
	}), nil
}

func (m *Memory) ClimacticMoves(_ context.Context, limit int) ([]ClimacticRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newest(m.climactic, limit, func(r ClimacticRecord) (time.Time, bool) {
		return r.Timestamp, true
	}), nil
}

func (m *Memory) VolumeAnalysis(_ context.Context, limit int) ([]VolumeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newest(m.volume, limit, func(r VolumeRecord) (time.Time, bool) {
		return r.Timestamp, r.RelativeVolume.GreaterThan(_minRelativeVolume)
	}), nil
}

func (m *Memory) Cleanup(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	m.trades, n = prune(m.trades, before, func(r TradeRecord) time.Time { return r.Timestamp })
	total := n
	m.liquidations, n = prune(m.liquidations, before, func(r LiquidationRecord) time.Time { return r.Timestamp })
	total += n
	m.climactic, n = prune(m.climactic, before, func(r ClimacticRecord) time.Time { return r.Timestamp })
	total += n
	m.volume, n = prune(m.volume, before, func(r VolumeRecord) time.Time { return r.Timestamp })
	total += n
	return int64(total), nil
}

func (m *Memory) next() int64 {
	m.seq++
	return m.seq
}

func capped[T any](s []T, capacity int) []T {
	if len(s) > capacity {
		return append(s[:0:0], s[len(s)-capacity:]...)
	}
	return s
}

// newest walks rows from the most recently inserted backwards.
func newest[T any](rows []T, limit int, keep func(T) (time.Time, bool)) []T {
	out := make([]T, 0, min(limit, len(rows)))
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		if _, ok := keep(rows[i]); ok {
			out = append(out, rows[i])
		}
	}
	sortByTimeDesc(out, keep)
	return out
}

func sortByTimeDesc[T any](rows []T, ts func(T) (time.Time, bool)) {
	slices.SortStableFunc(rows, func(a, b T) int {
		ta, _ := ts(a)
		tb, _ := ts(b)
		return tb.Compare(ta)
	})
}

func prune[T any](rows []T, before time.Time, ts func(T) time.Time) ([]T, int) {
	kept := rows[:0]
	for _, r := range rows {
		if !ts(r).Before(before) {
			kept = append(kept, r)
		}
	}
	removed := len(rows) - len(kept)
	clear(rows[len(kept):])
	return kept, removed
}
