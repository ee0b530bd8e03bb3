package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"cryptoflow/internal/model"
	"cryptoflow/internal/obs"
	"cryptoflow/pkg/exception"
)

const (
	defaultSinkBuffer        = 1024
	defaultClimacticCooldown = time.Minute
	defaultWriteTimeout      = 5 * time.Second
	drainTimeout             = 5 * time.Second
)

type SinkOption struct {
	Buffer int
	// ClimacticCooldown suppresses repeated climactic rows per symbol; the
	// 24h ticker re-qualifies every second while a move lasts.
	ClimacticCooldown time.Duration
	WriteTimeout      time.Duration
	Metrics           *obs.Metrics
}

type write struct {
	name string
	fn   func(ctx context.Context, store Store) error
}

// Sink is a fire-and-forget writer in front of a Store. Records are queued
// onto a bounded channel drained by one goroutine; a full queue drops.
type Sink struct {
	store Store
	opt   SinkOption
	queue chan write

	cooldownMu sync.Mutex
	lastMove   map[string]time.Time

	closed  atomic.Bool
	dropped atomic.Uint64
}

func NewSink(store Store, opt SinkOption) *Sink {
	if opt.Buffer <= 0 {
		opt.Buffer = defaultSinkBuffer
	}
	if opt.ClimacticCooldown < 0 {
		opt.ClimacticCooldown = 0
	} else if opt.ClimacticCooldown == 0 {
		opt.ClimacticCooldown = defaultClimacticCooldown
	}
	if opt.WriteTimeout <= 0 {
		opt.WriteTimeout = defaultWriteTimeout
	}
	return &Sink{
		store:    store,
		opt:      opt,
		queue:    make(chan write, opt.Buffer),
		lastMove: make(map[string]time.Time),
	}
}

func (s *Sink) RecordTrade(t model.AggTrade) error {
	rec := tradeRecord(t)
	return s.enqueue("trade", func(ctx context.Context, store Store) error {
		return store.InsertTrade(ctx, rec)
	})
}

func (s *Sink) RecordLiquidation(l model.Liquidation) error {
	rec := liquidationRecord(l)
	return s.enqueue("liquidation", func(ctx context.Context, store Store) error {
		return store.InsertLiquidation(ctx, rec)
	})
}

// RecordClimacticMove skips moves for a symbol still inside its cooldown.
func (s *Sink) RecordClimacticMove(m model.ClimacticMove) error {
	rec := climacticRecord(m)
	if !s.admitMove(rec.Symbol, rec.Timestamp) {
		return nil
	}
	return s.enqueue("climactic move", func(ctx context.Context, store Store) error {
		return store.InsertClimacticMove(ctx, rec)
	})
}

func (s *Sink) RecordVolume(v model.VolumeSample) error {
	rec := volumeRecord(v)
	return s.enqueue("volume", func(ctx context.Context, store Store) error {
		return store.InsertVolume(ctx, rec)
	})
}

// HandleEvent persists trades, liquidations and climactic moves. Queue
// faults are logged and counted, never returned.
func (s *Sink) HandleEvent(_ context.Context, ev model.Event) error {
	var err error
	switch e := ev.(type) {
	case model.AggTrade:
		err = s.RecordTrade(e)
	case model.Liquidation:
		err = s.RecordLiquidation(e)
	case model.ClimacticMove:
		err = s.RecordClimacticMove(e)
	}
	if err != nil && !errors.Is(err, exception.ErrStorageQueueFull) {
		logs.Warnf("storage: record %s, err: %+v", ev.Kind(), err)
	}
	return nil
}

// Run drains the queue until ctx is done, then flushes what is left.
func (s *Sink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.closed.Store(true)
			s.drain()
			return nil
		case w := <-s.queue:
			s.apply(ctx, w)
		}
	}
}

func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Sink) enqueue(name string, fn func(ctx context.Context, store Store) error) error {
	if s.closed.Load() {
		return exception.ErrStorageClosed
	}
	select {
	case s.queue <- write{name: name, fn: fn}:
		return nil
	default:
		if n := s.dropped.Add(1); n == 1 || n%1000 == 0 {
			logs.Warnf("storage: queue full, dropped %s (total %d)", name, n)
		}
		s.opt.Metrics.IncSinkDrop()
		return exception.ErrStorageQueueFull
	}
}

func (s *Sink) apply(ctx context.Context, w write) {
	ctx, cancel := context.WithTimeout(ctx, s.opt.WriteTimeout)
	defer cancel()
	if err := w.fn(ctx, s.store); err != nil {
		logs.Errorf("storage: write %s, err: %+v", w.name, err)
	}
}

func (s *Sink) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case w := <-s.queue:
			if ctx.Err() != nil {
				return
			}
			s.apply(ctx, w)
		default:
			return
		}
	}
}

func (s *Sink) admitMove(symbol string, ts time.Time) bool {
	if s.opt.ClimacticCooldown == 0 {
		return true
	}
	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()
	if last, ok := s.lastMove[symbol]; ok && ts.Sub(last) < s.opt.ClimacticCooldown {
		return false
	}
	s.lastMove[symbol] = ts
	return true
}
