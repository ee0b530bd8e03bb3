package obs

import (
	"sync/atomic"
	"time"

	"cryptoflow/internal/model/enum"
)

const maxEventKind = int(enum.EventLiquidationAlert)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	eventCounts [maxEventKind + 1]uint64

	decodeFaults    uint64
	ingestDrops     uint64
	handlerFailures uint64
	deliveryFaults  uint64
	queueDrops      uint64
	evictions       uint64
	refreshFailures uint64
	sinkDrops       uint64

	eventLatency   LatencyStats
	refreshLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts     map[string]uint64 `json:"eventCounts"`
	DecodeFaults    uint64            `json:"decodeFaults"`
	IngestDrops     uint64            `json:"ingestDrops"`
	HandlerFailures uint64            `json:"handlerFailures"`
	DeliveryFaults  uint64            `json:"deliveryFaults"`
	QueueDrops      uint64            `json:"queueDrops"`
	Evictions       uint64            `json:"evictions"`
	RefreshFailures uint64            `json:"refreshFailures"`
	SinkDrops       uint64            `json:"sinkDrops"`
	EventLatency    LatencySnapshot   `json:"eventLatency"`
	RefreshLatency  LatencySnapshot   `json:"refreshLatency"`
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent counts a forwarded event and tracks exchange-to-process latency.
func (m *Metrics) ObserveEvent(kind enum.EventKind, eventTimeMs int64) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	if eventTimeMs > 0 {
		delta := time.Now().UnixMilli() - eventTimeMs
		if delta >= 0 {
			m.eventLatency.Observe(time.Duration(delta) * time.Millisecond)
		}
	}
}

func (m *Metrics) IncDecodeFault() { m.inc(func(m *Metrics) *uint64 { return &m.decodeFaults }) }

func (m *Metrics) IncIngestDrop() { m.inc(func(m *Metrics) *uint64 { return &m.ingestDrops }) }

func (m *Metrics) IncHandlerFailure() { m.inc(func(m *Metrics) *uint64 { return &m.handlerFailures }) }

func (m *Metrics) IncDeliveryFault() { m.inc(func(m *Metrics) *uint64 { return &m.deliveryFaults }) }

// IncQueueDrop records a message dropped by a full subscriber queue.
func (m *Metrics) IncQueueDrop() { m.inc(func(m *Metrics) *uint64 { return &m.queueDrops }) }

func (m *Metrics) IncEviction() { m.inc(func(m *Metrics) *uint64 { return &m.evictions }) }

func (m *Metrics) IncRefreshFailure() { m.inc(func(m *Metrics) *uint64 { return &m.refreshFailures }) }

func (m *Metrics) IncSinkDrop() { m.inc(func(m *Metrics) *uint64 { return &m.sinkDrops }) }

// ObserveRefresh measures one cache refresh cycle.
func (m *Metrics) ObserveRefresh(d time.Duration) {
	if m == nil {
		return
	}
	m.refreshLatency.Observe(d)
}

func (m *Metrics) inc(field func(*Metrics) *uint64) {
	if m == nil {
		return
	}
	atomic.AddUint64(field(m), 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[string]uint64, len(m.eventCounts))
	for _, kind := range enum.EventKinds() {
		eventCounts[kind.String()] = atomic.LoadUint64(&m.eventCounts[kind])
	}
	return Snapshot{
		EventCounts:     eventCounts,
		DecodeFaults:    atomic.LoadUint64(&m.decodeFaults),
		IngestDrops:     atomic.LoadUint64(&m.ingestDrops),
		HandlerFailures: atomic.LoadUint64(&m.handlerFailures),
		DeliveryFaults:  atomic.LoadUint64(&m.deliveryFaults),
		QueueDrops:      atomic.LoadUint64(&m.queueDrops),
		Evictions:       atomic.LoadUint64(&m.evictions),
		RefreshFailures: atomic.LoadUint64(&m.refreshFailures),
		SinkDrops:       atomic.LoadUint64(&m.sinkDrops),
		EventLatency:    m.eventLatency.Snapshot(),
		RefreshLatency:  m.refreshLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
