package obs

import (
	"testing"
	"time"

	"cryptoflow/internal/model/enum"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.ObserveEvent(enum.EventTicker, time.Now().UnixMilli())
	m.ObserveEvent(enum.EventTicker, 0)
	m.ObserveEvent(enum.EventLiquidationAlert, 0)
	m.IncDecodeFault()
	m.IncDeliveryFault()
	m.IncDeliveryFault()
	m.ObserveRefresh(3 * time.Millisecond)

	snap := m.Snapshot()
	if snap.EventCounts["ticker"] != 2 || snap.EventCounts["liquidationAlert"] != 1 {
		t.Fatalf("event counts mismatch: %+v", snap.EventCounts)
	}
	if depth, ok := snap.EventCounts["depth"]; !ok || depth != 0 || len(snap.EventCounts) != len(enum.EventKinds()) {
		t.Fatalf("event counts mismatch: %+v", snap.EventCounts)
	}
	if snap.DecodeFaults != 1 || snap.DeliveryFaults != 2 {
		t.Fatalf("fault counters mismatch: %+v", snap)
	}
	if snap.RefreshLatency.Count != 1 || snap.RefreshLatency.Max != 3*time.Millisecond {
		t.Fatalf("refresh latency mismatch: %+v", snap.RefreshLatency)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.IncQueueDrop()
	m.ObserveEvent(enum.EventDepth, 1)
	if snap := m.Snapshot(); snap.QueueDrops != 0 {
		t.Fatalf("nil metrics should be empty: %+v", snap)
	}
}
