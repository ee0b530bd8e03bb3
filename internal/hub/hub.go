package hub

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"cryptoflow/internal/model"
	"cryptoflow/internal/model/enum"
	"cryptoflow/internal/obs"
	"cryptoflow/pkg/exception"
)

const (
	defaultQueueSize         = 256
	defaultLivenessTimeout   = 5 * time.Minute
	defaultSweepInterval     = time.Minute
	defaultHeartbeatInterval = 30 * time.Second
)

type Option struct {
	// QueueSize bounds each subscriber's outbox. A full outbox drops its
	// oldest message.
	QueueSize         int
	LivenessTimeout   time.Duration
	SweepInterval     time.Duration
	HeartbeatInterval time.Duration
	Metrics           *obs.Metrics
	// Now is the clock used for liveness. Defaults to time.Now.
	Now func() time.Time
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	TotalConnections int               `json:"totalConnections"`
	Subscriptions    map[string]int    `json:"subscriptions"`
	Subscribers      []SubscriberStats `json:"subscribers"`
	Uptime           float64           `json:"uptime"`
}

// superseding lists message types whose newer payload replaces an undelivered
// older one on the same topic. Alerts and replies are never replaced.
var superseding = map[string]bool{
	model.MsgTickerUpdate:       true,
	model.MsgLiquidationsUpdate: true,
	model.MsgClimacticUpdate:    true,
	model.MsgVolumeUpdate:       true,
	model.MsgMarketMoversUpdate: true,
	model.MsgOptionsUpdate:      true,
	model.MsgHeartbeat:          true,
}

func coalesceKey(msgType, topic string) string {
	if !superseding[msgType] {
		return ""
	}
	return msgType + "|" + topic
}

// Hub owns every subscriber and fans events out by topic.
type Hub struct {
	opt      Option
	registry *Registry
	cache    *SnapshotCache

	mu     sync.RWMutex
	subs   map[string]*Subscriber
	closed bool

	startedAt time.Time
}

func New(opt Option, cache *SnapshotCache) *Hub {
	if opt.QueueSize <= 0 {
		opt.QueueSize = defaultQueueSize
	}
	if opt.LivenessTimeout <= 0 {
		opt.LivenessTimeout = defaultLivenessTimeout
	}
	if opt.SweepInterval <= 0 {
		opt.SweepInterval = defaultSweepInterval
	}
	if opt.HeartbeatInterval <= 0 {
		opt.HeartbeatInterval = defaultHeartbeatInterval
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if cache == nil {
		cache = NewSnapshotCache(nil)
	}

	return &Hub{
		opt:       opt,
		registry:  NewRegistry(),
		cache:     cache,
		subs:      make(map[string]*Subscriber),
		startedAt: opt.Now(),
	}
}

func (h *Hub) Cache() *SnapshotCache { return h.cache }

// Join registers a subscriber and queues the initial snapshot followed by a
// status update ahead of any other delivery.
func (h *Hub) Join(id string, transport Transport) (*Subscriber, error) {
	if id == "" {
		return nil, exception.ErrSubscriberEmptyID
	}
	if transport == nil {
		return nil, exception.ErrNilInstance
	}

	sub := newSubscriber(id, transport, h.opt.QueueSize, h.opt.Now())
	initial, err := model.NewEnvelope(model.MsgInitialData, "", h.cache.Snapshot()).Encode()
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, exception.ErrSubscriberGone
	}
	if _, ok := h.subs[id]; ok {
		h.mu.Unlock()
		return nil, errors.Wrap(exception.ErrSubscriberExists, id)
	}
	sub.enqueue("", initial)
	h.subs[id] = sub
	h.registry.Add(id)
	total := len(h.subs)
	h.mu.Unlock()

	status, err := model.NewEnvelope(model.MsgStatusUpdate, "", model.StatusUpdate{
		Status:           "connected",
		ServerTime:       h.opt.Now(),
		TotalConnections: total,
	}).Encode()
	if err == nil {
		sub.enqueue("", status)
	}

	go sub.writeLoop(h.onDeliveryFault)
	logs.Infof("hub: subscriber %s joined, total %d", id, total)
	return sub, nil
}

// Leave removes and releases a subscriber. Unknown ids are a no-op.
func (h *Hub) Leave(id string) bool {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		h.registry.Remove(id)
	}
	h.mu.Unlock()
	if !ok {
		return false
	}

	if err := sub.close(); err != nil {
		logs.Warnf("hub: close subscriber %s, err: %+v", id, err)
	}
	return true
}

// Subscribe adds topics for id. Unknown ids are a no-op.
func (h *Hub) Subscribe(id string, topics ...enum.Topic) bool {
	return h.registry.Subscribe(id, topics...)
}

// Unsubscribe removes topics for id. Unknown ids are a no-op.
func (h *Hub) Unsubscribe(id string, topics ...enum.Topic) bool {
	return h.registry.Unsubscribe(id, topics...)
}

// Topics returns the topics id is subscribed to.
func (h *Hub) Topics(id string) []enum.Topic {
	return h.registry.Topics(id)
}

// Ping refreshes id's liveness timestamp.
func (h *Hub) Ping(id string) bool {
	sub := h.get(id)
	if sub == nil {
		return false
	}
	sub.touch(h.opt.Now())
	return true
}

// Publish delivers data to every subscriber of topic and returns how many
// deliveries were queued.
func (h *Hub) Publish(topic enum.Topic, msgType string, data any) int {
	ids := h.registry.Match(topic)
	if len(ids) == 0 {
		return 0
	}
	msg, err := model.NewEnvelope(msgType, string(topic), data).Encode()
	if err != nil {
		logs.Errorf("hub: publish %s to %s, err: %+v", msgType, topic, err)
		return 0
	}
	return h.deliver(ids, coalesceKey(msgType, string(topic)), msg)
}

// Broadcast delivers data to every subscriber regardless of topic.
func (h *Hub) Broadcast(msgType string, data any) int {
	msg, err := model.NewEnvelope(msgType, "", data).Encode()
	if err != nil {
		logs.Errorf("hub: broadcast %s, err: %+v", msgType, err)
		return 0
	}

	h.mu.RLock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	return h.deliver(ids, coalesceKey(msgType, ""), msg)
}

// Send delivers data to one subscriber.
func (h *Hub) Send(id, msgType string, data any) error {
	sub := h.get(id)
	if sub == nil {
		return errors.Wrap(exception.ErrSubscriberGone, id)
	}
	msg, err := model.NewEnvelope(msgType, "", data).Encode()
	if err != nil {
		return err
	}
	switch sub.enqueue("", msg) {
	case pushClosed:
		return errors.Wrap(exception.ErrSubscriberGone, id)
	case pushEvicted:
		h.opt.Metrics.IncQueueDrop()
	}
	return nil
}

func (h *Hub) deliver(ids []string, key string, msg []byte) int {
	delivered := 0
	for _, id := range ids {
		sub := h.get(id)
		if sub == nil {
			continue
		}
		switch sub.enqueue(key, msg) {
		case pushClosed:
			continue
		case pushEvicted:
			h.opt.Metrics.IncQueueDrop()
		}
		delivered++
	}
	return delivered
}

// Sweep evicts every subscriber whose last ping is older than the liveness
// timeout at now, and returns the evicted ids.
func (h *Hub) Sweep(now time.Time) []string {
	deadline := now.Add(-h.opt.LivenessTimeout)

	h.mu.RLock()
	var stale []string
	for id, sub := range h.subs {
		if sub.LastPing().Before(deadline) {
			stale = append(stale, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range stale {
		if h.Leave(id) {
			h.opt.Metrics.IncEviction()
			logs.Infof("hub: evicted idle subscriber %s", id)
		}
	}
	return stale
}

// Heartbeat broadcasts server time and the subscriber count.
func (h *Hub) Heartbeat(now time.Time) int {
	return h.Broadcast(model.MsgHeartbeat, model.Heartbeat{
		Timestamp:   now,
		ServerTime:  now.UnixMilli(),
		Connections: h.Len(),
		Uptime:      now.Sub(h.startedAt).Seconds(),
	})
}

// HandleEvent publishes forwarded ingestion events: tickers to their
// per-symbol topic, alerts to their coarse topic.
func (h *Hub) HandleEvent(_ context.Context, ev model.Event) error {
	switch e := ev.(type) {
	case model.Ticker:
		h.Publish(enum.TickerTopic(e.Symbol), model.MsgTickerUpdate, e)
	case model.LiquidationAlert:
		h.Publish(enum.TopicLiquidations, model.MsgLiquidationAlert, e)
	case model.ClimacticMove:
		h.Publish(enum.TopicClimactic, model.MsgClimacticAlert, e)
	}
	return nil
}

// Refresh runs one refresher cycle. A failure skips the cycle and leaves the
// cached payload in place.
func (h *Hub) Refresh(ctx context.Context, r Refresher) error {
	start := time.Now()
	payload, err := r.Refresh(ctx)
	h.opt.Metrics.ObserveRefresh(time.Since(start))
	if err != nil {
		h.opt.Metrics.IncRefreshFailure()
		logs.Warnf("hub: refresh %s skipped, err: %+v", r.Key, err)
		return err
	}

	if err := h.cache.Mirror(ctx, r.Key, payload); err != nil {
		logs.Warnf("hub: mirror %s, err: %+v", r.Key, err)
	}
	h.Publish(r.Topic, r.MsgType, payload)
	return nil
}

// Run drives the refreshers, the liveness sweep and the heartbeat until ctx
// is done, then releases every subscriber.
func (h *Hub) Run(ctx context.Context, refreshers []Refresher) error {
	var wg sync.WaitGroup
	for _, r := range refreshers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.refreshLoop(ctx, r)
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		every(ctx, h.opt.SweepInterval, func() { h.Sweep(h.opt.Now()) })
	}()
	go func() {
		defer wg.Done()
		every(ctx, h.opt.HeartbeatInterval, func() { h.Heartbeat(h.opt.Now()) })
	}()

	wg.Wait()
	h.Close()
	return nil
}

func (h *Hub) refreshLoop(ctx context.Context, r Refresher) {
	if r.Interval <= 0 || r.Refresh == nil {
		logs.Errorf("hub: refresher %s misconfigured, interval %s", r.Key, r.Interval)
		return
	}
	_ = h.Refresh(ctx, r)
	every(ctx, r.Interval, func() { _ = h.Refresh(ctx, r) })
}

// Close releases every subscriber and rejects further joins.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.Leave(id)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	subs := make([]SubscriberStats, 0, len(h.subs))
	for id, sub := range h.subs {
		topics := h.registry.Topics(id)
		names := make([]string, len(topics))
		for i, topic := range topics {
			names[i] = topic.String()
		}
		subs = append(subs, SubscriberStats{
			ID:       id,
			JoinedAt: sub.CreatedAt(),
			LastPing: sub.LastPing(),
			Pending:  sub.outbox.len(),
			Topics:   names,
		})
	}
	h.mu.RUnlock()
	slices.SortFunc(subs, func(a, b SubscriberStats) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})

	return Stats{
		TotalConnections: len(subs),
		Subscriptions:    h.registry.Counts(),
		Subscribers:      subs,
		Uptime:           h.opt.Now().Sub(h.startedAt).Seconds(),
	}
}

func (h *Hub) get(id string) *Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subs[id]
}

func (h *Hub) onDeliveryFault(sub *Subscriber, err error) {
	h.opt.Metrics.IncDeliveryFault()
	logs.Warnf("hub: deliver to %s failed, dropping subscriber, err: %+v", sub.ID(), err)
	h.Leave(sub.ID())
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
