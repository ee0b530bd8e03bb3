package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"cryptoflow/internal/model"
	"cryptoflow/internal/model/enum"
	"cryptoflow/internal/obs"
	"cryptoflow/pkg/exception"
)

type fakeTransport struct {
	msgs    chan model.Envelope
	failing bool

	mu     sync.Mutex
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{msgs: make(chan model.Envelope, 64)}
}

func (f *fakeTransport) Send(msg []byte) error {
	if f.failing {
		return errors.New("broken pipe")
	}
	var env model.Envelope
	if err := sonic.Unmarshal(msg, &env); err != nil {
		return err
	}
	f.msgs <- env
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) next(t *testing.T) model.Envelope {
	t.Helper()
	select {
	case env := <-f.msgs:
		return env
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return model.Envelope{}
	}
}

func (f *fakeTransport) none(t *testing.T) {
	t.Helper()
	select {
	case env := <-f.msgs:
		t.Fatalf("unexpected message %s", env.Type)
	case <-time.After(30 * time.Millisecond):
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// join joins id and consumes the initial-data and status-update messages.
func join(t *testing.T, h *Hub, id string) *fakeTransport {
	t.Helper()
	tr := newFakeTransport()
	_, err := h.Join(id, tr)
	require.NoError(t, err)
	assert.Equal(t, model.MsgInitialData, tr.next(t).Type)
	assert.Equal(t, model.MsgStatusUpdate, tr.next(t).Type)
	return tr
}

func TestJoinSendsInitialSnapshotThenStatus(t *testing.T) {
	cache := NewSnapshotCache(nil)
	cache.SetLiquidations([]model.LiquidationRow{{ID: 1, Ticker: "BTCUSDT", Amount: decimal.NewFromInt(50000)}})
	h := New(Option{}, cache)
	defer h.Close()

	tr := newFakeTransport()
	_, err := h.Join("a", tr)
	require.NoError(t, err)

	initial := tr.next(t)
	require.Equal(t, model.MsgInitialData, initial.Type)
	data := initial.Data.(map[string]any)
	assert.Len(t, data["liquidations"], 1)
	assert.Empty(t, data["optionsFlow"])

	status := tr.next(t)
	require.Equal(t, model.MsgStatusUpdate, status.Type)
	assert.EqualValues(t, 1, status.Data.(map[string]any)["totalConnections"])

	_, err = h.Join("a", newFakeTransport())
	require.True(t, errors.Is(err, exception.ErrSubscriberExists))
	_, err = h.Join("", newFakeTransport())
	require.True(t, errors.Is(err, exception.ErrSubscriberEmptyID))
}

func TestPublishTopicIsolation(t *testing.T) {
	h := New(Option{}, nil)
	defer h.Close()

	climactic := join(t, h, "climactic-only")
	liquidations := join(t, h, "liquidations-only")
	h.Subscribe("climactic-only", enum.TopicClimactic)
	h.Subscribe("liquidations-only", enum.TopicLiquidations)

	assert.Equal(t, 1, h.Publish(enum.TopicLiquidations, model.MsgLiquidationAlert, map[string]int{"n": 1}))
	env := liquidations.next(t)
	assert.Equal(t, model.MsgLiquidationAlert, env.Type)
	assert.Equal(t, "liquidations", env.Topic)
	climactic.none(t)

	assert.Equal(t, 1, h.Publish(enum.TopicClimactic, model.MsgClimacticAlert, nil))
	assert.Equal(t, model.MsgClimacticAlert, climactic.next(t).Type)
	liquidations.none(t)
}

func TestResubscribeRestoresDelivery(t *testing.T) {
	h := New(Option{}, nil)
	defer h.Close()
	tr := join(t, h, "a")

	h.Subscribe("a", enum.TopicVolume)
	h.Subscribe("a", enum.TopicVolume)
	assert.Equal(t, 1, h.Publish(enum.TopicVolume, model.MsgVolumeUpdate, nil))
	tr.next(t)
	tr.none(t)

	h.Unsubscribe("a", enum.TopicVolume)
	assert.Equal(t, 0, h.Publish(enum.TopicVolume, model.MsgVolumeUpdate, nil))
	tr.none(t)

	h.Subscribe("a", enum.TopicVolume)
	assert.Equal(t, 1, h.Publish(enum.TopicVolume, model.MsgVolumeUpdate, nil))
	tr.next(t)
	tr.none(t)

	assert.False(t, h.Subscribe("ghost", enum.TopicVolume))
	assert.False(t, h.Unsubscribe("ghost", enum.TopicVolume))
}

func TestSweepEvictsIdleSubscribers(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	metrics := obs.NewMetrics()
	h := New(Option{Now: clock.Now, Metrics: metrics}, nil)
	defer h.Close()

	idle := join(t, h, "idle")
	join(t, h, "active")

	for i := 0; i < 5; i++ {
		now := clock.Advance(4 * time.Minute)
		require.True(t, h.Ping("active"))
		evicted := h.Sweep(now)
		if i == 0 {
			assert.Empty(t, evicted)
			continue
		}
		if i == 1 {
			assert.Equal(t, []string{"idle"}, evicted)
		}
	}

	assert.Equal(t, 1, h.Len())
	assert.True(t, idle.isClosed())
	assert.False(t, h.Ping("idle"))
	assert.Equal(t, uint64(1), metrics.Snapshot().Evictions)
}

func TestDeliveryFaultIsIsolated(t *testing.T) {
	metrics := obs.NewMetrics()
	h := New(Option{Metrics: metrics}, nil)
	defer h.Close()

	good := join(t, h, "good")
	h.Subscribe("good", enum.TopicOptions)

	broken := newFakeTransport()
	broken.failing = true
	_, err := h.Join("broken", broken)
	require.NoError(t, err)
	h.Subscribe("broken", enum.TopicOptions)

	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, broken.isClosed())

	h.Publish(enum.TopicOptions, model.MsgOptionsUpdate, nil)
	assert.Equal(t, model.MsgOptionsUpdate, good.next(t).Type)
	assert.Equal(t, uint64(1), metrics.Snapshot().DeliveryFaults)
}

func TestHeartbeatReachesEverySubscriber(t *testing.T) {
	h := New(Option{}, nil)
	defer h.Close()
	a := join(t, h, "a")
	b := join(t, h, "b")
	h.Subscribe("a", enum.TopicClimactic)

	assert.Equal(t, 2, h.Heartbeat(time.Now()))
	for _, tr := range []*fakeTransport{a, b} {
		env := tr.next(t)
		assert.Equal(t, model.MsgHeartbeat, env.Type)
		assert.EqualValues(t, 2, env.Data.(map[string]any)["connections"])
	}
}

func TestHandleEventRoutesByTopic(t *testing.T) {
	h := New(Option{}, nil)
	defer h.Close()
	btc := join(t, h, "btc")
	liq := join(t, h, "liq")
	h.Subscribe("btc", enum.TickerTopic("BTCUSDT"))
	h.Subscribe("liq", enum.TopicLiquidations)

	ctx := context.Background()
	require.NoError(t, h.HandleEvent(ctx, model.Ticker{Symbol: "ETHUSDT"}))
	require.NoError(t, h.HandleEvent(ctx, model.Ticker{Symbol: "BTCUSDT"}))
	require.NoError(t, h.HandleEvent(ctx, model.LiquidationAlert{Symbol: "BTCUSDT", Sound: true}))

	env := btc.next(t)
	assert.Equal(t, model.MsgTickerUpdate, env.Type)
	assert.Equal(t, "ticker:BTCUSDT", env.Topic)
	btc.none(t)

	env = liq.next(t)
	assert.Equal(t, model.MsgLiquidationAlert, env.Type)
	assert.Equal(t, true, env.Data.(map[string]any)["sound"])
}

type stubSource struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (s *stubSource) FetchRecentLiquidations(ctx context.Context, limit int) ([]model.LiquidationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return nil, exception.ErrSourceUnavailable
	}
	return []model.LiquidationRow{{ID: int64(s.calls), Ticker: "BTCUSDT"}}, nil
}

func (s *stubSource) FetchClimacticMoves(context.Context, int) ([]model.ClimacticRow, error) {
	return []model.ClimacticRow{}, nil
}

func (s *stubSource) FetchVolumeAnalysis(context.Context, int) ([]model.VolumeRow, error) {
	return nil, exception.ErrSourceUnavailable
}

func (s *stubSource) FetchMarketMovers(context.Context) (model.MarketMovers, error) {
	return model.MarketMovers{Gainers: []model.MarketMover{{Ticker: "SOLUSDT"}}}, nil
}

func (s *stubSource) FetchOptionsFlow(context.Context) ([]model.OptionFlow, error) {
	return []model.OptionFlow{{ID: 1}}, nil
}

type mapMirror struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *mapMirror) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = payload
	return nil
}

func (m *mapMirror) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, exception.ErrMirrorMiss
	}
	return b, nil
}

func TestRefreshSkipsFailedCycle(t *testing.T) {
	mirror := &mapMirror{data: map[string][]byte{}}
	cache := NewSnapshotCache(mirror)
	h := New(Option{}, cache)
	defer h.Close()
	tr := join(t, h, "a")
	h.Subscribe("a", enum.TopicLiquidations)

	src := &stubSource{}
	refreshers := Refreshers(src, cache, DefaultRefreshOption())
	liquidations := refreshers[0]
	require.Equal(t, CacheLiquidations, liquidations.Key)

	require.NoError(t, h.Refresh(context.Background(), liquidations))
	assert.Equal(t, model.MsgLiquidationsUpdate, tr.next(t).Type)
	assert.Len(t, cache.Snapshot().Liquidations, 1)

	src.mu.Lock()
	src.fail = true
	src.mu.Unlock()
	require.Error(t, h.Refresh(context.Background(), liquidations))
	tr.none(t)
	assert.Equal(t, int64(1), cache.Snapshot().Liquidations[0].ID)

	src.mu.Lock()
	src.fail = false
	src.mu.Unlock()
	require.NoError(t, h.Refresh(context.Background(), liquidations))
	tr.next(t)
	assert.Equal(t, int64(3), cache.Snapshot().Liquidations[0].ID)

	warmed := NewSnapshotCache(mirror)
	assert.Equal(t, 1, warmed.Warm(context.Background()))
	assert.Equal(t, int64(3), warmed.Snapshot().Liquidations[0].ID)
}

func TestRunDrivesRefreshersAndStops(t *testing.T) {
	cache := NewSnapshotCache(nil)
	h := New(Option{SweepInterval: 10 * time.Millisecond, HeartbeatInterval: 10 * time.Millisecond}, cache)
	tr := join(t, h, "a")
	h.Subscribe("a", enum.TopicMovers)

	opt := DefaultRefreshOption()
	opt.MarketMovers = 10 * time.Millisecond
	refreshers := Refreshers(&stubSource{}, cache, opt)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, refreshers) }()

	var sawMovers, sawHeartbeat bool
	deadline := time.After(2 * time.Second)
	for !(sawMovers && sawHeartbeat) {
		select {
		case env := <-tr.msgs:
			sawMovers = sawMovers || env.Type == model.MsgMarketMoversUpdate
			sawHeartbeat = sawHeartbeat || env.Type == model.MsgHeartbeat
		case <-deadline:
			t.Fatalf("movers=%v heartbeat=%v", sawMovers, sawHeartbeat)
		}
	}
	assert.Len(t, cache.Snapshot().MarketMovers.Gainers, 1)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, h.Len())
	assert.True(t, tr.isClosed())

	_, err := h.Join("late", newFakeTransport())
	require.True(t, errors.Is(err, exception.ErrSubscriberGone))
}

func TestStatsListsSubscribers(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	h := New(Option{Now: clock.Now}, nil)
	defer h.Close()

	join(t, h, "first")
	clock.Advance(time.Second)
	join(t, h, "second")
	h.Subscribe("second", enum.TopicVolume, enum.TickerTopic("BTCUSDT"))
	clock.Advance(time.Second)
	require.True(t, h.Ping("first"))

	stats := h.Stats()
	assert.Equal(t, 2, stats.TotalConnections)
	require.Len(t, stats.Subscribers, 2)

	first, second := stats.Subscribers[0], stats.Subscribers[1]
	assert.Equal(t, "first", first.ID)
	assert.True(t, first.JoinedAt.Equal(time.Unix(1_700_000_000, 0)))
	assert.True(t, first.LastPing.Equal(time.Unix(1_700_000_002, 0)))
	assert.Empty(t, first.Topics)

	assert.Equal(t, "second", second.ID)
	assert.Equal(t, []string{"ticker:BTCUSDT", "volume"}, second.Topics)
	assert.Equal(t, 1, stats.Subscriptions["volume"])
}
