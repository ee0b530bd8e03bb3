package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"cryptoflow/internal/ingest/binance"
	"cryptoflow/internal/model"
	"cryptoflow/internal/model/enum"
	"cryptoflow/pkg/exception"
	"cryptoflow/pkg/websocket"
)

type scriptedConn struct {
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newScriptedConn(frames ...string) *scriptedConn {
	c := &scriptedConn{frames: make(chan []byte, len(frames)), done: make(chan struct{})}
	for _, f := range frames {
		c.frames <- []byte(f)
	}
	return c
}

func (c *scriptedConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case f := <-c.frames:
		return websocket.MessageText, f, nil
	case <-c.done:
		return 0, nil, exception.ErrWebSocketConnectionClose
	}
}

func (c *scriptedConn) Write(context.Context, websocket.MessageType, []byte) error { return nil }

func (c *scriptedConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// scriptedDialer serves one connection per endpoint name; names without a
// script fail to dial.
func scriptedDialer(scripts map[string][]string) websocket.Dialer {
	return websocket.DialerFunc(func(ctx context.Context, ep websocket.Endpoint) (websocket.Conn, error) {
		frames, ok := scripts[ep.Name]
		if !ok {
			return nil, errors.New("refused")
		}
		return newScriptedConn(frames...), nil
	})
}

func testGroups(t *testing.T) []binance.Group {
	t.Helper()
	groups, err := binance.Groups(binance.GroupOption{
		SpotURL:      "ws://spot.test",
		FuturesURL:   "ws://futures.test",
		TradeSymbols: []string{"btcusdt"},
		DepthSymbols: []string{"btcusdt"},
	})
	require.NoError(t, err)
	return groups
}

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) handle(ctx context.Context, ev model.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) snapshot() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

func TestSupervisorFiltersAndForwards(t *testing.T) {
	dialer := scriptedDialer(map[string][]string{
		binance.GroupMiniTicker: {
			`not json`,
			`[{"s":"BTCUSDT","c":"50000","P":"7.2","v":"30000","q":"1500000","h":"51000","l":"48000","o":"46000"}]`,
		},
		binance.GroupLiquidations: {
			`{"e":"forceOrder","o":{"s":"ETHUSDT","S":"SELL","q":"1","p":"15000","T":1}}`,
			`{"e":"forceOrder","o":{"s":"ETHUSDT","S":"SELL","q":"1","p":"20000","T":2}}`,
			`{"e":"forceOrder","o":{"s":"BTCUSDT","S":"BUY","q":"2","p":"60000","T":3}}`,
		},
		binance.GroupTrades: {},
		binance.GroupDepth:  {},
	})

	sup, err := New(Option{Groups: testGroups(t), Dialer: dialer, StartupTimeout: time.Second})
	require.NoError(t, err)

	tickers, liqs := &recorder{}, &recorder{}
	require.NoError(t, sup.OnEvent(enum.EventTicker, tickers.handle))
	require.NoError(t, sup.OnEvent(enum.EventClimacticMove, tickers.handle))
	require.NoError(t, sup.OnEvent(enum.EventLiquidation, liqs.handle))
	require.NoError(t, sup.OnEvent(enum.EventLiquidationAlert, liqs.handle))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	select {
	case <-sup.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor never ready")
	}

	require.Eventually(t, func() bool {
		return len(tickers.snapshot()) == 2 && len(liqs.snapshot()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	got := tickers.snapshot()
	assert.IsType(t, model.Ticker{}, got[0])
	assert.IsType(t, model.ClimacticMove{}, got[1])

	gotLiq := liqs.snapshot()
	require.IsType(t, model.Liquidation{}, gotLiq[0])
	assert.Equal(t, "BTCUSDT", gotLiq[0].EventSymbol())
	alert := gotLiq[1].(model.LiquidationAlert)
	assert.True(t, alert.Sound)

	status := sup.Status()
	assert.True(t, status.Ready)
	assert.Empty(t, status.Degraded)
	for _, st := range status.Streams {
		assert.Equal(t, websocket.StateOpen.String(), st.State, st.Name)
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	require.True(t, errors.Is(sup.Run(context.Background()), exception.ErrIngestStarted))
}

func TestSupervisorDegradesExhaustedGroup(t *testing.T) {
	dialer := scriptedDialer(map[string][]string{
		binance.GroupMiniTicker: {`[{"s":"ETHUSDT","c":"1","o":"1","h":"1","l":"1","v":"1","q":"1"}]`},
		binance.GroupTrades:     {},
		binance.GroupDepth:      {},
	})

	sup, err := New(Option{
		Groups:         testGroups(t),
		Dialer:         dialer,
		Backoff:        websocket.Backoff{Base: time.Millisecond, Max: 2 * time.Millisecond, MaxAttempts: 5},
		StartupTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	tickers := &recorder{}
	require.NoError(t, sup.OnEvent(enum.EventTicker, tickers.handle))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sup.Run(ctx) }()

	select {
	case name := <-sup.Degraded():
		assert.Equal(t, binance.GroupLiquidations, name)
	case <-time.After(2 * time.Second):
		t.Fatal("no degraded signal")
	}

	<-sup.Ready()
	require.Eventually(t, func() bool { return len(tickers.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	status := sup.Status()
	assert.Equal(t, []string{binance.GroupLiquidations}, status.Degraded)
	assert.Equal(t, []string{binance.GroupLiquidations}, status.Missing)
}

func TestNewSupervisorValidates(t *testing.T) {
	_, err := New(Option{})
	require.True(t, errors.Is(err, exception.ErrIngestNoGroup))

	_, err = New(Option{Groups: testGroups(t)})
	require.True(t, errors.Is(err, exception.ErrStreamNilDialer))
}

func TestSupervisorFillsZeroThresholds(t *testing.T) {
	sup, err := New(Option{
		Groups:     testGroups(t),
		Dialer:     scriptedDialer(nil),
		Thresholds: Thresholds{LiquidationNotional: d("50000")},
	})
	require.NoError(t, err)

	th := sup.opt.Thresholds
	assert.True(t, th.LiquidationNotional.Equal(d("50000")))
	assert.True(t, th.ClimacticChange.Equal(d("5")))
	assert.True(t, th.ClimacticQuoteVolume.Equal(d("1000000")))

	calm := model.Ticker{Symbol: "BTCUSDT", PriceChangePercent: d("1.2"), QuoteVolume: d("5000000")}
	assert.False(t, th.IsClimactic(calm))
	assert.False(t, th.PassLiquidation(model.Liquidation{Symbol: "ETHUSDT", Quantity: d("1"), Price: d("30000")}))
}
